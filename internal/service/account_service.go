package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/queue"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/utils"
	"github.com/iliyamo/service-marketplace/internal/validation"
)

// ActivationConfig controls account activation links. The service gets it
// at construction; nothing reads the frontend URL from globals.
type ActivationConfig struct {
	FrontendBaseURL string
	Required        bool
	TTL             time.Duration
}

// TokenConfig controls issued credentials.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// AccountService registers users and issues their tokens.
type AccountService struct {
	users      UserStore
	tokens     TokenStore
	events     EventPublisher
	cfg        TokenConfig
	activation ActivationConfig
	log        zerolog.Logger
}

func NewAccountService(users UserStore, tokens TokenStore, events EventPublisher, cfg TokenConfig, activation ActivationConfig, log zerolog.Logger) *AccountService {
	if activation.TTL <= 0 {
		activation.TTL = 24 * time.Hour
	}
	return &AccountService{users: users, tokens: tokens, events: events, cfg: cfg, activation: activation, log: log}
}

type RegisterInput struct {
	Username         string `json:"username" validate:"required,max=150"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Password         string `json:"password" validate:"required,min=8,max=72"`
	RepeatedPassword string `json:"repeated_password" validate:"required,eqfield=Password"`
	Type             string `json:"type" validate:"required,oneof=business customer"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is the result of a login. Token fields are empty when the
// account still waits for activation.
type Session struct {
	User       model.User
	Access     utils.AccessToken
	Refresh    utils.OpaqueToken
	Activation bool
}

// Register creates the user with its profile. When activation is
// required the user starts inactive and an activation link is sent.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if fe := validation.Struct(in); fe != nil {
		return Session{}, invalid(nil, fe...)
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, err
	}
	first, last := splitName(in.Username)
	u := model.User{
		Username:     strings.ReplaceAll(in.Username, " ", "_"),
		Email:        in.Email,
		FirstName:    first,
		LastName:     last,
		PasswordHash: hash,
		Type:         model.UserType(in.Type),
		IsActive:     !s.activation.Required,
	}
	if err := s.users.CreateWithProfile(ctx, &u); err != nil {
		return Session{}, err
	}

	if s.activation.Required {
		if err := s.sendActivation(ctx, u); err != nil {
			return Session{}, err
		}
		return Session{User: u, Activation: true}, nil
	}
	return s.issue(ctx, u)
}

// Login checks the password of an active user.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (Session, error) {
	if fe := validation.Struct(in); fe != nil {
		return Session{}, invalid(nil, fe...)
	}
	u, err := s.users.GetByUsername(ctx, strings.ReplaceAll(strings.TrimSpace(in.Username), " ", "_"))
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword("", in.Password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return Session{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return Session{}, ErrInactiveAccount
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is issued.
func (s *AccountService) Refresh(ctx context.Context, raw string) (Session, error) {
	if raw == "" {
		return Session{}, invalid(nil, fieldErr("refresh", "is required"))
	}
	hash := utils.HashToken(raw)
	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if !u.IsActive {
		return Session{}, ErrInactiveAccount
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return Session{}, err
	}
	return s.issue(ctx, u)
}

// Logout revokes the given refresh token. Unknown tokens are ignored.
func (s *AccountService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return invalid(nil, fieldErr("refresh", "is required"))
	}
	return s.tokens.RevokeByHash(ctx, utils.HashToken(raw))
}

// Activate consumes an activation token and enables its user.
func (s *AccountService) Activate(ctx context.Context, raw string) (model.User, error) {
	if raw == "" {
		return model.User{}, invalid(nil, fieldErr("token", "is required"))
	}
	userID, err := s.tokens.ConsumeActivation(ctx, utils.HashToken(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, invalid(nil, fieldErr("token", "is invalid or expired"))
	}
	if err != nil {
		return model.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}

// Me returns the caller's account.
func (s *AccountService) Me(ctx context.Context, caller *model.Identity) (model.User, error) {
	if caller == nil {
		return model.User{}, ErrUnauthorized
	}
	return s.users.GetByID(ctx, caller.UserID)
}

// ActivationURL builds the link mailed to new users.
func (s *AccountService) ActivationURL(raw string) string {
	return s.activation.FrontendBaseURL + "?activate=" + raw
}

func (s *AccountService) sendActivation(ctx context.Context, u model.User) error {
	tok, err := utils.NewOpaqueToken(s.activation.TTL)
	if err != nil {
		return err
	}
	if err := s.tokens.StoreActivation(ctx, u.ID, utils.HashToken(tok.Raw), tok.Exp); err != nil {
		return err
	}
	publish(ctx, s.events, s.log, queue.AccountActivationKey, queue.AccountActivationEvent{
		UserID:        u.ID,
		Username:      u.Username,
		Email:         u.Email,
		ActivationURL: s.ActivationURL(tok.Raw),
		RequestedAt:   time.Now().UTC(),
	})
	return nil
}

func (s *AccountService) issue(ctx context.Context, u model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.Secret, u, s.cfg.AccessTTL)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewOpaqueToken(s.cfg.RefreshTTL)
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}
	return Session{User: u, Access: access, Refresh: refresh}, nil
}

// splitName derives first and last name from a username, split at the
// last space or underscore.
func splitName(username string) (string, string) {
	i := strings.LastIndexAny(username, " _")
	if i <= 0 || i == len(username)-1 {
		return username, ""
	}
	return username[:i], username[i+1:]
}
