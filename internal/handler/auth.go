package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// AuthHandler bundles the account endpoints.
type AuthHandler struct {
	Accounts *service.AccountService
}

func NewAuthHandler(s *service.AccountService) *AuthHandler { return &AuthHandler{Accounts: s} }

type sessionResp struct {
	Token    string `json:"token"`
	Refresh  string `json:"refresh"`
	Username string `json:"username"`
	Email    string `json:"email"`
	UserID   uint64 `json:"user_id"`
}

type pendingResp struct {
	Detail   string `json:"detail"`
	Username string `json:"username"`
	Email    string `json:"email"`
	UserID   uint64 `json:"user_id"`
}

type userResp struct {
	UserID    uint64         `json:"user_id"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Type      model.UserType `json:"type"`
	IsActive  bool           `json:"is_active"`
	IsAdmin   bool           `json:"is_admin"`
}

type refreshReq struct {
	Refresh string `json:"refresh"`
}

type activateReq struct {
	Token string `json:"token"`
}

func viewSession(s service.Session) sessionResp {
	return sessionResp{
		Token:    s.Access.Token,
		Refresh:  s.Refresh.Raw,
		Username: s.User.Username,
		Email:    s.User.Email,
		UserID:   s.User.ID,
	}
}

func viewUser(u model.User) userResp {
	return userResp{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Type:      u.Type,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
	}
}

// Register handles POST /auth/registration. Accounts that need activation
// get 201 without tokens.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if _, err := bindJSON(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Accounts.Register(ctx, in)
	if err != nil {
		return toHTTPError(err)
	}
	middleware.GetLogger(c).Info().Uint64("user_id", s.User.ID).Str("type", string(s.User.Type)).Msg("user registered")
	if s.Activation {
		return c.JSON(http.StatusCreated, pendingResp{
			Detail:   "activation link sent",
			Username: s.User.Username,
			Email:    s.User.Email,
			UserID:   s.User.ID,
		})
	}
	return c.JSON(http.StatusCreated, viewSession(s))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if _, err := bindJSON(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Accounts.Login(ctx, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewSession(s))
}

// Refresh rotates the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if _, err := bindJSON(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Accounts.Refresh(ctx, strings.TrimSpace(req.Refresh))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewSession(s))
}

// Logout revokes one refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if _, err := bindJSON(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.Logout(ctx, strings.TrimSpace(req.Refresh)); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Activate(c echo.Context) error {
	var req activateReq
	if _, err := bindJSON(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.Activate(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewUser(u))
}

// Me handles GET /me.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.Me(ctx, middleware.Identity(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewUser(u))
}
