// Package service holds the marketplace rules: the offer write pipeline,
// order snapshots and status changes, the review constraints, statistics
// and accounts. Services talk to storage and side systems through the
// small interfaces below so they can be exercised without MySQL, S3 or a
// broker.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// OfferStore persists offers together with their tiers.
type OfferStore interface {
	Create(ctx context.Context, o *model.Offer) error
	Update(ctx context.Context, o *model.Offer, changes []model.TierChange) error
	Get(ctx context.Context, id uint64) (model.Offer, error)
	GetDetail(ctx context.Context, id uint64) (model.TierSource, error)
	TitleTaken(ctx context.Context, businessProfileID uint64, title string, excludeID uint64) (bool, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, q repository.OfferQuery) ([]model.Offer, int64, error)
	CountOffers(ctx context.Context) (int64, error)
}

// ProfileStore resolves the role profiles behind a user.
type ProfileStore interface {
	BusinessByUser(ctx context.Context, userID uint64) (model.BusinessProfile, error)
	CustomerByUser(ctx context.Context, userID uint64) (model.CustomerProfile, error)
	CountBusinessProfiles(ctx context.Context) (int64, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, id uint64) (model.Order, error)
	UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error
	ListForUser(ctx context.Context, userID uint64) ([]model.Order, error)
	ExistsBetween(ctx context.Context, customerProfileID, businessProfileID uint64) (bool, error)
	CountForBusiness(ctx context.Context, businessProfileID uint64, status *model.OrderStatus) (int64, error)
}

type ReviewStore interface {
	Create(ctx context.Context, v *model.Review) error
	Get(ctx context.Context, id uint64) (model.Review, error)
	Update(ctx context.Context, v *model.Review) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, q repository.ReviewQuery) ([]model.Review, error)
	RatingSummary(ctx context.Context) (int64, float64, error)
}

type UserStore interface {
	CreateWithProfile(ctx context.Context, u *model.User) error
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	StoreActivation(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeActivation(ctx context.Context, tokenHash string) (uint64, error)
}

// FileStore keeps uploaded files. Put must not return before the file is
// durably stored.
type FileStore interface {
	Put(ctx context.Context, f model.FileInput) (model.FileRef, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// EventPublisher hands events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
