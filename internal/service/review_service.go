package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/policy"
	"github.com/iliyamo/service-marketplace/internal/queue"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/validation"
)

// ReviewService enforces that reviews follow an order and that a customer
// reviews a business at most once.
type ReviewService struct {
	reviews  ReviewStore
	orders   OrderStore
	profiles ProfileStore
	events   EventPublisher
	log      zerolog.Logger
}

func NewReviewService(reviews ReviewStore, orders OrderStore, profiles ProfileStore, events EventPublisher, log zerolog.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, orders: orders, profiles: profiles, events: events, log: log}
}

type CreateReviewInput struct {
	BusinessUser *uint64 `json:"business_user" validate:"required"`
	Rating       *int    `json:"rating" validate:"required,gte=1,lte=5"`
	Description  string  `json:"description" validate:"required,max=2048"`
}

// ReviewPatch carries the editable fields and the names of every field
// the client sent.
type ReviewPatch struct {
	Rating      *int     `json:"rating" validate:"omitnil,gte=1,lte=5"`
	Description *string  `json:"description" validate:"omitnil,min=1,max=2048"`
	Fields      []string `json:"-"`
}

func (s *ReviewService) List(ctx context.Context, q repository.ReviewQuery) ([]model.Review, error) {
	if q.Ordering != "" && !repository.ValidReviewOrdering(q.Ordering) {
		return nil, invalid(nil, fieldErr("ordering", "must be one of: updated_at, -updated_at, rating, -rating"))
	}
	return s.reviews.List(ctx, q)
}

func (s *ReviewService) Get(ctx context.Context, id uint64) (model.Review, error) {
	return s.reviews.Get(ctx, id)
}

// Create stores the caller's review of a business it has ordered from.
func (s *ReviewService) Create(ctx context.Context, caller *model.Identity, in CreateReviewInput) (model.Review, error) {
	if err := policy.Reviews.Authorize(policy.Request{Method: http.MethodPost, Caller: caller}); err != nil {
		return model.Review{}, err
	}
	in.Description = strings.TrimSpace(in.Description)
	if fe := validation.Struct(in); fe != nil {
		return model.Review{}, invalid(nil, fe...)
	}
	cp, err := s.profiles.CustomerByUser(ctx, caller.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Review{}, ErrForbidden
	}
	if err != nil {
		return model.Review{}, err
	}
	bp, err := s.profiles.BusinessByUser(ctx, *in.BusinessUser)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Review{}, invalid(nil, fieldErr("business_user", "is not a business user"))
	}
	if err != nil {
		return model.Review{}, err
	}
	ok, err := s.orders.ExistsBetween(ctx, cp.ID, bp.ID)
	if err != nil {
		return model.Review{}, err
	}
	if !ok {
		return model.Review{}, ErrNoQualifyingOrder
	}

	v := model.Review{
		ReviewerProfileID: cp.ID,
		BusinessProfileID: bp.ID,
		Rating:            *in.Rating,
		Description:       in.Description,
	}
	if err := s.reviews.Create(ctx, &v); err != nil {
		return model.Review{}, err
	}
	created, err := s.reviews.Get(ctx, v.ID)
	if err != nil {
		return model.Review{}, err
	}
	publish(ctx, s.events, s.log, queue.ReviewCreatedKey, queue.ReviewCreatedEvent{
		ReviewID:       created.ID,
		ReviewerUserID: created.ReviewerUserID,
		BusinessUserID: created.BusinessUserID,
		Rating:         created.Rating,
		CreatedAt:      created.CreatedAt,
	})
	return created, nil
}

// Update changes rating and description of the caller's review.
func (s *ReviewService) Update(ctx context.Context, caller *model.Identity, id uint64, p ReviewPatch) (model.Review, error) {
	v, err := s.reviews.Get(ctx, id)
	if err != nil {
		return model.Review{}, err
	}
	if err := policy.Reviews.Authorize(policy.Request{Method: http.MethodPatch, Caller: caller, OwnerID: v.ReviewerUserID}); err != nil {
		return model.Review{}, err
	}
	if err := RejectFields(p.Fields, "rating", "description"); err != nil {
		return model.Review{}, err
	}
	if fe := validation.Struct(p); fe != nil {
		return model.Review{}, invalid(nil, fe...)
	}
	if p.Rating != nil {
		v.Rating = *p.Rating
	}
	if p.Description != nil {
		v.Description = strings.TrimSpace(*p.Description)
	}
	if err := s.reviews.Update(ctx, &v); err != nil {
		return model.Review{}, err
	}
	return v, nil
}

func (s *ReviewService) Delete(ctx context.Context, caller *model.Identity, id uint64) error {
	v, err := s.reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Reviews.Authorize(policy.Request{Method: http.MethodDelete, Caller: caller, OwnerID: v.ReviewerUserID}); err != nil {
		return err
	}
	return s.reviews.Delete(ctx, id)
}
