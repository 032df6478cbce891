package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/policy"
	"github.com/iliyamo/service-marketplace/internal/queue"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/validation"
)

// OrderService creates snapshot orders and moves their status.
type OrderService struct {
	orders   OrderStore
	offers   OfferStore
	profiles ProfileStore
	events   EventPublisher
	log      zerolog.Logger
}

func NewOrderService(orders OrderStore, offers OfferStore, profiles ProfileStore, events EventPublisher, log zerolog.Logger) *OrderService {
	return &OrderService{orders: orders, offers: offers, profiles: profiles, events: events, log: log}
}

type CreateOrderInput struct {
	OfferDetailID *uint64 `json:"offer_detail_id" validate:"required"`
}

// OrderPatch carries the new status and the names of every field the
// client sent.
type OrderPatch struct {
	Status *string
	Fields []string
}

// Create copies the chosen tier into a new in-progress order.
func (s *OrderService) Create(ctx context.Context, caller *model.Identity, in CreateOrderInput) (model.Order, error) {
	if err := policy.Orders.Authorize(policy.Request{Method: http.MethodPost, Caller: caller}); err != nil {
		return model.Order{}, err
	}
	if fe := validation.Struct(in); fe != nil {
		return model.Order{}, invalid(nil, fe...)
	}
	cp, err := s.profiles.CustomerByUser(ctx, caller.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Order{}, ErrForbidden
	}
	if err != nil {
		return model.Order{}, err
	}
	src, err := s.offers.GetDetail(ctx, *in.OfferDetailID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Order{}, ErrTierNotFound
	}
	if err != nil {
		return model.Order{}, err
	}

	o := model.SnapshotOrder(src, cp.ID)
	if err := s.orders.Create(ctx, &o); err != nil {
		return model.Order{}, err
	}
	created, err := s.orders.Get(ctx, o.ID)
	if err != nil {
		return model.Order{}, err
	}
	s.publish(ctx, queue.OrderCreatedKey, queue.OrderCreatedEvent{
		OrderID:        created.ID,
		CustomerUserID: created.CustomerUserID,
		BusinessUserID: created.BusinessUserID,
		Title:          created.Title,
		OfferType:      string(created.OfferType),
		Price:          created.Price.String(),
		CreatedAt:      created.CreatedAt,
	})
	return created, nil
}

// Get returns an order the caller takes part in. Other orders do not exist
// for the caller unless they are staff.
func (s *OrderService) Get(ctx context.Context, caller *model.Identity, id uint64) (model.Order, error) {
	if caller == nil {
		return model.Order{}, ErrUnauthorized
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if !caller.IsAdmin() && o.CustomerUserID != caller.UserID && o.BusinessUserID != caller.UserID {
		return model.Order{}, repository.ErrNotFound
	}
	return o, nil
}

// List returns the caller's orders on either side. Anonymous callers get
// an empty list.
func (s *OrderService) List(ctx context.Context, caller *model.Identity) ([]model.Order, error) {
	if caller == nil {
		return []model.Order{}, nil
	}
	return s.orders.ListForUser(ctx, caller.UserID)
}

// UpdateStatus lets the seller or staff move an order out of in_progress.
// Only status may be sent.
func (s *OrderService) UpdateStatus(ctx context.Context, caller *model.Identity, id uint64, p OrderPatch) (model.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if err := policy.Orders.Authorize(policy.Request{Method: http.MethodPatch, Caller: caller, OwnerID: o.BusinessUserID}); err != nil {
		return model.Order{}, err
	}
	if err := RejectFields(p.Fields, "status"); err != nil {
		return model.Order{}, err
	}
	if p.Status == nil {
		return model.Order{}, invalid(nil, fieldErr("status", "is required"))
	}
	next := model.OrderStatus(*p.Status)
	if !next.Valid() {
		return model.Order{}, invalid(nil, fieldErr("status", "must be one of: in_progress completed cancelled"))
	}
	if !o.Status.CanTransitionTo(next) {
		return model.Order{}, invalid(ErrInvalidTransition,
			fieldErr("status", "cannot change from "+string(o.Status)+" to "+string(next)))
	}
	if next == o.Status {
		return o, nil
	}
	if err := s.orders.UpdateStatus(ctx, id, next); err != nil {
		return model.Order{}, err
	}
	return s.orders.Get(ctx, id)
}

func (s *OrderService) publish(ctx context.Context, key string, payload any) {
	publish(ctx, s.events, s.log, key, payload)
}

// publish sends an event after the write committed. The request never
// fails because of the broker.
func publish(ctx context.Context, events EventPublisher, log zerolog.Logger, key string, payload any) {
	if events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := events.Publish(ctx, key, payload); err != nil {
		log.Warn().Err(err).Str("queue", key).Msg("event publish failed")
	}
}
