package model

import (
	"time"

	"github.com/iliyamo/service-marketplace/internal/codec"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
// Completed and cancelled are final; repeating the current status is a no-op.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	return s == OrderInProgress
}

// Order is a purchase of one tier. Offer title, tier type, price, features, revisions
// and delivery time are copied from the tier at creation and never change
// afterwards, even when the tier is edited or deleted.
//
// Fields:
//
//	CustomerProfileID / CustomerUserID – buyer
//	BusinessProfileID / BusinessUserID – seller (offer owner at creation)
//	OfferDetailID                      – source tier, nil once it is deleted
type Order struct {
	ID                 uint64
	CustomerProfileID  uint64
	CustomerUserID     uint64
	BusinessProfileID  uint64
	BusinessUserID     uint64
	OfferDetailID      *uint64
	Title              string
	OfferType          Tier
	Status             OrderStatus
	Price              codec.Price
	Features           []string
	Revisions          int
	DeliveryTimeInDays int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TierSource is a tier together with the parts of its offer an order copies.
type TierSource struct {
	Detail            OfferDetail
	OfferTitle        string
	BusinessProfileID uint64
}

// SnapshotOrder builds a new in-progress order from a tier. The order takes
// the offer's title, everything else comes from the tier.
func SnapshotOrder(src TierSource, customerProfileID uint64) Order {
	d := src.Detail
	id := d.ID
	features := make([]string, len(d.Features))
	copy(features, d.Features)
	return Order{
		CustomerProfileID:  customerProfileID,
		BusinessProfileID:  src.BusinessProfileID,
		OfferDetailID:      &id,
		Title:              src.OfferTitle,
		OfferType:          d.Type,
		Status:             OrderInProgress,
		Price:              d.Price,
		Features:           features,
		Revisions:          d.Revisions,
		DeliveryTimeInDays: d.DeliveryTimeInDays,
	}
}
