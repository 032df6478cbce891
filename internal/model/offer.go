package model

import (
	"time"

	"github.com/iliyamo/service-marketplace/internal/codec"
)

// Tier names one of the three fixed pricing levels of an offer.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Tiers lists all tiers in display order.
var Tiers = []Tier{TierBasic, TierStandard, TierPremium}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierStandard, TierPremium:
		return true
	}
	return false
}

// Offer is a service listing owned by a business profile.
//
// Fields:
//
//	ID                – offers.id
//	BusinessProfileID – offers.business_profile_id
//	UserID            – user behind the business profile (creator)
//	Title             – unique per business profile
//	Image             – attached file, nil when none
//	Details           – tiers; list queries only fill ID and Type
//	MinPrice          – minimum tier price, nil without tiers
//	MinDeliveryTime   – minimum tier delivery time, nil without tiers
type Offer struct {
	ID                uint64
	BusinessProfileID uint64
	UserID            uint64
	Title             string
	Description       string
	Image             *FileRef
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Details           []OfferDetail
	MinPrice          *codec.Price
	MinDeliveryTime   *int
}

// OfferDetail is one pricing tier of an offer. Prices are held in minor units.
type OfferDetail struct {
	ID                 uint64
	OfferID            uint64
	Type               Tier
	Title              string
	Price              codec.Price
	Features           []string
	Revisions          int // -1 means unlimited
	DeliveryTimeInDays int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Detail returns the tier of the given type, if the offer has one.
func (o *Offer) Detail(t Tier) (*OfferDetail, bool) {
	for i := range o.Details {
		if o.Details[i].Type == t {
			return &o.Details[i], true
		}
	}
	return nil, false
}

// RefreshAggregates recomputes MinPrice and MinDeliveryTime from Details.
func (o *Offer) RefreshAggregates() {
	o.MinPrice = MinPrice(o.Details)
	o.MinDeliveryTime = MinDeliveryTime(o.Details)
}

// MinPrice returns the lowest tier price, or nil for no tiers.
func MinPrice(details []OfferDetail) *codec.Price {
	if len(details) == 0 {
		return nil
	}
	m := details[0].Price
	for _, d := range details[1:] {
		if d.Price < m {
			m = d.Price
		}
	}
	return &m
}

// MinDeliveryTime returns the shortest tier delivery time, or nil for no tiers.
func MinDeliveryTime(details []OfferDetail) *int {
	if len(details) == 0 {
		return nil
	}
	m := details[0].DeliveryTimeInDays
	for _, d := range details[1:] {
		if d.DeliveryTimeInDays < m {
			m = d.DeliveryTimeInDays
		}
	}
	return &m
}

// TierAction says what an offer update does with one tier entry.
type TierAction int

const (
	TierCreate TierAction = iota + 1
	TierUpdate
)

func (a TierAction) String() string {
	switch a {
	case TierCreate:
		return "create"
	case TierUpdate:
		return "update"
	}
	return "unknown"
}

// TierChange is one planned write of an offer update. Detail holds the full
// row to write; for TierUpdate its ID is the existing row.
type TierChange struct {
	Action TierAction
	Detail OfferDetail
}

// FileInput is an uploaded file before it is stored.
type FileInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// FileRef points at a stored file.
type FileRef struct {
	Key        string
	URL        string
	UploadedAt time.Time
}
