package service

import (
	"fmt"
	"strings"

	"github.com/iliyamo/service-marketplace/internal/codec"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/validation"
)

// TierInput is one tier of a new offer.
type TierInput struct {
	OfferType          string       `json:"offer_type" validate:"required,oneof=basic standard premium"`
	Title              string       `json:"title" validate:"max=31"`
	Price              *codec.Price `json:"price" validate:"required"`
	Features           []string     `json:"features" validate:"max=20,dive,max=31"`
	Revisions          *int         `json:"revisions" validate:"required,gte=-1"`
	DeliveryTimeInDays *int         `json:"delivery_time_in_days" validate:"required,gte=0"`
}

type CreateOfferInput struct {
	Title       string           `json:"title" validate:"required,max=63"`
	Description string           `json:"description" validate:"max=1024"`
	Details     []TierInput      `json:"details" validate:"required,min=1,max=3,dive"`
	Image       *model.FileInput `json:"-"`
}

// TierPatch changes one tier of an existing offer, or adds it when the
// offer has no tier of that type yet. Absent fields keep their value.
type TierPatch struct {
	OfferType          string       `json:"offer_type"`
	Title              *string      `json:"title" validate:"omitnil,max=31"`
	Price              *codec.Price `json:"price"`
	Features           []string     `json:"features" validate:"omitempty,max=20,dive,max=31"`
	Revisions          *int         `json:"revisions" validate:"omitnil,gte=-1"`
	DeliveryTimeInDays *int         `json:"delivery_time_in_days" validate:"omitnil,gte=0"`
}

type UpdateOfferInput struct {
	Title       *string          `json:"title" validate:"omitnil,min=1,max=63"`
	Description *string          `json:"description" validate:"omitnil,max=1024"`
	Details     []TierPatch      `json:"details" validate:"omitempty,max=3,dive"`
	Image       *model.FileInput `json:"-"`
}

func tierField(i int, name string) string { return fmt.Sprintf("details[%d].%s", i, name) }

func checkFeatures(fe *fieldErrors, i int, features []string) {
	for j, f := range features {
		if err := codec.ValidateFeature(f); err != nil {
			fe.add(fmt.Sprintf("details[%d].features[%d]", i, j), "must not be empty, contain \",,\" or end with a comma")
		}
	}
}

// tierSeen flags a second entry for the same tier in one payload.
func tierSeen(fe *fieldErrors, seen map[model.Tier]bool, i int, t model.Tier) bool {
	if seen[t] {
		fe.add(tierField(i, "offer_type"), fmt.Sprintf("duplicate tier %q in request", t))
		fe.mark(repository.ErrDuplicateTier)
		return true
	}
	seen[t] = true
	return false
}

// buildCreate validates a create payload and returns the rows to insert.
// All problems are reported together.
func buildCreate(in *CreateOfferInput) ([]model.OfferDetail, error) {
	in.Title = strings.TrimSpace(in.Title)
	var fe fieldErrors
	fe.addAll(validation.Struct(in))

	seen := map[model.Tier]bool{}
	details := make([]model.OfferDetail, 0, len(in.Details))
	for i, t := range in.Details {
		tier := model.Tier(t.OfferType)
		checkFeatures(&fe, i, t.Features)
		if !tier.Valid() || tierSeen(&fe, seen, i, tier) {
			continue
		}
		if t.Price == nil || t.Revisions == nil || t.DeliveryTimeInDays == nil {
			continue // reported by the struct tags
		}
		details = append(details, model.OfferDetail{
			Type:               tier,
			Title:              strings.TrimSpace(t.Title),
			Price:              *t.Price,
			Features:           nonNil(t.Features),
			Revisions:          *t.Revisions,
			DeliveryTimeInDays: *t.DeliveryTimeInDays,
		})
	}
	if err := fe.err(); err != nil {
		return nil, err
	}
	return details, nil
}

// planTiers resolves every patch entry to a create or an update with a
// single lookup against the loaded offer, and validates all of them before
// anything is written.
func planTiers(offer *model.Offer, in *UpdateOfferInput) ([]model.TierChange, error) {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	var fe fieldErrors
	fe.addAll(validation.Struct(in))

	seen := map[model.Tier]bool{}
	changes := make([]model.TierChange, 0, len(in.Details))
	for i, p := range in.Details {
		if p.OfferType == "" {
			fe.add(tierField(i, "offer_type"), "is required")
			fe.mark(ErrMissingTierType)
			continue
		}
		tier := model.Tier(p.OfferType)
		if !tier.Valid() {
			fe.add(tierField(i, "offer_type"), "must be one of: basic standard premium")
			continue
		}
		if tierSeen(&fe, seen, i, tier) {
			continue
		}
		checkFeatures(&fe, i, p.Features)

		if existing, ok := offer.Detail(tier); ok {
			d := *existing
			applyTierPatch(&d, p)
			changes = append(changes, model.TierChange{Action: model.TierUpdate, Detail: d})
			continue
		}

		missing := false
		for _, req := range []struct {
			name   string
			absent bool
		}{
			{"price", p.Price == nil},
			{"revisions", p.Revisions == nil},
			{"delivery_time_in_days", p.DeliveryTimeInDays == nil},
		} {
			if req.absent {
				fe.add(tierField(i, req.name), "is required for a new tier")
				missing = true
			}
		}
		if missing {
			continue
		}
		d := model.OfferDetail{OfferID: offer.ID, Type: tier, Features: []string{}}
		applyTierPatch(&d, p)
		changes = append(changes, model.TierChange{Action: model.TierCreate, Detail: d})
	}
	if err := fe.err(); err != nil {
		return nil, err
	}
	return changes, nil
}

func applyTierPatch(d *model.OfferDetail, p TierPatch) {
	if p.Title != nil {
		d.Title = strings.TrimSpace(*p.Title)
	}
	if p.Price != nil {
		d.Price = *p.Price
	}
	if p.Features != nil {
		d.Features = append([]string{}, p.Features...)
	}
	if p.Revisions != nil {
		d.Revisions = *p.Revisions
	}
	if p.DeliveryTimeInDays != nil {
		d.DeliveryTimeInDays = *p.DeliveryTimeInDays
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
