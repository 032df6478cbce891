package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/policy"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// OfferService is the offer write pipeline plus the offer reads.
type OfferService struct {
	offers   OfferStore
	profiles ProfileStore
	files    FileStore
	log      zerolog.Logger
}

func NewOfferService(offers OfferStore, profiles ProfileStore, files FileStore, log zerolog.Logger) *OfferService {
	return &OfferService{offers: offers, profiles: profiles, files: files, log: log}
}

// OfferPage is one page of the offer listing.
type OfferPage struct {
	Offers []model.Offer
	Total  int64
	Query  repository.OfferQuery
}

func (s *OfferService) List(ctx context.Context, q repository.OfferQuery) (OfferPage, error) {
	if q.Ordering != "" && !repository.ValidOrdering(q.Ordering) {
		return OfferPage{}, invalid(nil, fieldErr("ordering", "must be one of: updated_at, -updated_at, min_price, -min_price"))
	}
	offers, total, err := s.offers.List(ctx, q)
	if err != nil {
		return OfferPage{}, err
	}
	for i := range offers {
		s.decorate(&offers[i])
	}
	return OfferPage{Offers: offers, Total: total, Query: q}, nil
}

func (s *OfferService) Get(ctx context.Context, id uint64) (model.Offer, error) {
	o, err := s.offers.Get(ctx, id)
	if err != nil {
		return model.Offer{}, err
	}
	s.decorate(&o)
	return o, nil
}

// GetDetail returns one tier with all its fields.
func (s *OfferService) GetDetail(ctx context.Context, id uint64) (model.OfferDetail, error) {
	src, err := s.offers.GetDetail(ctx, id)
	return src.Detail, err
}

// Create stores a new offer with its tiers for the caller's business
// profile. Nothing is written when any tier is rejected.
func (s *OfferService) Create(ctx context.Context, caller *model.Identity, in CreateOfferInput) (model.Offer, error) {
	if err := policy.Offers.Authorize(policy.Request{Method: http.MethodPost, Caller: caller}); err != nil {
		return model.Offer{}, err
	}
	details, err := buildCreate(&in)
	if err != nil {
		return model.Offer{}, err
	}
	bp, err := s.profiles.BusinessByUser(ctx, caller.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Offer{}, ErrForbidden
	}
	if err != nil {
		return model.Offer{}, err
	}
	if err := s.ensureTitleFree(ctx, bp.ID, in.Title, 0); err != nil {
		return model.Offer{}, err
	}

	offer := model.Offer{
		BusinessProfileID: bp.ID,
		UserID:            caller.UserID,
		Title:             in.Title,
		Description:       in.Description,
		Details:           details,
	}
	if in.Image != nil {
		ref, err := s.files.Put(ctx, *in.Image)
		if err != nil {
			return model.Offer{}, err
		}
		offer.Image = &ref
	}
	if err := s.offers.Create(ctx, &offer); err != nil {
		s.discard(ctx, offer.Image)
		return model.Offer{}, err
	}
	return s.Get(ctx, offer.ID)
}

// Update applies a partial update. All tier changes and the offer row are
// written in one transaction after every entry has been validated. A new
// image replaces the old one only after the write committed.
func (s *OfferService) Update(ctx context.Context, caller *model.Identity, id uint64, in UpdateOfferInput) (model.Offer, error) {
	offer, err := s.offers.Get(ctx, id)
	if err != nil {
		return model.Offer{}, err
	}
	if err := policy.Offers.Authorize(policy.Request{Method: http.MethodPatch, Caller: caller, OwnerID: offer.UserID}); err != nil {
		return model.Offer{}, err
	}
	changes, err := planTiers(&offer, &in)
	if err != nil {
		return model.Offer{}, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title != offer.Title {
			if err := s.ensureTitleFree(ctx, offer.BusinessProfileID, title, offer.ID); err != nil {
				return model.Offer{}, err
			}
		}
		offer.Title = title
	}
	if in.Description != nil {
		offer.Description = *in.Description
	}

	old := offer.Image
	if in.Image != nil {
		ref, err := s.files.Put(ctx, *in.Image)
		if err != nil {
			return model.Offer{}, err
		}
		offer.Image = &ref
	}
	if err := s.offers.Update(ctx, &offer, changes); err != nil {
		if in.Image != nil {
			s.discard(ctx, offer.Image)
		}
		return model.Offer{}, err
	}
	if in.Image != nil {
		s.discard(ctx, old)
	}

	s.log.Debug().Uint64("offer_id", offer.ID).Int("tier_changes", len(changes)).Msg("offer updated")
	return s.Get(ctx, offer.ID)
}

// Delete removes the offer and its tiers, then its image.
func (s *OfferService) Delete(ctx context.Context, caller *model.Identity, id uint64) error {
	offer, err := s.offers.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Offers.Authorize(policy.Request{Method: http.MethodDelete, Caller: caller, OwnerID: offer.UserID}); err != nil {
		return err
	}
	if err := s.offers.Delete(ctx, id); err != nil {
		return err
	}
	s.discard(ctx, offer.Image)
	return nil
}

func (s *OfferService) ensureTitleFree(ctx context.Context, businessProfileID uint64, title string, excludeID uint64) error {
	taken, err := s.offers.TitleTaken(ctx, businessProfileID, title, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return repository.ErrDuplicateTitle
	}
	return nil
}

// discard deletes a stored file that is no longer referenced. Failures
// leave an orphan behind and are only logged.
func (s *OfferService) discard(ctx context.Context, ref *model.FileRef) {
	if ref == nil || ref.Key == "" {
		return
	}
	if err := s.files.Delete(ctx, ref.Key); err != nil {
		s.log.Warn().Err(err).Str("key", ref.Key).Msg("file cleanup failed")
	}
}

func (s *OfferService) decorate(o *model.Offer) {
	if o.Image != nil && o.Image.Key != "" {
		o.Image.URL = s.files.URL(o.Image.Key)
	}
}
