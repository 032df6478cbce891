package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// BaseInfo is the platform summary shown on the landing page.
type BaseInfo struct {
	ReviewCount          int64  `json:"review_count"`
	AverageRating        string `json:"average_rating"`
	BusinessProfileCount int64  `json:"business_profile_count"`
	OfferCount           int64  `json:"offer_count"`
}

type StatsService struct {
	reviews  ReviewStore
	offers   OfferStore
	orders   OrderStore
	profiles ProfileStore
}

func NewStatsService(reviews ReviewStore, offers OfferStore, orders OrderStore, profiles ProfileStore) *StatsService {
	return &StatsService{reviews: reviews, offers: offers, orders: orders, profiles: profiles}
}

// BaseInfo counts reviews, business profiles and offers. The average is
// rounded to one decimal, "-" without reviews.
func (s *StatsService) BaseInfo(ctx context.Context) (BaseInfo, error) {
	n, avg, err := s.reviews.RatingSummary(ctx)
	if err != nil {
		return BaseInfo{}, err
	}
	profiles, err := s.profiles.CountBusinessProfiles(ctx)
	if err != nil {
		return BaseInfo{}, err
	}
	offers, err := s.offers.CountOffers(ctx)
	if err != nil {
		return BaseInfo{}, err
	}
	info := BaseInfo{ReviewCount: n, AverageRating: "-", BusinessProfileCount: profiles, OfferCount: offers}
	if n > 0 {
		info.AverageRating = fmt.Sprintf("%.1f", avg)
	}
	return info, nil
}

// OrderCount counts every order of the business user. Users without a
// business profile are not found.
func (s *StatsService) OrderCount(ctx context.Context, businessUserID uint64) (int64, error) {
	return s.countOrders(ctx, businessUserID, nil)
}

func (s *StatsService) CompletedOrderCount(ctx context.Context, businessUserID uint64) (int64, error) {
	completed := model.OrderCompleted
	return s.countOrders(ctx, businessUserID, &completed)
}

func (s *StatsService) countOrders(ctx context.Context, businessUserID uint64, status *model.OrderStatus) (int64, error) {
	bp, err := s.profiles.BusinessByUser(ctx, businessUserID)
	if err != nil {
		return 0, err
	}
	return s.orders.CountForBusiness(ctx, bp.ID, status)
}
