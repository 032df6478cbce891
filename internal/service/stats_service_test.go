package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

func TestBaseInfo(t *testing.T) {
	f := newReviewFixture(t)
	stats := NewStatsService(f.reviews, f.offers, f.orders, f.profiles)
	ctx := context.Background()

	info, err := stats.BaseInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, BaseInfo{ReviewCount: 0, AverageRating: "-", BusinessProfileCount: 2, OfferCount: 1}, info)

	f.reviews.reviews[1] = model.Review{ID: 1, Rating: 4}
	f.reviews.reviews[2] = model.Review{ID: 2, Rating: 5}
	f.reviews.reviews[3] = model.Review{ID: 3, Rating: 4}
	info, err = stats.BaseInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.ReviewCount)
	assert.Equal(t, "4.3", info.AverageRating)
}

func TestOrderCounts(t *testing.T) {
	f := newReviewFixture(t)
	stats := NewStatsService(f.reviews, f.offers, f.orders, f.profiles)
	ctx := context.Background()
	f.order(t)
	f.order(t)
	f.orders.orders[0].Status = model.OrderCompleted

	n, err := stats.OrderCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = stats.CompletedOrderCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = stats.OrderCount(ctx, 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
