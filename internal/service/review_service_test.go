package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/queue"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

type reviewFixture struct {
	orderFixture
	reviews *fakeReviews
	svc     *ReviewService
}

func newReviewFixture(t *testing.T) reviewFixture {
	of := newOrderFixture(t)
	reviews := newFakeReviews(of.profiles)
	return reviewFixture{
		orderFixture: of,
		reviews:      reviews,
		svc:          NewReviewService(reviews, of.orders, of.profiles, of.events, zerolog.Nop()),
	}
}

func (f reviewFixture) order(t *testing.T) {
	t.Helper()
	_, err := f.orderFixture.svc.Create(context.Background(), buyer, CreateOrderInput{OfferDetailID: ptr(f.offer.Details[0].ID)})
	require.NoError(t, err)
}

func review(businessUser uint64, rating int) CreateReviewInput {
	return CreateReviewInput{BusinessUser: &businessUser, Rating: &rating, Description: "Alles super"}
}

func TestCreateReviewNeedsOrder(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, buyer, review(1, 5))
	assert.ErrorIs(t, err, ErrNoQualifyingOrder)

	f.order(t)
	v, err := f.svc.Create(ctx, buyer, review(1, 5))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), v.ReviewerUserID)
	assert.Equal(t, uint64(1), v.BusinessUserID)
	assert.Equal(t, queue.ReviewCreatedKey, f.events.events[len(f.events.events)-1].key)

	_, err = f.svc.Create(ctx, buyer, review(1, 4))
	assert.ErrorIs(t, err, repository.ErrDuplicateReview)
}

func TestCreateReviewValidation(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	f.order(t)

	for _, rating := range []int{0, 6} {
		_, err := f.svc.Create(ctx, buyer, review(1, rating))
		assert.ErrorIs(t, err, ErrValidation, "rating %d", rating)
	}
	_, err := f.svc.Create(ctx, buyer, review(3, 5))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "business_user", verr.Fields[0].Field)

	_, err = f.svc.Create(ctx, seller, review(2, 5))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateAndDeleteReview(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	f.order(t)
	v, err := f.svc.Create(ctx, buyer, review(1, 3))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, buyer, v.ID, ReviewPatch{Rating: ptr(4), Fields: []string{"rating", "business_user"}})
	assert.ErrorIs(t, err, ErrDisallowedField)

	_, err = f.svc.Update(ctx, buyer, v.ID, ReviewPatch{Rating: ptr(0), Fields: []string{"rating"}})
	assert.ErrorIs(t, err, ErrValidation)

	other := &model.Identity{UserID: 4, Type: model.UserCustomer}
	_, err = f.svc.Update(ctx, other, v.ID, ReviewPatch{Rating: ptr(1), Fields: []string{"rating"}})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.svc.Update(ctx, buyer, v.ID, ReviewPatch{Rating: ptr(5), Description: ptr(" Top "), Fields: []string{"rating", "description"}})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, "Top", got.Description)

	assert.ErrorIs(t, f.svc.Delete(ctx, seller, v.ID), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, buyer, v.ID))
	_, err = f.svc.Get(ctx, v.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListReviews(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	f.order(t)
	_, err := f.svc.Create(ctx, buyer, review(1, 3))
	require.NoError(t, err)

	list, err := f.svc.List(ctx, repository.ReviewQuery{BusinessUserID: ptr(uint64(1))})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = f.svc.List(ctx, repository.ReviewQuery{BusinessUserID: ptr(uint64(2))})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.List(ctx, repository.ReviewQuery{Ordering: "-created_at"})
	assert.ErrorIs(t, err, ErrValidation)
}
