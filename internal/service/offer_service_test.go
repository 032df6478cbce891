package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/codec"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

var (
	seller      = &model.Identity{UserID: 1, Type: model.UserBusiness}
	otherSeller = &model.Identity{UserID: 2, Type: model.UserBusiness}
	buyer       = &model.Identity{UserID: 3, Type: model.UserCustomer}
	staff       = &model.Identity{UserID: 9, Type: model.UserCustomer, Admin: true}
)

type offerFixture struct {
	svc      *OfferService
	offers   *fakeOffers
	files    *fakeFiles
	profiles *fakeProfiles
}

func newOfferFixture() offerFixture {
	offers, files, profiles := newFakeOffers(), newFakeFiles(), newFakeProfiles()
	profiles.addBusiness(1, 11)
	profiles.addBusiness(2, 12)
	profiles.addCustomer(3, 31)
	return offerFixture{
		svc:      NewOfferService(offers, profiles, files, zerolog.Nop()),
		offers:   offers,
		files:    files,
		profiles: profiles,
	}
}

func ptr[T any](v T) *T { return &v }

func tier(t model.Tier, cents int64, days int) TierInput {
	p := codec.Price(cents)
	return TierInput{
		OfferType:          string(t),
		Title:              string(t) + " design",
		Price:              &p,
		Features:           []string{"Logo design", "Visitenkarte"},
		Revisions:          ptr(2),
		DeliveryTimeInDays: ptr(days),
	}
}

func threeTiers() []TierInput {
	return []TierInput{
		tier(model.TierBasic, 10000, 5),
		tier(model.TierStandard, 20000, 7),
		tier(model.TierPremium, 50000, 10),
	}
}

func TestCreateOfferWithThreeTiers(t *testing.T) {
	f := newOfferFixture()
	o, err := f.svc.Create(context.Background(), seller, CreateOfferInput{Title: "Grafikdesign", Details: threeTiers()})
	require.NoError(t, err)

	assert.Len(t, o.Details, 3)
	assert.Equal(t, uint64(11), o.BusinessProfileID)
	require.NotNil(t, o.MinPrice)
	assert.Equal(t, codec.Price(10000), *o.MinPrice)
	require.NotNil(t, o.MinDeliveryTime)
	assert.Equal(t, 5, *o.MinDeliveryTime)
	assert.Equal(t, []model.Tier{model.TierBasic, model.TierStandard, model.TierPremium},
		[]model.Tier{o.Details[0].Type, o.Details[1].Type, o.Details[2].Type})
}

func TestCreateOfferDuplicateTitle(t *testing.T) {
	f := newOfferFixture()
	ctx := context.Background()
	_, err := f.svc.Create(ctx, seller, CreateOfferInput{Title: "Grafikdesign", Details: threeTiers()})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, seller, CreateOfferInput{Title: "Grafikdesign", Details: threeTiers()})
	assert.ErrorIs(t, err, repository.ErrDuplicateTitle)

	// Titles are unique per business only.
	_, err = f.svc.Create(ctx, otherSeller, CreateOfferInput{Title: "Grafikdesign", Details: threeTiers()})
	assert.NoError(t, err)
}

func TestCreateOfferDuplicateTierWritesNothing(t *testing.T) {
	f := newOfferFixture()
	details := []TierInput{tier(model.TierBasic, 100, 1), tier(model.TierBasic, 200, 2)}

	_, err := f.svc.Create(context.Background(), seller, CreateOfferInput{Title: "Logo", Details: details})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, repository.ErrDuplicateTier)
	assert.Empty(t, f.offers.offers)
}

func TestCreateOfferReportsAllProblems(t *testing.T) {
	f := newOfferFixture()
	bad := tier(model.TierStandard, 100, 1)
	bad.Features = []string{"a,,b"}
	bad.Revisions = ptr(-2)
	missing := TierInput{OfferType: "gold"}

	_, err := f.svc.Create(context.Background(), seller, CreateOfferInput{Details: []TierInput{bad, missing}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := map[string]bool{}
	for _, fe := range verr.Fields {
		fields[fe.Field] = true
	}
	for _, want := range []string{
		"title",
		"details[0].features[0]",
		"details[0].revisions",
		"details[1].offer_type",
		"details[1].price",
		"details[1].delivery_time_in_days",
	} {
		assert.True(t, fields[want], "missing error for %s in %v", want, verr.Fields)
	}
}

func TestCreateOfferPermissions(t *testing.T) {
	f := newOfferFixture()
	in := CreateOfferInput{Title: "Logo", Details: threeTiers()}

	_, err := f.svc.Create(context.Background(), nil, in)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Create(context.Background(), buyer, in)
	assert.ErrorIs(t, err, ErrForbidden)

	noProfile := &model.Identity{UserID: 77, Type: model.UserBusiness}
	_, err = f.svc.Create(context.Background(), noProfile, in)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateOfferStoresImage(t *testing.T) {
	f := newOfferFixture()
	img := &model.FileInput{Filename: "logo.png", ContentType: "image/png", Data: []byte("png")}

	o, err := f.svc.Create(context.Background(), seller, CreateOfferInput{Title: "Logo", Details: threeTiers(), Image: img})
	require.NoError(t, err)
	require.NotNil(t, o.Image)
	assert.Equal(t, "/media/"+o.Image.Key, o.Image.URL)
	assert.Contains(t, f.files.stored, o.Image.Key)
}

func TestCreateOfferCleansUpImageOnFailure(t *testing.T) {
	f := newOfferFixture()
	// Lost race: the title pre-check passes but the insert hits the unique key.
	f.offers.createErr = repository.ErrDuplicateTitle

	_, err := f.svc.Create(context.Background(), seller, CreateOfferInput{Title: "Logo", Details: threeTiers(),
		Image: &model.FileInput{Filename: "a.png", Data: []byte("x")}})
	assert.ErrorIs(t, err, repository.ErrDuplicateTitle)
	assert.Empty(t, f.files.stored)
	assert.Len(t, f.files.deleted, 1)
}

func seedOffer(t *testing.T, f offerFixture, tiers ...TierInput) model.Offer {
	t.Helper()
	o, err := f.svc.Create(context.Background(), seller, CreateOfferInput{Title: "Grafikdesign", Details: tiers})
	require.NoError(t, err)
	return o
}

func TestUpdateOfferUpsertsTiers(t *testing.T) {
	f := newOfferFixture()
	o := seedOffer(t, f, tier(model.TierBasic, 10000, 5), tier(model.TierStandard, 20000, 7))
	basicID := o.Details[0].ID

	cheaper := codec.Price(5000)
	premium := codec.Price(90000)
	got, err := f.svc.Update(context.Background(), seller, o.ID, UpdateOfferInput{
		Details: []TierPatch{
			{OfferType: "basic", Price: &cheaper, Features: []string{"Nur Logo"}},
			{OfferType: "premium", Title: ptr("Premium"), Price: &premium, Revisions: ptr(-1), DeliveryTimeInDays: ptr(3)},
		},
	})
	require.NoError(t, err)

	require.Len(t, got.Details, 3)
	basic, _ := got.Detail(model.TierBasic)
	assert.Equal(t, basicID, basic.ID)
	assert.Equal(t, codec.Price(5000), basic.Price)
	assert.Equal(t, []string{"Nur Logo"}, basic.Features)
	assert.Equal(t, 2, basic.Revisions, "fields not in the patch keep their value")

	prem, ok := got.Detail(model.TierPremium)
	require.True(t, ok)
	assert.Equal(t, -1, prem.Revisions)
	assert.Equal(t, codec.Price(5000), *got.MinPrice)
	assert.Equal(t, 3, *got.MinDeliveryTime)
}

func TestUpdateOfferValidatesBeforeWriting(t *testing.T) {
	f := newOfferFixture()
	o := seedOffer(t, f, tier(model.TierBasic, 10000, 5))
	price := codec.Price(1)

	_, err := f.svc.Update(context.Background(), seller, o.ID, UpdateOfferInput{
		Details: []TierPatch{
			{OfferType: "basic", Price: &price},
			{Price: &price},
		},
	})
	assert.ErrorIs(t, err, ErrMissingTierType)
	assert.Zero(t, f.offers.updates)

	_, err = f.svc.Update(context.Background(), seller, o.ID, UpdateOfferInput{
		Details: []TierPatch{{OfferType: "premium", Price: &price}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2, "new tier without revisions and delivery time")

	_, err = f.svc.Update(context.Background(), seller, o.ID, UpdateOfferInput{
		Details: []TierPatch{{OfferType: "basic"}, {OfferType: "basic"}},
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateTier)
	assert.Zero(t, f.offers.updates)
}

func TestUpdateOfferTitle(t *testing.T) {
	f := newOfferFixture()
	ctx := context.Background()
	first := seedOffer(t, f, tier(model.TierBasic, 100, 1))
	second, err := f.svc.Create(ctx, seller, CreateOfferInput{Title: "Webdesign", Details: threeTiers()})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, seller, second.ID, UpdateOfferInput{Title: ptr(first.Title)})
	assert.ErrorIs(t, err, repository.ErrDuplicateTitle)

	got, err := f.svc.Update(ctx, seller, second.ID, UpdateOfferInput{Title: ptr("Webdesign"), Description: ptr("neu")})
	require.NoError(t, err)
	assert.Equal(t, "neu", got.Description)

	updates := f.offers.updates
	_, err = f.svc.Update(ctx, seller, second.ID, UpdateOfferInput{Title: ptr("   ")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "title", verr.Fields[0].Field)
	assert.Equal(t, updates, f.offers.updates)

	got, err = f.svc.Update(ctx, seller, second.ID, UpdateOfferInput{Title: ptr("  Webdesign Pro ")})
	require.NoError(t, err)
	assert.Equal(t, "Webdesign Pro", got.Title)
}

func TestUpdateOfferPermissions(t *testing.T) {
	f := newOfferFixture()
	o := seedOffer(t, f, tier(model.TierBasic, 100, 1))
	ctx := context.Background()

	_, err := f.svc.Update(ctx, otherSeller, o.ID, UpdateOfferInput{Description: ptr("x")})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Update(ctx, nil, o.ID, UpdateOfferInput{Description: ptr("x")})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Update(ctx, staff, o.ID, UpdateOfferInput{Description: ptr("x")})
	assert.NoError(t, err)
	_, err = f.svc.Update(ctx, seller, 999, UpdateOfferInput{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateOfferReplacesImageAfterCommit(t *testing.T) {
	f := newOfferFixture()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, seller, CreateOfferInput{Title: "Logo", Details: threeTiers(),
		Image: &model.FileInput{Filename: "old.png", Data: []byte("1")}})
	require.NoError(t, err)
	oldKey := o.Image.Key

	f.offers.updateErr = errBoom
	_, err = f.svc.Update(ctx, seller, o.ID, UpdateOfferInput{Image: &model.FileInput{Filename: "new.png", Data: []byte("2")}})
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, f.files.stored, oldKey, "old file survives a failed update")
	assert.Len(t, f.files.stored, 1)

	f.offers.updateErr = nil
	got, err := f.svc.Update(ctx, seller, o.ID, UpdateOfferInput{Image: &model.FileInput{Filename: "new.png", Data: []byte("3")}})
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, got.Image.Key)
	assert.NotContains(t, f.files.stored, oldKey)
	assert.Contains(t, f.files.stored, got.Image.Key)
}

func TestDeleteOffer(t *testing.T) {
	f := newOfferFixture()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, seller, CreateOfferInput{Title: "Logo", Details: threeTiers(),
		Image: &model.FileInput{Filename: "a.png", Data: []byte("1")}})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, otherSeller, o.ID), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, seller, o.ID))
	assert.Empty(t, f.files.stored)
	_, err = f.svc.Get(ctx, o.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListOffers(t *testing.T) {
	f := newOfferFixture()
	ctx := context.Background()
	seedOffer(t, f, tier(model.TierBasic, 100, 7))
	_, err := f.svc.Create(ctx, otherSeller, CreateOfferInput{Title: "Schnell", Details: []TierInput{tier(model.TierBasic, 100, 3)}})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, repository.OfferQuery{MaxDeliveryTime: ptr(6)})
	require.NoError(t, err)
	require.Len(t, page.Offers, 1)
	assert.Equal(t, "Schnell", page.Offers[0].Title)

	_, err = f.svc.List(ctx, repository.OfferQuery{Ordering: "title"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetDetail(t *testing.T) {
	f := newOfferFixture()
	o := seedOffer(t, f, tier(model.TierBasic, 100, 7))

	d, err := f.svc.GetDetail(context.Background(), o.Details[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierBasic, d.Type)
	_, err = f.svc.GetDetail(context.Background(), 12345)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
