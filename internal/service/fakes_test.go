package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeOffers struct {
	offers    map[uint64]model.Offer
	nextID    uint64
	nextTier  uint64
	createErr error
	updateErr error
	updates   int
}

func newFakeOffers() *fakeOffers {
	return &fakeOffers{offers: map[uint64]model.Offer{}, nextID: 1, nextTier: 100}
}

func (f *fakeOffers) clone(o model.Offer) model.Offer {
	details := make([]model.OfferDetail, len(o.Details))
	for i, d := range o.Details {
		d.Features = append([]string{}, d.Features...)
		details[i] = d
	}
	o.Details = details
	if o.Image != nil {
		img := *o.Image
		o.Image = &img
	}
	order := map[model.Tier]int{model.TierBasic: 0, model.TierStandard: 1, model.TierPremium: 2}
	sort.Slice(o.Details, func(i, j int) bool { return order[o.Details[i].Type] < order[o.Details[j].Type] })
	o.RefreshAggregates()
	return o
}

func (f *fakeOffers) Create(_ context.Context, o *model.Offer) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, ex := range f.offers {
		if ex.BusinessProfileID == o.BusinessProfileID && ex.Title == o.Title {
			return repository.ErrDuplicateTitle
		}
	}
	o.ID = f.nextID
	f.nextID++
	o.CreatedAt, o.UpdatedAt = testTime, testTime
	for i := range o.Details {
		o.Details[i].ID = f.nextTier
		o.Details[i].OfferID = o.ID
		f.nextTier++
	}
	f.offers[o.ID] = f.clone(*o)
	return nil
}

func (f *fakeOffers) Update(_ context.Context, o *model.Offer, changes []model.TierChange) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.offers[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	f.updates++
	stored.Title, stored.Description, stored.Image = o.Title, o.Description, o.Image
	for _, ch := range changes {
		d := ch.Detail
		d.OfferID = o.ID
		switch ch.Action {
		case model.TierCreate:
			if _, exists := stored.Detail(d.Type); exists {
				return repository.ErrDuplicateTier
			}
			d.ID = f.nextTier
			f.nextTier++
			stored.Details = append(stored.Details, d)
		case model.TierUpdate:
			ex, exists := stored.Detail(d.Type)
			if !exists || ex.ID != d.ID {
				return repository.ErrNotFound
			}
			*ex = d
		}
	}
	f.offers[o.ID] = f.clone(stored)
	return nil
}

func (f *fakeOffers) Get(_ context.Context, id uint64) (model.Offer, error) {
	o, ok := f.offers[id]
	if !ok {
		return model.Offer{}, repository.ErrNotFound
	}
	return f.clone(o), nil
}

func (f *fakeOffers) GetDetail(_ context.Context, id uint64) (model.TierSource, error) {
	for _, o := range f.offers {
		for _, d := range o.Details {
			if d.ID == id {
				d.Features = append([]string{}, d.Features...)
				return model.TierSource{Detail: d, OfferTitle: o.Title, BusinessProfileID: o.BusinessProfileID}, nil
			}
		}
	}
	return model.TierSource{}, repository.ErrNotFound
}

func (f *fakeOffers) TitleTaken(_ context.Context, bp uint64, title string, exclude uint64) (bool, error) {
	for _, o := range f.offers {
		if o.BusinessProfileID == bp && o.Title == title && o.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOffers) Delete(_ context.Context, id uint64) error {
	if _, ok := f.offers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.offers, id)
	return nil
}

func (f *fakeOffers) List(_ context.Context, q repository.OfferQuery) ([]model.Offer, int64, error) {
	out := []model.Offer{}
	for _, o := range f.offers {
		o = f.clone(o)
		if q.CreatorID != nil && o.UserID != *q.CreatorID {
			continue
		}
		if q.MaxDeliveryTime != nil && (o.MinDeliveryTime == nil || *o.MinDeliveryTime > *q.MaxDeliveryTime) {
			continue
		}
		if q.MinPrice != nil && (o.MinPrice == nil || *o.MinPrice > *q.MinPrice) {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(o.Title+" "+o.Description), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeOffers) CountOffers(context.Context) (int64, error) { return int64(len(f.offers)), nil }

type fakeProfiles struct {
	business map[uint64]model.BusinessProfile
	customer map[uint64]model.CustomerProfile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{business: map[uint64]model.BusinessProfile{}, customer: map[uint64]model.CustomerProfile{}}
}

func (f *fakeProfiles) addBusiness(userID, profileID uint64) {
	f.business[userID] = model.BusinessProfile{ID: profileID, UserID: userID}
}

func (f *fakeProfiles) addCustomer(userID, profileID uint64) {
	f.customer[userID] = model.CustomerProfile{ID: profileID, UserID: userID}
}

func (f *fakeProfiles) BusinessByUser(_ context.Context, userID uint64) (model.BusinessProfile, error) {
	bp, ok := f.business[userID]
	if !ok {
		return model.BusinessProfile{}, repository.ErrNotFound
	}
	return bp, nil
}

func (f *fakeProfiles) CustomerByUser(_ context.Context, userID uint64) (model.CustomerProfile, error) {
	cp, ok := f.customer[userID]
	if !ok {
		return model.CustomerProfile{}, repository.ErrNotFound
	}
	return cp, nil
}

func (f *fakeProfiles) CountBusinessProfiles(context.Context) (int64, error) {
	return int64(len(f.business)), nil
}

func (f *fakeProfiles) userOfBusiness(profileID uint64) uint64 {
	for uid, bp := range f.business {
		if bp.ID == profileID {
			return uid
		}
	}
	return 0
}

func (f *fakeProfiles) userOfCustomer(profileID uint64) uint64 {
	for uid, cp := range f.customer {
		if cp.ID == profileID {
			return uid
		}
	}
	return 0
}

type fakeOrders struct {
	profiles *fakeProfiles
	orders   []model.Order
}

func (f *fakeOrders) Create(_ context.Context, o *model.Order) error {
	o.ID = uint64(len(f.orders) + 1)
	o.CreatedAt, o.UpdatedAt = testTime, testTime
	f.orders = append(f.orders, *o)
	return nil
}

func (f *fakeOrders) Get(_ context.Context, id uint64) (model.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			o.CustomerUserID = f.profiles.userOfCustomer(o.CustomerProfileID)
			o.BusinessUserID = f.profiles.userOfBusiness(o.BusinessProfileID)
			return o, nil
		}
	}
	return model.Order{}, repository.ErrNotFound
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id uint64, status model.OrderStatus) error {
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeOrders) ListForUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	out := []model.Order{}
	for _, o := range f.orders {
		full, _ := f.Get(ctx, o.ID)
		if full.CustomerUserID == userID || full.BusinessUserID == userID {
			out = append(out, full)
		}
	}
	return out, nil
}

func (f *fakeOrders) ExistsBetween(_ context.Context, cp, bp uint64) (bool, error) {
	for _, o := range f.orders {
		if o.CustomerProfileID == cp && o.BusinessProfileID == bp {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrders) CountForBusiness(_ context.Context, bp uint64, status *model.OrderStatus) (int64, error) {
	var n int64
	for _, o := range f.orders {
		if o.BusinessProfileID == bp && (status == nil || o.Status == *status) {
			n++
		}
	}
	return n, nil
}

type fakeReviews struct {
	profiles *fakeProfiles
	reviews  map[uint64]model.Review
	nextID   uint64
}

func newFakeReviews(p *fakeProfiles) *fakeReviews {
	return &fakeReviews{profiles: p, reviews: map[uint64]model.Review{}, nextID: 1}
}

func (f *fakeReviews) Create(_ context.Context, v *model.Review) error {
	for _, ex := range f.reviews {
		if ex.ReviewerProfileID == v.ReviewerProfileID && ex.BusinessProfileID == v.BusinessProfileID {
			return repository.ErrDuplicateReview
		}
	}
	v.ID = f.nextID
	f.nextID++
	v.CreatedAt, v.UpdatedAt = testTime, testTime
	f.reviews[v.ID] = *v
	return nil
}

func (f *fakeReviews) Get(_ context.Context, id uint64) (model.Review, error) {
	v, ok := f.reviews[id]
	if !ok {
		return model.Review{}, repository.ErrNotFound
	}
	v.ReviewerUserID = f.profiles.userOfCustomer(v.ReviewerProfileID)
	v.BusinessUserID = f.profiles.userOfBusiness(v.BusinessProfileID)
	return v, nil
}

func (f *fakeReviews) Update(_ context.Context, v *model.Review) error {
	if _, ok := f.reviews[v.ID]; !ok {
		return repository.ErrNotFound
	}
	f.reviews[v.ID] = *v
	return nil
}

func (f *fakeReviews) Delete(_ context.Context, id uint64) error {
	if _, ok := f.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.reviews, id)
	return nil
}

func (f *fakeReviews) List(ctx context.Context, q repository.ReviewQuery) ([]model.Review, error) {
	out := []model.Review{}
	for id := range f.reviews {
		v, _ := f.Get(ctx, id)
		if q.BusinessUserID != nil && v.BusinessUserID != *q.BusinessUserID {
			continue
		}
		if q.ReviewerUserID != nil && v.ReviewerUserID != *q.ReviewerUserID {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeReviews) RatingSummary(context.Context) (int64, float64, error) {
	if len(f.reviews) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, v := range f.reviews {
		sum += v.Rating
	}
	return int64(len(f.reviews)), float64(sum) / float64(len(f.reviews)), nil
}

type fakeFiles struct {
	stored  map[string]model.FileInput
	deleted []string
	putErr  error
	n       int
}

func newFakeFiles() *fakeFiles { return &fakeFiles{stored: map[string]model.FileInput{}} }

func (f *fakeFiles) Put(_ context.Context, in model.FileInput) (model.FileRef, error) {
	if f.putErr != nil {
		return model.FileRef{}, f.putErr
	}
	f.n++
	key := "offers/" + strings.Repeat("k", f.n) + "-" + in.Filename
	f.stored[key] = in
	return model.FileRef{Key: key, UploadedAt: testTime}, nil
}

func (f *fakeFiles) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.stored, key)
	return nil
}

func (f *fakeFiles) URL(key string) string { return "/media/" + key }

type publishedEvent struct {
	key     string
	payload any
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, key string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{key, payload})
	return nil
}

type fakeUsers struct {
	users map[uint64]model.User
}

func (f *fakeUsers) CreateWithProfile(_ context.Context, u *model.User) error {
	for _, ex := range f.users {
		if ex.Username == u.Username || ex.Email == u.Email {
			return repository.ErrDuplicateUser
		}
	}
	u.ID = uint64(len(f.users) + 1)
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeTokens struct {
	users       *fakeUsers
	refresh     map[string]uint64
	activations map[string]uint64
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.refresh[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	id, ok := f.refresh[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(f.refresh, hash)
	return nil
}

func (f *fakeTokens) StoreActivation(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.activations[hash] = userID
	return nil
}

func (f *fakeTokens) ConsumeActivation(_ context.Context, hash string) (uint64, error) {
	id, ok := f.activations[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	delete(f.activations, hash)
	u := f.users.users[id]
	u.IsActive = true
	f.users.users[id] = u
	return id, nil
}

var errBoom = errors.New("boom")
