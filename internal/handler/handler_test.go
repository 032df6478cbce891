package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/codec"
	"github.com/iliyamo/service-marketplace/internal/errs"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/service"
)

var stamp = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Fakes embed the store interfaces and override what a test touches.

type offerStore struct {
	service.OfferStore
	offers []model.Offer
	total  int64
	got    repository.OfferQuery
}

func (s *offerStore) List(_ context.Context, q repository.OfferQuery) ([]model.Offer, int64, error) {
	s.got = q
	return s.offers, s.total, nil
}

func (s *offerStore) GetDetail(_ context.Context, id uint64) (model.TierSource, error) {
	for _, o := range s.offers {
		for _, d := range o.Details {
			if d.ID == id {
				return model.TierSource{Detail: d, OfferTitle: o.Title, BusinessProfileID: o.BusinessProfileID}, nil
			}
		}
	}
	return model.TierSource{}, repository.ErrNotFound
}

type urlFiles struct{ service.FileStore }

func (urlFiles) URL(key string) string { return "/media/" + key }

type orderStore struct {
	service.OrderStore
	order model.Order
}

func (s *orderStore) Get(_ context.Context, id uint64) (model.Order, error) {
	if id != s.order.ID {
		return model.Order{}, repository.ErrNotFound
	}
	return s.order, nil
}

type noProfiles struct{ service.ProfileStore }

func (noProfiles) BusinessByUser(context.Context, uint64) (model.BusinessProfile, error) {
	return model.BusinessProfile{}, repository.ErrNotFound
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	return e
}

func as(id *model.Identity) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id != nil {
				middleware.SetIdentity(c, id)
			}
			return next(c)
		}
	}
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.HTTPError {
	t.Helper()
	var out errs.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &service.ValidationError{Fields: []errs.FieldError{{Field: "title", Error: "is required"}}}, 400, "VALIDATION_ERROR"},
		{"disallowed", service.RejectFields([]string{"price"}, "status"), 400, "DISALLOWED_FIELD"},
		{"tier repeated in payload", &service.ValidationError{Kind: repository.ErrDuplicateTier}, 400, "DUPLICATE_TIER"},
		{"missing tier type", &service.ValidationError{Kind: service.ErrMissingTierType}, 400, "MISSING_TIER_TYPE"},
		{"duplicate title", repository.ErrDuplicateTitle, 409, "DUPLICATE_TITLE"},
		{"duplicate tier", repository.ErrDuplicateTier, 409, "DUPLICATE_TIER"},
		{"duplicate review", repository.ErrDuplicateReview, 409, "DUPLICATE_REVIEW"},
		{"no order", service.ErrNoQualifyingOrder, 400, "NO_QUALIFYING_ORDER"},
		{"tier missing", service.ErrTierNotFound, 404, "TIER_NOT_FOUND"},
		{"not found", repository.ErrNotFound, 404, "NOT_FOUND"},
		{"forbidden", service.ErrForbidden, 403, "FORBIDDEN"},
		{"inactive", service.ErrInactiveAccount, 403, "ACCOUNT_INACTIVE"},
		{"anonymous", service.ErrUnauthorized, 401, "UNAUTHORIZED"},
		{"credentials", service.ErrInvalidCredentials, 401, "INVALID_CREDENTIALS"},
		{"persistence", &repository.PersistenceError{Op: "insert offer", Err: errors.New("deadlock")}, 500, "PERSISTENCE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var he *errs.HTTPError
			require.True(t, errors.As(toHTTPError(tt.err), &he))
			assert.Equal(t, tt.status, he.Status)
			assert.Equal(t, tt.code, he.Code)
		})
	}

	plain := errors.New("unexpected")
	assert.Same(t, plain, toHTTPError(plain))
	assert.NoError(t, toHTTPError(nil))
}

func TestPersistenceErrorRendersCause(t *testing.T) {
	e := newEcho()
	e.GET("/x", func(echo.Context) error {
		return toHTTPError(fmt.Errorf("wrapped: %w", &repository.PersistenceError{Op: "insert offer", Err: errors.New("secret dsn")}))
	})
	rec := serve(e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	out := decodeError(t, rec)
	assert.Equal(t, "insert offer failed", out.Cause)
	assert.NotContains(t, rec.Body.String(), "secret dsn")
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Status *string `json:"status"`
		Count  int     `json:"count"`
	}
	keys, err := decodeJSON([]byte(`{"status":"completed","price":1}`), &body)
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "status"}, keys)
	assert.Equal(t, "completed", *body.Status)

	keys, err = decodeJSON(nil, &body)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = decodeJSON([]byte(`[1]`), &body)
	assert.Error(t, err)

	_, err = decodeJSON([]byte(`{"count":"x"}`), &body)
	var he *errs.HTTPError
	require.True(t, errors.As(err, &he))
	require.Len(t, he.Errors, 1)
	assert.Equal(t, "count", he.Errors[0].Field)

	var tier service.TierInput
	_, err = decodeJSON([]byte(`{"price":"abc"}`), &tier)
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "price", he.Errors[0].Field)
}

func TestOfferListPaginatesAndLinksTiers(t *testing.T) {
	offer := model.Offer{
		ID: 7, UserID: 1, Title: "Logo", CreatedAt: stamp, UpdatedAt: stamp,
		Image:   &model.FileRef{Key: "offers/logo.png"},
		Details: []model.OfferDetail{{ID: 21, Type: model.TierBasic}, {ID: 22, Type: model.TierPremium}},
	}
	offer.MinPrice = ptrPrice(10000)
	store := &offerStore{offers: []model.Offer{offer}, total: 13}
	h := NewOfferHandler(service.NewOfferService(store, noProfiles{}, urlFiles{}, zerolog.Nop()))

	e := newEcho()
	e.GET("/v1/offers/", h.List)
	rec := serve(e, http.MethodGet, "/v1/offers/?page=2&page_size=6&min_price=19.99&creator_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Count    int64   `json:"count"`
		Next     *string `json:"next"`
		Previous *string `json:"previous"`
		Results  []struct {
			Image   *string    `json:"image"`
			Details []tierLink `json:"details"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(13), out.Count)
	require.NotNil(t, out.Next)
	assert.Contains(t, *out.Next, "page=3")
	require.NotNil(t, out.Previous)
	assert.NotContains(t, *out.Previous, "page=")
	require.Len(t, out.Results, 1)
	assert.Equal(t, []tierLink{{ID: 21, URL: "/v1/offerdetails/21/"}, {ID: 22, URL: "/v1/offerdetails/22/"}}, out.Results[0].Details)
	require.NotNil(t, out.Results[0].Image)
	assert.Equal(t, "/media/offers/logo.png", *out.Results[0].Image)
	assert.Contains(t, rec.Body.String(), `"min_price":100.00`)

	require.NotNil(t, store.got.MinPrice)
	assert.Equal(t, codec.Price(1999), *store.got.MinPrice)
	assert.Equal(t, uint64(1), *store.got.CreatorID)
}

func TestTierLinkResolves(t *testing.T) {
	store := &offerStore{offers: []model.Offer{{
		ID: 7, Details: []model.OfferDetail{{ID: 21, OfferID: 7, Type: model.TierBasic, Title: "Basic"}},
	}}}
	h := NewOfferHandler(service.NewOfferService(store, noProfiles{}, urlFiles{}, zerolog.Nop()))

	e := newEcho()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Group(APIPrefix).GET("/offerdetails/:id", h.GetDetail)

	rec := serve(e, http.MethodGet, tierURL(21), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got tierView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(21), got.ID)
	assert.Equal(t, model.TierBasic, got.OfferType)
}

func TestOfferListQueryErrors(t *testing.T) {
	store := &offerStore{}
	h := NewOfferHandler(service.NewOfferService(store, noProfiles{}, urlFiles{}, zerolog.Nop()))
	e := newEcho()
	e.GET("/v1/offers/", h.List)

	rec := serve(e, http.MethodGet, "/v1/offers/?creator_id=abc&max_delivery_time=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decodeError(t, rec).Errors, 2)

	rec = serve(e, http.MethodGet, "/v1/offers/?ordering=title", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, http.MethodGet, "/v1/offers/?page_size=500", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repository.MaxPageSize, store.got.PageSize)
	assert.JSONEq(t, `{"count":0,"next":null,"previous":null,"results":[]}`, rec.Body.String())
}

func TestOrderPatchRejectsOtherFields(t *testing.T) {
	orders := &orderStore{order: model.Order{ID: 5, BusinessUserID: 1, CustomerUserID: 3, Status: model.OrderInProgress}}
	h := NewOrderHandler(service.NewOrderService(orders, &offerStore{}, noProfiles{}, service.NopPublisher{}, zerolog.Nop()))

	e := newEcho()
	e.PATCH("/v1/orders/:id/", h.UpdateStatus, as(&model.Identity{UserID: 1, Type: model.UserBusiness}))

	rec := serve(e, http.MethodPatch, "/v1/orders/5/", `{"status":"completed","price":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	out := decodeError(t, rec)
	assert.Equal(t, "DISALLOWED_FIELD", out.Code)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "price", out.Errors[0].Field)

	rec = serve(e, http.MethodPatch, "/v1/orders/99/", `{"status":"completed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(e, http.MethodPatch, "/v1/orders/abc/", `{"status":"completed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderListAnonymousIsEmpty(t *testing.T) {
	h := NewOrderHandler(service.NewOrderService(&orderStore{}, &offerStore{}, noProfiles{}, service.NopPublisher{}, zerolog.Nop()))
	e := newEcho()
	e.GET("/v1/orders/", h.List)

	rec := serve(e, http.MethodGet, "/v1/orders/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestOrderCountUnknownBusiness(t *testing.T) {
	h := NewStatsHandler(service.NewStatsService(nil, nil, &orderStore{}, noProfiles{}))
	e := newEcho()
	e.GET("/v1/order-count/:business_user_id/", h.OrderCount)

	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/v1/order-count/4/", "").Code)
}

func multipartRequest(t *testing.T, payload string, filename string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("payload", payload))
	if file != nil {
		fw, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/v1/offers/", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestBindOfferMultipart(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	e := echo.New()

	c := e.NewContext(multipartRequest(t, `{"title":"Logo design"}`, "logo.png", png), httptest.NewRecorder())
	var in service.CreateOfferInput
	img, err := bindOffer(c, &in)
	require.NoError(t, err)
	assert.Equal(t, "Logo design", in.Title)
	require.NotNil(t, img)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "logo.png", img.Filename)

	c = e.NewContext(multipartRequest(t, `{"title":"x"}`, "", nil), httptest.NewRecorder())
	img, err = bindOffer(c, &in)
	require.NoError(t, err)
	assert.Nil(t, img)

	c = e.NewContext(multipartRequest(t, `{"title":"x"}`, "notes.txt", []byte("plain text")), httptest.NewRecorder())
	_, err = bindOffer(c, &in)
	var he *errs.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "image", he.Errors[0].Field)
}

func TestViewOfferFullTiers(t *testing.T) {
	o := model.Offer{ID: 1, Details: []model.OfferDetail{{ID: 3, OfferID: 1, Type: model.TierBasic, Price: 1999}}}
	v := viewOffer(o, false)
	tiers, ok := v.Details.([]tierView)
	require.True(t, ok)
	require.Len(t, tiers, 1)
	assert.Equal(t, []string{}, tiers[0].Features)
	assert.Nil(t, v.Image)
}

func TestHealth(t *testing.T) {
	e := newEcho()
	e.GET("/ok", Health(pinger{}))
	e.GET("/down", Health(pinger{err: errors.New("refused")}))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ok", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(e, http.MethodGet, "/down", "").Code)
}

func ptrPrice(cents int64) *codec.Price {
	p := codec.Price(cents)
	return &p
}
