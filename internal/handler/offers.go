package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// OfferHandler serves /offers and /offerdetails.
type OfferHandler struct {
	Offers *service.OfferService
}

func NewOfferHandler(s *service.OfferService) *OfferHandler { return &OfferHandler{Offers: s} }

// offerQuery reads the list filters. Page and page size are clamped, not
// rejected.
func offerQuery(c echo.Context) (repository.OfferQuery, error) {
	q := queryParams{c: c}
	out := repository.OfferQuery{
		CreatorID:       q.uintParam("creator_id"),
		MinPrice:        q.priceParam("min_price"),
		MaxDeliveryTime: q.intParam("max_delivery_time", 0),
		Search:          strings.TrimSpace(c.QueryParam("search")),
		Ordering:        strings.TrimSpace(c.QueryParam("ordering")),
		Page:            1,
		PageSize:        repository.DefaultPageSize,
	}
	if p := q.intParam("page", 1); p != nil {
		out.Page = *p
	}
	if ps := q.intParam("page_size", 1); ps != nil {
		out.PageSize = min(*ps, repository.MaxPageSize)
	}
	return out, q.err()
}

// pageURL is the current request URL with page replaced.
func pageURL(c echo.Context, page int) *string {
	r := c.Request()
	values := r.URL.Query()
	if page == 1 {
		values.Del("page")
	} else {
		values.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: c.Scheme(), Host: r.Host, Path: r.URL.Path, RawQuery: values.Encode()}
	s := u.String()
	return &s
}

// List handles GET /offers.
func (h *OfferHandler) List(c echo.Context) error {
	q, err := offerQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.Offers.List(ctx, q)
	if err != nil {
		return toHTTPError(err)
	}
	out := pageView{Count: page.Total, Results: make([]offerView, 0, len(page.Offers))}
	for _, o := range page.Offers {
		out.Results = append(out.Results, viewOffer(o, true))
	}
	if int64(q.Page*q.PageSize) < page.Total {
		out.Next = pageURL(c, q.Page+1)
	}
	if q.Page > 1 {
		out.Previous = pageURL(c, q.Page-1)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /offers/:id.
func (h *OfferHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Offers.Get(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewOffer(o, false))
}

// Create handles POST /offers.
func (h *OfferHandler) Create(c echo.Context) error {
	var in service.CreateOfferInput
	img, err := bindOffer(c, &in)
	if err != nil {
		return err
	}
	in.Image = img
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Offers.Create(ctx, middleware.Identity(c), in)
	if err != nil {
		return toHTTPError(err)
	}
	middleware.GetLogger(c).Info().Uint64("offer_id", o.ID).Int("tiers", len(o.Details)).Msg("offer created")
	return c.JSON(http.StatusCreated, viewOffer(o, false))
}

// Update handles PATCH /offers/:id.
func (h *OfferHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in service.UpdateOfferInput
	img, err := bindOffer(c, &in)
	if err != nil {
		return err
	}
	in.Image = img
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Offers.Update(ctx, middleware.Identity(c), id, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewOffer(o, false))
}

// Delete handles DELETE /offers/:id.
func (h *OfferHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Offers.Delete(ctx, middleware.Identity(c), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetDetail handles GET /offerdetails/:id.
func (h *OfferHandler) GetDetail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Offers.GetDetail(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewTier(d))
}
