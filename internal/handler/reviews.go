package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// ReviewHandler serves /reviews.
type ReviewHandler struct {
	Reviews *service.ReviewService
}

func NewReviewHandler(s *service.ReviewService) *ReviewHandler { return &ReviewHandler{Reviews: s} }

// List handles GET /reviews?business_user_id=&reviewer_id=&ordering=.
func (h *ReviewHandler) List(c echo.Context) error {
	q := queryParams{c: c}
	rq := repository.ReviewQuery{
		BusinessUserID: q.uintParam("business_user_id"),
		ReviewerUserID: q.uintParam("reviewer_id"),
		Ordering:       strings.TrimSpace(c.QueryParam("ordering")),
	}
	if err := q.err(); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	reviews, err := h.Reviews.List(ctx, rq)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]reviewView, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, viewReview(r))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Reviews.Get(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewReview(r))
}

// Create handles POST /reviews with business_user, rating and description.
func (h *ReviewHandler) Create(c echo.Context) error {
	var in service.CreateReviewInput
	fields, err := bindJSON(c, &in)
	if err != nil {
		return err
	}
	caller := middleware.Identity(c)
	if caller != nil {
		if err := service.RejectFields(fields, "business_user", "rating", "description"); err != nil {
			return toHTTPError(err)
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Reviews.Create(ctx, caller, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, viewReview(r))
}

// Update handles PATCH /reviews/:id. Only rating and description may be sent.
func (h *ReviewHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var p service.ReviewPatch
	if p.Fields, err = bindJSON(c, &p); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.Reviews.Update(ctx, middleware.Identity(c), id, p)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewReview(r))
}

func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Reviews.Delete(ctx, middleware.Identity(c), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
