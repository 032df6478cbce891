package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/service"
)

// StatsHandler serves the public platform counters.
type StatsHandler struct {
	Stats *service.StatsService
}

func NewStatsHandler(s *service.StatsService) *StatsHandler { return &StatsHandler{Stats: s} }

// BaseInfo handles GET /base-info.
func (h *StatsHandler) BaseInfo(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	info, err := h.Stats.BaseInfo(ctx)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, info)
}

// OrderCount handles GET /order-count/:business_user_id.
func (h *StatsHandler) OrderCount(c echo.Context) error {
	id, err := pathID(c, "business_user_id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Stats.OrderCount(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order_count": n})
}

// CompletedOrderCount handles GET /completed-order-count/:business_user_id.
func (h *StatsHandler) CompletedOrderCount(c echo.Context) error {
	id, err := pathID(c, "business_user_id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Stats.CompletedOrderCount(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"completed_order_count": n})
}
