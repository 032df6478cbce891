package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/service"
)

// OrderHandler serves /orders. There is no delete route.
type OrderHandler struct {
	Orders *service.OrderService
}

func NewOrderHandler(s *service.OrderService) *OrderHandler { return &OrderHandler{Orders: s} }

// List handles GET /orders. Anonymous callers get an empty array.
func (h *OrderHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	orders, err := h.Orders.List(ctx, middleware.Identity(c))
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, viewOrder(o))
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /orders. The body holds only offer_detail_id.
func (h *OrderHandler) Create(c echo.Context) error {
	var in service.CreateOrderInput
	fields, err := bindJSON(c, &in)
	if err != nil {
		return err
	}
	caller := middleware.Identity(c)
	if caller != nil {
		if err := service.RejectFields(fields, "offer_detail_id"); err != nil {
			return toHTTPError(err)
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.Create(ctx, caller, in)
	if err != nil {
		return toHTTPError(err)
	}
	middleware.GetLogger(c).Info().Uint64("order_id", o.ID).Uint64("business_user", o.BusinessUserID).Msg("order created")
	return c.JSON(http.StatusCreated, viewOrder(o))
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.Get(ctx, middleware.Identity(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewOrder(o))
}

// UpdateStatus handles PATCH /orders/:id.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Status *string `json:"status"`
	}
	fields, err := bindJSON(c, &body)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.UpdateStatus(ctx, middleware.Identity(c), id, service.OrderPatch{Status: body.Status, Fields: fields})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, viewOrder(o))
}
