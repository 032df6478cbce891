package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/handler"
)

// Marketplace bundles the resource handlers.
type Marketplace struct {
	Offers  *handler.OfferHandler
	Orders  *handler.OrderHandler
	Reviews *handler.ReviewHandler
	Stats   *handler.StatsHandler
}

// RegisterMarketplace registers offers, tiers, orders and reviews. Access
// is decided per operation by the services, so the group only carries the
// optional identity. statsCache wraps the statistics endpoints.
func RegisterMarketplace(v1 *echo.Group, m Marketplace, statsCache echo.MiddlewareFunc) {
	v1.GET("/offers", m.Offers.List)
	v1.POST("/offers", m.Offers.Create)
	v1.GET("/offers/:id", m.Offers.Get)
	v1.PATCH("/offers/:id", m.Offers.Update)
	v1.DELETE("/offers/:id", m.Offers.Delete)
	v1.GET("/offerdetails/:id", m.Offers.GetDetail)

	v1.GET("/orders", m.Orders.List)
	v1.POST("/orders", m.Orders.Create)
	v1.GET("/orders/:id", m.Orders.Get)
	v1.PATCH("/orders/:id", m.Orders.UpdateStatus)

	v1.GET("/reviews", m.Reviews.List)
	v1.POST("/reviews", m.Reviews.Create)
	v1.GET("/reviews/:id", m.Reviews.Get)
	v1.PATCH("/reviews/:id", m.Reviews.Update)
	v1.DELETE("/reviews/:id", m.Reviews.Delete)

	v1.GET("/base-info", m.Stats.BaseInfo, statsCache)
	v1.GET("/order-count/:business_user_id", m.Stats.OrderCount, statsCache)
	v1.GET("/completed-order-count/:business_user_id", m.Stats.CompletedOrderCount, statsCache)
}
