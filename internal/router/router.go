// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/middleware"
)

// RegisterRoutes registers the unversioned operational endpoints.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc, metrics *middleware.Metrics) {
	e.GET("/healthz", health)
	e.GET("/metrics", metrics.Handler())
}

// RegisterAuth registers the account endpoints. All of them except /me
// work without an access token.
func RegisterAuth(v1 *echo.Group, a *handler.AuthHandler) {
	g := v1.Group("/auth")
	g.POST("/registration", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/activate", a.Activate)

	v1.GET("/me", a.Me, middleware.RequireAuth())
}
