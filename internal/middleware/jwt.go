package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/errs"
	"github.com/iliyamo/service-marketplace/internal/utils"
)

// OptionalJWT resolves a Bearer access token into the caller identity.
// Requests without an Authorization header continue anonymously; a header
// carrying a bad token is rejected with 401.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				return next(c)
			}
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || raw == "" {
				return errs.NewUnauthorizedError("missing bearer token")
			}
			id, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return errs.NewUnauthorizedError("invalid or expired token")
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Identity(c) == nil {
				return errs.NewUnauthorizedError("authentication required")
			}
			return next(c)
		}
	}
}
