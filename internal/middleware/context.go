// Package middleware holds the echo middleware of the API: caller identity,
// request ids, request logging, the error funnel, metrics, rate limiting
// and response caching.
package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/model"
)

const (
	identityKey  = "identity"
	loggerKey    = "logger"
	RequestIDKey = "request_id"
)

// SetIdentity stores the authenticated caller.
func SetIdentity(c echo.Context, id *model.Identity) { c.Set(identityKey, id) }

// Identity returns the caller, or nil for anonymous requests.
func Identity(c echo.Context) *model.Identity {
	id, _ := c.Get(identityKey).(*model.Identity)
	return id
}

// GetUserID returns the caller's id as a string, "" when anonymous.
func GetUserID(c echo.Context) string {
	if id := Identity(c); id != nil {
		return strconv.FormatUint(id.UserID, 10)
	}
	return ""
}

// GetRequestID returns the id set by RequestID, "" before it ran.
func GetRequestID(c echo.Context) string {
	id, _ := c.Get(RequestIDKey).(string)
	return id
}

// ContextLogger stores a request-scoped child of base on the context.
func ContextLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := base.With().
				Str("request_id", GetRequestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Logger()
			c.Set(loggerKey, &l)
			c.SetRequest(c.Request().WithContext(l.WithContext(c.Request().Context())))
			return next(c)
		}
	}
}

// GetLogger returns the request logger, or a no-op logger outside a request.
func GetLogger(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get(loggerKey).(*zerolog.Logger); ok {
		return l
	}
	nop := zerolog.Nop()
	return &nop
}
