package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/errs"
)

// statusOf is the status the error handler will write for err.
func statusOf(err error, fallback int) int {
	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.As(err, &echoErr):
		return echoErr.Code
	case err != nil:
		return http.StatusInternalServerError
	}
	return fallback
}

// RequestLogger writes one "API" line per request. The status is taken
// from the returned error when there is one, since the error handler has
// not written the response yet.
func RequestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogError:     true,
		LogLatency:   true,
		LogMethod:    true,
		LogRemoteIP:  true,
		HandleError:  false,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			status := statusOf(v.Error, v.Status)
			l := GetLogger(c)

			var e *zerolog.Event
			switch {
			case status >= 500:
				e = l.Error().Err(v.Error)
			case status >= 400:
				e = l.Warn()
			default:
				e = l.Info()
			}
			if uid := GetUserID(c); uid != "" {
				e = e.Str("user_id", uid)
			}
			e.Dur("latency", v.Latency).
				Int("status", status).
				Str("uri", v.URI).
				Str("ip", v.RemoteIP).
				Str("user_agent", v.UserAgent).
				Msg("API")
			return nil
		},
	})
}

// ErrorHandler renders every error as errs.HTTPError. Unknown errors
// become a bare 500; their detail only goes to the log.
func ErrorHandler(err error, c echo.Context) {
	var (
		httpErr *errs.HTTPError
		echoErr *echo.HTTPError
		out     *errs.HTTPError
	)
	switch {
	case errors.As(err, &httpErr):
		out = httpErr
	case errors.As(err, &echoErr):
		msg, ok := echoErr.Message.(string)
		if !ok {
			msg = http.StatusText(echoErr.Code)
		}
		if echoErr.Code == http.StatusNotFound {
			msg = "route not found"
		}
		out = &errs.HTTPError{Code: errs.CodeFor(echoErr.Code), Message: msg, Status: echoErr.Code}
	default:
		out = errs.NewInternalServerError()
	}

	if out.Status >= 500 {
		GetLogger(c).Error().Err(err).Int("status", out.Status).Str("error_code", out.Code).Msg(out.Message)
	}
	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(out.Status)
		return
	}
	_ = c.JSON(out.Status, out)
}
