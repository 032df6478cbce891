// Package errs defines the error shape returned to API clients.
package errs

import (
	"net/http"
	"strings"
)

// FieldError is a validation problem tied to one request field.
//
//	{ "field": "details[1].price", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// HTTPError is serialized directly as the response body.
type HTTPError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Errors  []FieldError `json:"errors,omitempty"`
	// Cause is a short description of the underlying failure, set for
	// persistence errors only.
	Cause string `json:"cause,omitempty"`
}

func (e *HTTPError) Error() string { return e.Message }

// Is matches any *HTTPError so errors.Is(err, &HTTPError{}) works as a type check.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithErrors returns a copy carrying field errors.
func (e *HTTPError) WithErrors(fe []FieldError) *HTTPError {
	cp := *e
	cp.Errors = fe
	return &cp
}

// CodeFor turns a status text into an error code: "Bad Request" -> "BAD_REQUEST".
func CodeFor(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

func newError(status int, code, message string) *HTTPError {
	if code == "" {
		code = CodeFor(status)
	}
	return &HTTPError{Code: code, Message: message, Status: status}
}

func NewBadRequestError(message, code string, fields []FieldError) *HTTPError {
	e := newError(http.StatusBadRequest, code, message)
	e.Errors = fields
	return e
}

func NewUnauthorizedError(message string) *HTTPError {
	return newError(http.StatusUnauthorized, "", message)
}

func NewForbiddenError(message string) *HTTPError {
	return newError(http.StatusForbidden, "", message)
}

func NewNotFoundError(message, code string) *HTTPError {
	return newError(http.StatusNotFound, code, message)
}

func NewConflictError(message, code string) *HTTPError {
	return newError(http.StatusConflict, code, message)
}

// NewInternalServerError hides internal details behind the generic status text.
func NewInternalServerError() *HTTPError {
	return newError(http.StatusInternalServerError, "", http.StatusText(http.StatusInternalServerError))
}

func NewTooManyRequestsError(message string) *HTTPError {
	return newError(http.StatusTooManyRequests, "", message)
}
