package service

import (
	"errors"
	"strings"

	"github.com/iliyamo/service-marketplace/internal/errs"
	"github.com/iliyamo/service-marketplace/internal/policy"
)

var (
	ErrUnauthorized = policy.ErrUnauthorized
	ErrForbidden    = policy.ErrForbidden

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrDisallowedField is the kind of a ValidationError raised for
	// fields an operation does not accept.
	ErrDisallowedField = errors.New("field is not allowed here")
	// ErrMissingTierType is the kind raised for a tier entry without offer_type.
	ErrMissingTierType = errors.New("offer_type is required for every tier")
	// ErrInvalidTransition is the kind raised for a status change out of a
	// terminal status.
	ErrInvalidTransition = errors.New("status transition not allowed")

	ErrNoQualifyingOrder = errors.New("a review requires an order between reviewer and business")
	ErrTierNotFound      = errors.New("offer detail not found")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is not activated")
)

// ValidationError carries field errors. Kind narrows the failure for
// callers that care; it may be nil.
type ValidationError struct {
	Kind   error
	Fields []errs.FieldError
}

func (e *ValidationError) Error() string {
	msg := ErrValidation.Error()
	if e.Kind != nil {
		msg = e.Kind.Error()
	}
	if len(e.Fields) == 0 {
		return msg
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Error)
			continue
		}
		parts = append(parts, f.Field+" "+f.Error)
	}
	return msg + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.Kind != nil && target == e.Kind)
}

func invalid(kind error, fields ...errs.FieldError) error {
	return &ValidationError{Kind: kind, Fields: fields}
}

// fieldErrors accumulates problems across a request.
type fieldErrors struct {
	kind   error
	fields []errs.FieldError
}

func (f *fieldErrors) add(field, msg string) {
	f.fields = append(f.fields, errs.FieldError{Field: field, Error: msg})
}

func (f *fieldErrors) addAll(fe []errs.FieldError) { f.fields = append(f.fields, fe...) }

// mark records the first specific kind seen.
func (f *fieldErrors) mark(kind error) {
	if f.kind == nil {
		f.kind = kind
	}
}

func (f *fieldErrors) err() error {
	if len(f.fields) == 0 {
		return nil
	}
	return &ValidationError{Kind: f.kind, Fields: f.fields}
}

// RejectFields fails with ErrDisallowedField when present holds a key
// outside allowed.
func RejectFields(present []string, allowed ...string) error {
	var fe fieldErrors
	for _, k := range present {
		ok := false
		for _, a := range allowed {
			if k == a {
				ok = true
				break
			}
		}
		if !ok {
			fe.add(k, "is not allowed; only "+strings.Join(allowed, ", ")+" may be changed")
		}
	}
	fe.mark(ErrDisallowedField)
	return fe.err()
}

func fieldErr(field, msg string) errs.FieldError { return errs.FieldError{Field: field, Error: msg} }
