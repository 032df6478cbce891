// Package validation runs struct-tag validation and turns validator output
// into field errors clients can act on.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/service-marketplace/internal/errs"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validator exposes the shared instance, e.g. for configuration checks.
func Validator() *validator.Validate { return validate }

// Struct validates v and returns nil when it passes.
func Struct(v any) []errs.FieldError {
	return FromError(validate.Struct(v))
}

// StructWithPrefix validates v and reports field names under prefix,
// e.g. "details[2]".
func StructWithPrefix(prefix string, v any) []errs.FieldError {
	fields := Struct(v)
	if prefix == "" {
		return fields
	}
	for i := range fields {
		fields[i].Field = prefix + "." + fields[i].Field
	}
	return fields
}

// FromError converts validator errors. Other non-nil errors become a single
// entry without a field.
func FromError(err error) []errs.FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []errs.FieldError{{Field: "", Error: err.Error()}}
	}
	out := make([]errs.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, errs.FieldError{Field: fieldPath(fe), Error: message(fe)})
	}
	return out
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with", "required_without":
		return "is required"
	case "min":
		if kind(fe) == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if kind(fe) == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if kind(fe) == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		if kind(fe) == reflect.Slice {
			return fmt.Sprintf("must not contain more than %s items", fe.Param())
		}
		return fmt.Sprintf("must not exceed %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "eqfield":
		return fmt.Sprintf("must match %s", strings.ToLower(fe.Param()))
	case "url":
		return "must be a valid URL"
	}
	if fe.Param() != "" {
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
	return "failed " + fe.Tag()
}

func kind(fe validator.FieldError) reflect.Kind {
	t := fe.Type()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind()
}
