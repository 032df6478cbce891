package handler

import (
	"errors"

	"github.com/iliyamo/service-marketplace/internal/codec"
	"github.com/iliyamo/service-marketplace/internal/errs"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/service"
	"github.com/iliyamo/service-marketplace/internal/utils"
)

// validationCodes narrows VALIDATION_ERROR for ValidationError kinds.
var validationCodes = []struct {
	kind error
	code string
}{
	{service.ErrDisallowedField, "DISALLOWED_FIELD"},
	{service.ErrMissingTierType, "MISSING_TIER_TYPE"},
	{service.ErrInvalidTransition, "INVALID_TRANSITION"},
	{repository.ErrDuplicateTier, "DUPLICATE_TIER"},
}

// toHTTPError maps service and repository errors onto the API error shape.
// Errors it does not know are returned unchanged and end up as a 500.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		code, msg := "VALIDATION_ERROR", service.ErrValidation.Error()
		for _, vc := range validationCodes {
			if errors.Is(ve.Kind, vc.kind) {
				code, msg = vc.code, vc.kind.Error()
				break
			}
		}
		return errs.NewBadRequestError(msg, code, ve.Fields)
	}

	var pe *repository.PersistenceError
	switch {
	case errors.Is(err, repository.ErrDuplicateTitle):
		return errs.NewConflictError(err.Error(), "DUPLICATE_TITLE")
	case errors.Is(err, repository.ErrDuplicateTier):
		return errs.NewConflictError(err.Error(), "DUPLICATE_TIER")
	case errors.Is(err, repository.ErrDuplicateReview):
		return errs.NewConflictError(err.Error(), "DUPLICATE_REVIEW")
	case errors.Is(err, repository.ErrDuplicateUser):
		return errs.NewConflictError(err.Error(), "DUPLICATE_USER")
	case errors.Is(err, service.ErrNoQualifyingOrder):
		return errs.NewBadRequestError(err.Error(), "NO_QUALIFYING_ORDER", nil)
	case errors.Is(err, codec.ErrInvalidAmount), errors.Is(err, codec.ErrInvalidFeature):
		return errs.NewBadRequestError(err.Error(), "VALIDATION_ERROR", nil)
	case errors.Is(err, service.ErrTierNotFound):
		return errs.NewNotFoundError(err.Error(), "TIER_NOT_FOUND")
	case errors.Is(err, repository.ErrNotFound):
		return errs.NewNotFoundError("resource not found", "")
	case errors.Is(err, service.ErrInactiveAccount):
		e := errs.NewForbiddenError(err.Error())
		e.Code = "ACCOUNT_INACTIVE"
		return e
	case errors.Is(err, service.ErrForbidden):
		return errs.NewForbiddenError(err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		e := errs.NewUnauthorizedError(err.Error())
		e.Code = "INVALID_CREDENTIALS"
		return e
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, utils.ErrInvalidToken):
		return errs.NewUnauthorizedError(err.Error())
	case errors.As(err, &pe):
		e := errs.NewInternalServerError()
		e.Code = "PERSISTENCE_ERROR"
		e.Cause = pe.Op + " failed"
		return &persistenceFailure{HTTPError: e, err: err}
	}
	return err
}

// persistenceFailure renders as its HTTPError but keeps the driver error
// reachable for the error log.
type persistenceFailure struct {
	*errs.HTTPError
	err error
}

func (p *persistenceFailure) Unwrap() []error { return []error{p.HTTPError, p.err} }

func (p *persistenceFailure) Error() string { return p.err.Error() }
