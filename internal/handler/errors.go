package handler

import (
	"errors"
	"net/http"

	"labstock-api/internal/ledger"
	"labstock-api/internal/service"
	"labstock-api/pkg/apierror"
	"labstock-api/pkg/response"
)

// writeServiceError maps ledger and session errors to API errors.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrItemNotFound):
		response.Error(w, apierror.NotFound("item not found"))
	case errors.Is(err, ledger.ErrValidation):
		response.Error(w, apierror.ValidationError(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, apierror.Unauthorized("invalid email or password"))
	case errors.Is(err, service.ErrEmailTaken):
		response.Error(w, apierror.Conflict("email already registered"))
	case errors.Is(err, service.ErrSessionInvalid):
		response.Error(w, apierror.Unauthorized("invalid or expired session"))
	default:
		response.Error(w, apierror.InternalError(""))
	}
}
