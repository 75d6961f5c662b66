package service

import (
	"errors"
	"net/http"

	"github.com/user-records-service/internal/httputil"
)

// HTTPStatus maps an ErrorKind to its corresponding HTTP status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes an appropriate HTTP error response for a service error.
// Validation errors become a 400 with the aggregated field error map; other
// *service.Error values use their kind/code/message. Anything else becomes a
// generic 500 so internals never leak to the caller.
func RespondError(w http.ResponseWriter, err error) {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		httputil.RespondValidationErrors(w, "Validation failed", valErr.Errors)
		return
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		httputil.RespondError(w, svcErr.Kind.HTTPStatus(), svcErr.Code, svcErr.Message)
		return
	}

	httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
