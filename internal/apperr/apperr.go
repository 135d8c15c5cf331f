// Package apperr defines the error kinds every handler maps collaborator
// failures onto. Services wrap these sentinels with fmt.Errorf("%w: ...").
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized") // 401
	ErrForbidden    = errors.New("forbidden")    // 403
	ErrNotFound     = errors.New("not found")    // 404
	ErrValidation   = errors.New("validation")   // 400
	ErrConflict     = errors.New("conflict")     // 409
)

// Status maps an error to its HTTP status. Anything outside the taxonomy is
// an internal failure.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
