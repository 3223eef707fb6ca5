package httpx

import (
	"errors"
	"net/http"

	"github.com/notiongate/notiongate/internal/shared"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to a failed envelope. Only the generic
// message reaches the client; callers log the underlying error.
func RespondError(w http.ResponseWriter, err error, fallback string) {
	status := StatusFor(err)
	message := fallback
	switch status {
	case http.StatusBadRequest:
		message = "Invalid request"
	case http.StatusUnauthorized:
		message = "Unauthorized"
	case http.StatusNotFound:
		message = "Not found"
	case http.StatusConflict:
		message = "Already exists"
	}
	if message == "" {
		message = "Server error"
	}
	Fail(w, status, message)
}
