package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"todo-assistant/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps err onto an HTTP status. Client errors carry their message;
// anything else is logged and reported generically.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[warn] request failed: %v", err)
		writeDetail(w, status, "Internal server error")
		return
	}
	writeDetail(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidCredentials), errors.Is(err, apperr.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrProviderError):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalid("invalid request body: " + err.Error())
	}
	return nil
}
