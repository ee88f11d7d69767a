package web

import (
	"errors"
	"net/http"

	"todo-assistant/internal/apperr"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	account, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         account.ID,
		"email":      account.Email,
		"created_at": account.CreatedAt,
	})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, account, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, apperr.ErrInvalidCredentials) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user": map[string]any{
			"id":    account.ID,
			"email": account.Email,
		},
	})
}

// logoutHandler exists for clients; tokens are stateless and simply expire.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}
