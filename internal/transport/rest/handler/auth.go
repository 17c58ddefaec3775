package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"acumen/internal/engine"
	"acumen/internal/model"
	"acumen/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service layer errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *engine.InsufficientDataError

	switch {
	case errors.As(err, &insufficient):
		writeError(w, http.StatusUnprocessableEntity, insufficient.Error())
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrSessionTerminated),
		errors.Is(err, service.ErrQuestionMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotSessionOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrInvalidScore),
		errors.Is(err, engine.ErrInvalidConfidence),
		errors.Is(err, engine.ErrInvalidParameters):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
