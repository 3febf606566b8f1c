package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/festival-booking/internal/auth"
	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// AuthHandler serves login, logout and the caller's profile.
type AuthHandler struct {
	svc *auth.Service
	log *slog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *auth.Service, log *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// GoogleLogin handles POST /api/v1/auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.GoogleLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.svc.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)

	revoked, err := h.svc.Logout(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out", "revoked": revoked})
}

// Me handles GET /api/v1/auth/me and GET /api/v1/users/profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)

	u, err := h.svc.Profile(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateProfile handles PUT /api/v1/users/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)

	var req model.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), id.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
