package handlers

import (
	"errors"
	"net/http"

	"github.com/prudhvinik1/nurseaide/internal/services"
	"go.uber.org/zap"
)

type authHandler struct {
	auth   Authenticator
	logger *zap.Logger
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	caregiver, err := h.auth.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	switch {
	case errors.Is(err, services.ErrEmailExists):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Warn("caregiver registration failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, caregiver)
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		h.logger.Error("caregiver login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	if err := h.auth.Logout(r.Context(), claims); err != nil {
		h.logger.Error("caregiver logout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
