package handler

import (
	"net/http"

	"github.com/tillsup/tillsup-backend/internal/access/service"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/httputil"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	service *service.AuthService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		logger:  log,
	}
}

// Login authenticates a user and returns a token pair
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, pair)
}

// Logout ends the client session. Tokens are self-contained, so there is no
// server-side session row to delete; the client discards both tokens and the
// access token ages out at its expiry. Deactivation remains the revocation
// path because Refresh re-reads the profile.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac := actor.FromContext(r.Context()); ac != nil {
		h.logger.Info().
			Str("actor_id", ac.ID).
			Str("business_id", ac.BusinessID).
			Msg("logout")
	}

	httputil.NoContent(w)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword lets the authenticated actor replace their own password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ac := actor.FromContext(r.Context())
	if ac == nil {
		httputil.Error(w, errors.Authentication("no actor context"))
		return
	}

	var req changePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), ac, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Me returns the resolved actor context for the current request.
// Useful for clients to learn their role and branch after login.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac := actor.FromContext(r.Context())
	if ac == nil {
		httputil.Error(w, errors.Authentication("no actor context"))
		return
	}

	httputil.JSON(w, http.StatusOK, ac)
}
