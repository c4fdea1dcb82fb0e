package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tillsup/tillsup-backend/internal/access/service"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/httputil"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

// StaffHandler handles staff management endpoints
type StaffHandler struct {
	service *service.StaffService
	logger  *logger.Logger
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(svc *service.StaffService, log *logger.Logger) *StaffHandler {
	return &StaffHandler{
		service: svc,
		logger:  log,
	}
}

// List lists the staff visible to the actor
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	staff, total, err := h.service.List(r.Context(), ac, httputil.GetViewingBranch(r.Context()), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, staff, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets one staff profile
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	profile, err := h.service.Get(r.Context(), ac, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, profile)
}

// Create hires a new staff member
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())

	var req service.CreateStaffRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	profile, err := h.service.Create(r.Context(), ac, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, profile)
}

// Update updates a staff profile's name and email
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req service.UpdateStaffRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	profile, err := h.service.Update(r.Context(), ac, id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, profile)
}

type changeRoleRequest struct {
	Role     string `json:"role" validate:"required,oneof=owner manager staff accountant"`
	BranchID string `json:"branch_id,omitempty" validate:"omitempty,uuid"`
}

// ChangeRole reassigns a staff member's role and branch
func (h *StaffHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req changeRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	profile, err := h.service.ChangeRole(r.Context(), ac, id, actor.Role(req.Role), req.BranchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, profile)
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ResetPassword sets a temporary password on a staff member
func (h *StaffHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req resetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), ac, id, req.NewPassword); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Deactivate soft-deactivates a staff member
func (h *StaffHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Deactivate(r.Context(), ac, id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
