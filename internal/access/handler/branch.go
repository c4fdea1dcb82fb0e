package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tillsup/tillsup-backend/internal/access/service"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/httputil"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

// BranchHandler handles branch endpoints
type BranchHandler struct {
	service *service.BranchService
	logger  *logger.Logger
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(svc *service.BranchService, log *logger.Logger) *BranchHandler {
	return &BranchHandler{
		service: svc,
		logger:  log,
	}
}

// List lists the branches of the actor's business
func (h *BranchHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())

	branches, err := h.service.List(r.Context(), ac)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, branches)
}

// Create opens a new branch
func (h *BranchHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())

	var req service.CreateBranchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	branch, err := h.service.Create(r.Context(), ac, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, branch)
}

// Deactivate marks a branch inactive
func (h *BranchHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Deactivate(r.Context(), ac, id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
