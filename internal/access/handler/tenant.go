package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tillsup/tillsup-backend/internal/access/service"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/httputil"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

// TenantHandler handles tenant bootstrap and ownership repair endpoints
type TenantHandler struct {
	provision *service.ProvisionService
	repair    *service.RepairService
	policy    *service.PolicyEvaluator
	logger    *logger.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(provision *service.ProvisionService, repair *service.RepairService, policy *service.PolicyEvaluator, log *logger.Logger) *TenantHandler {
	return &TenantHandler{
		provision: provision,
		repair:    repair,
		policy:    policy,
		logger:    log,
	}
}

// Provision creates a new business with its owner and default branch
func (h *TenantHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req service.ProvisionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	bundle, err := h.provision.ProvisionTenant(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, bundle)
}

type repairResponse struct {
	BusinessID string `json:"business_id"`
	State      string `json:"state"`
}

// RepairOwnership restores the business -> owner linkage when possible.
// Only actors of the business itself may trigger a repair or read its
// ownership state.
func (h *TenantHandler) RepairOwnership(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "id")

	ac := actor.FromContext(r.Context())
	if ac == nil {
		httputil.Error(w, errors.Authentication("no actor context"))
		return
	}
	if err := h.policy.AuthorizeTenant(r.Context(), ac, businessID); err != nil {
		httputil.Error(w, err)
		return
	}

	state, err := h.repair.Repair(r.Context(), businessID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, repairResponse{
		BusinessID: businessID,
		State:      string(state),
	})
}
