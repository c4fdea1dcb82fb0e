package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tillsup/tillsup-backend/internal/inventory/service"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/httputil"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

// ItemHandler handles item endpoints
type ItemHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(svc *service.InventoryService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: svc,
		logger:  log,
	}
}

// List lists the items visible to the actor
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	items, total, err := h.service.ListItems(r.Context(), ac, httputil.GetViewingBranch(r.Context()), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, items, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets an item by ID
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	item, err := h.service.GetItem(r.Context(), ac, httputil.GetViewingBranch(r.Context()), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Create creates a new item
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())

	var req service.CreateItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.CreateItem(r.Context(), ac, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// Adjust applies a quantity delta under optimistic concurrency
func (h *ItemHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	ac := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req service.AdjustStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.AdjustStock(r.Context(), ac, httputil.GetViewingBranch(r.Context()), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}
