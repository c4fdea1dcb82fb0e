package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	accessservice "github.com/tillsup/tillsup-backend/internal/access/service"
	"github.com/tillsup/tillsup-backend/internal/inventory/domain"
	"github.com/tillsup/tillsup-backend/internal/inventory/repository"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/database"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

// StockEvents receives stock change notifications.
type StockEvents interface {
	StockAdjusted(ctx context.Context, ac *actor.Context, item *domain.Item, delta int, reason string)
}

// InventoryService manages items under tenant and branch scoping.
//
// It is the concrete consumer of the access layer: every read goes through
// the scope filter and every write through the policy evaluator, which is
// exactly how any other resource service in Tillsup is expected to use them.
type InventoryService struct {
	db     *database.DB
	items  *repository.ItemRepository
	policy *accessservice.PolicyEvaluator
	scope  *accessservice.ScopeFilter
	events StockEvents
	logger *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(db *database.DB, items *repository.ItemRepository, policy *accessservice.PolicyEvaluator, scope *accessservice.ScopeFilter, events StockEvents, log *logger.Logger) *InventoryService {
	return &InventoryService{
		db:     db,
		items:  items,
		policy: policy,
		scope:  scope,
		events: events,
		logger: log.WithComponent("inventory"),
	}
}

// CreateItemRequest carries a new item.
type CreateItemRequest struct {
	SKU      string `json:"sku" validate:"required,min=1,max=64"`
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Quantity int    `json:"quantity" validate:"gte=0"`
	BranchID string `json:"branch_id,omitempty" validate:"omitempty,uuid"`
}

// AdjustStockRequest carries one quantity change with the version the caller
// last read. A stale version is rejected, never silently merged.
type AdjustStockRequest struct {
	Delta   int    `json:"delta" validate:"required"`
	Version int    `json:"version" validate:"gte=1"`
	Reason  string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ListItems lists the items visible to the actor.
func (s *InventoryService) ListItems(ctx context.Context, ac *actor.Context, viewingBranch string, page, perPage int) ([]domain.Item, int64, error) {
	if err := s.policy.Authorize(ctx, ac, accessservice.OpItemsRead, accessservice.Target{Kind: "item", BusinessID: ac.BusinessID}); err != nil {
		return nil, 0, err
	}

	scope, err := s.scope.ForActor(ac, viewingBranch)
	if err != nil {
		return nil, 0, err
	}

	return s.items.ListInScope(ctx, scope, page, perPage)
}

// GetItem returns one item if the actor can see it.
func (s *InventoryService) GetItem(ctx context.Context, ac *actor.Context, viewingBranch, id string) (*domain.Item, error) {
	if err := s.policy.Authorize(ctx, ac, accessservice.OpItemsRead, accessservice.Target{Kind: "item", BusinessID: ac.BusinessID}); err != nil {
		return nil, err
	}

	scope, err := s.scope.ForActor(ac, viewingBranch)
	if err != nil {
		return nil, err
	}

	return s.items.GetInScope(ctx, scope, id)
}

// CreateItem creates an item in the actor's business.
func (s *InventoryService) CreateItem(ctx context.Context, ac *actor.Context, req *CreateItemRequest) (*domain.Item, error) {
	target := accessservice.Target{Kind: "item", BusinessID: ac.BusinessID, BranchID: req.BranchID}
	if err := s.policy.Authorize(ctx, ac, accessservice.OpItemsWrite, target); err != nil {
		return nil, err
	}

	item := &domain.Item{
		BusinessID: ac.BusinessID,
		SKU:        req.SKU,
		Name:       req.Name,
		Quantity:   req.Quantity,
	}
	if req.BranchID != "" {
		branchID := req.BranchID
		item.BranchID = &branchID
	} else if ac.BranchScoped() {
		// Branch-scoped actors create into their own branch
		branchID := ac.BranchID
		item.BranchID = &branchID
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("actor_id", ac.ID).
		Str("item_id", item.ID).
		Str("sku", item.SKU).
		Msg("item created")

	return item, nil
}

// AdjustStock applies a quantity delta under optimistic concurrency and
// appends the audit record in the same transaction. Exactly one of two
// concurrent adjustments with the same version can succeed.
func (s *InventoryService) AdjustStock(ctx context.Context, ac *actor.Context, viewingBranch, id string, req *AdjustStockRequest) (*domain.Item, error) {
	if err := s.policy.Authorize(ctx, ac, accessservice.OpItemsAdjust, accessservice.Target{Kind: "item", BusinessID: ac.BusinessID}); err != nil {
		return nil, err
	}

	scope, err := s.scope.ForActor(ac, viewingBranch)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetInScope(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if item.Quantity+req.Delta < 0 {
		return nil, errors.BadRequest("adjustment would make the quantity negative")
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.items.AdjustTx(ctx, tx, item, req.Delta, req.Version); err != nil {
			return err
		}

		return s.items.RecordAdjustmentTx(ctx, tx, &domain.StockAdjustment{
			ItemID:     item.ID,
			BusinessID: item.BusinessID,
			BranchID:   item.BranchID,
			ActorID:    ac.ID,
			Delta:      req.Delta,
			Reason:     req.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("actor_id", ac.ID).
		Str("item_id", item.ID).
		Int("delta", req.Delta).
		Int("quantity", item.Quantity).
		Msg("stock adjusted")

	if s.events != nil {
		s.events.StockAdjusted(ctx, ac, item, req.Delta, req.Reason)
	}

	return item, nil
}
