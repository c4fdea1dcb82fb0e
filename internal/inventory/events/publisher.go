package events

import (
	"context"

	"github.com/tillsup/tillsup-backend/internal/inventory/domain"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/logger"
	"github.com/tillsup/tillsup-backend/pkg/messaging"
)

// Publisher emits inventory events to the inventory.events exchange.
// Best effort, same as the access publisher: the row is the source of truth.
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new inventory event publisher
func NewPublisher(publisher *messaging.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{
		publisher: publisher,
		logger:    log.WithComponent("inventory-events"),
	}
}

// StockAdjusted publishes one applied quantity change.
func (p *Publisher) StockAdjusted(ctx context.Context, ac *actor.Context, item *domain.Item, delta int, reason string) {
	if p.publisher == nil {
		return
	}

	branchID := ""
	if item.BranchID != nil {
		branchID = *item.BranchID
	}

	err := p.publisher.Publish(ctx, messaging.EventStockAdjusted, messaging.StockAdjustedEvent{
		ItemID:     item.ID,
		BusinessID: item.BusinessID,
		BranchID:   branchID,
		ActorID:    ac.ID,
		Delta:      delta,
		Quantity:   item.Quantity,
		Reason:     reason,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish stock adjustment")
	}
}
