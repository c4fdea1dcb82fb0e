package domain

import "time"

// Item is a stock-keeping unit scoped to a business and, optionally, one
// branch. A null branch means the item is shared across the whole business.
//
// Version implements per-row optimistic concurrency: every write checks the
// version it read and bumps it, so two concurrent adjustments cannot both
// apply against the same base quantity.
type Item struct {
	ID         string    `json:"id" db:"id"`
	BusinessID string    `json:"business_id" db:"business_id"`
	BranchID   *string   `json:"branch_id,omitempty" db:"branch_id"`
	SKU        string    `json:"sku" db:"sku"`
	Name       string    `json:"name" db:"name"`
	Quantity   int       `json:"quantity" db:"quantity"`
	Version    int       `json:"version" db:"version"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// StockAdjustment is the audit record of one quantity change.
type StockAdjustment struct {
	ID         string    `json:"id" db:"id"`
	ItemID     string    `json:"item_id" db:"item_id"`
	BusinessID string    `json:"business_id" db:"business_id"`
	BranchID   *string   `json:"branch_id,omitempty" db:"branch_id"`
	ActorID    string    `json:"actor_id" db:"actor_id"`
	Delta      int       `json:"delta" db:"delta"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
