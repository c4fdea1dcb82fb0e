package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	accessservice "github.com/tillsup/tillsup-backend/internal/access/service"
	"github.com/tillsup/tillsup-backend/internal/inventory/domain"
	"github.com/tillsup/tillsup-backend/pkg/database"
	"github.com/tillsup/tillsup-backend/pkg/errors"
)

// ItemRepository handles item persistence.
//
// Reads take a Scope and translate it into WHERE clauses; items with a null
// branch are business-wide and visible under every branch scope.
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, business_id, branch_id, sku, name, quantity, version, created_at, updated_at`

// Create creates a new item
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.Version = 1

	query := `
		INSERT INTO items (id, business_id, branch_id, sku, name, quantity, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		item.ID,
		item.BusinessID,
		item.BranchID,
		item.SKU,
		item.Name,
		item.Quantity,
		item.Version,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
}

// GetInScope gets one item if it is visible under the scope
func (r *ItemRepository) GetInScope(ctx context.Context, scope accessservice.Scope, id string) (*domain.Item, error) {
	var item domain.Item
	var err error

	if scope.AllBranches {
		query := `
			SELECT ` + itemColumns + `
			FROM items
			WHERE id = $1 AND business_id = $2
		`
		err = r.db.GetContext(ctx, &item, query, id, scope.BusinessID)
	} else {
		query := `
			SELECT ` + itemColumns + `
			FROM items
			WHERE id = $1 AND business_id = $2 AND (branch_id = $3 OR branch_id IS NULL)
		`
		err = r.db.GetContext(ctx, &item, query, id, scope.BusinessID, scope.BranchID)
	}

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// ListInScope lists the items visible under the scope
func (r *ItemRepository) ListInScope(ctx context.Context, scope accessservice.Scope, page, perPage int) ([]domain.Item, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	var items []domain.Item
	var total int64

	if scope.AllBranches {
		countQuery := `SELECT COUNT(*) FROM items WHERE business_id = $1`
		if err := r.db.GetContext(ctx, &total, countQuery, scope.BusinessID); err != nil {
			return nil, 0, err
		}

		query := `
			SELECT ` + itemColumns + `
			FROM items
			WHERE business_id = $1
			ORDER BY name
			LIMIT $2 OFFSET $3
		`
		if err := r.db.SelectContext(ctx, &items, query, scope.BusinessID, perPage, offset); err != nil {
			return nil, 0, err
		}
		return items, total, nil
	}

	countQuery := `SELECT COUNT(*) FROM items WHERE business_id = $1 AND (branch_id = $2 OR branch_id IS NULL)`
	if err := r.db.GetContext(ctx, &total, countQuery, scope.BusinessID, scope.BranchID); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE business_id = $1 AND (branch_id = $2 OR branch_id IS NULL)
		ORDER BY name
		LIMIT $3 OFFSET $4
	`
	if err := r.db.SelectContext(ctx, &items, query, scope.BusinessID, scope.BranchID, perPage, offset); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// AdjustTx applies a quantity delta iff the caller still holds the current
// version. Zero rows affected means another writer got there first; the
// caller gets a ConcurrencyConflict and must re-read.
func (r *ItemRepository) AdjustTx(ctx context.Context, tx *sqlx.Tx, item *domain.Item, delta, version int) error {
	query := `
		UPDATE items
		SET quantity = quantity + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND business_id = $3 AND version = $4
		RETURNING quantity, version, updated_at
	`
	err := tx.QueryRowxContext(ctx, query, delta, item.ID, item.BusinessID, version).
		Scan(&item.Quantity, &item.Version, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.ConcurrencyConflict("item " + item.ID)
	}
	return err
}

// RecordAdjustmentTx appends the audit record for one quantity change
func (r *ItemRepository) RecordAdjustmentTx(ctx context.Context, tx *sqlx.Tx, adj *domain.StockAdjustment) error {
	if adj.ID == "" {
		adj.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_adjustments (id, item_id, business_id, branch_id, actor_id, delta, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return tx.QueryRowxContext(ctx, query,
		adj.ID,
		adj.ItemID,
		adj.BusinessID,
		adj.BranchID,
		adj.ActorID,
		adj.Delta,
		adj.Reason,
	).Scan(&adj.CreatedAt)
}
