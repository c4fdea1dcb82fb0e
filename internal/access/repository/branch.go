package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/pkg/database"
	"github.com/tillsup/tillsup-backend/pkg/errors"
)

// BranchRepository handles branch persistence
type BranchRepository struct {
	db *database.DB
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(db *database.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

// Create creates a new branch
func (r *BranchRepository) Create(ctx context.Context, b *domain.Branch) error {
	return r.create(ctx, r.db.DB, b)
}

// CreateTx creates a new branch inside an existing transaction
func (r *BranchRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, b *domain.Branch) error {
	return r.create(ctx, tx, b)
}

func (r *BranchRepository) create(ctx context.Context, q sqlx.QueryerContext, b *domain.Branch) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}

	query := `
		INSERT INTO branches (id, business_id, name, location, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	return q.QueryRowxContext(ctx, query, b.ID, b.BusinessID, b.Name, b.Location, b.IsActive).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetInBusiness gets a branch by ID scoped to one business
func (r *BranchRepository) GetInBusiness(ctx context.Context, businessID, id string) (*domain.Branch, error) {
	var b domain.Branch
	query := `
		SELECT id, business_id, name, location, is_active, created_at, updated_at
		FROM branches
		WHERE id = $1 AND business_id = $2
	`
	err := r.db.GetContext(ctx, &b, query, id, businessID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("branch")
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// ListByBusiness lists all branches of a business
func (r *BranchRepository) ListByBusiness(ctx context.Context, businessID string) ([]domain.Branch, error) {
	var branches []domain.Branch
	query := `
		SELECT id, business_id, name, location, is_active, created_at, updated_at
		FROM branches
		WHERE business_id = $1
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &branches, query, businessID); err != nil {
		return nil, err
	}
	return branches, nil
}

// SetActive activates or deactivates a branch. Deactivation does not delete
// any data scoped to the branch.
func (r *BranchRepository) SetActive(ctx context.Context, businessID, id string, active bool) error {
	query := `
		UPDATE branches
		SET is_active = $1, updated_at = NOW()
		WHERE id = $2 AND business_id = $3
	`
	result, err := r.db.ExecContext(ctx, query, active, id, businessID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("branch")
	}
	return nil
}
