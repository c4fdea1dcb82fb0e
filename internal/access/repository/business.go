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

// BusinessRepository handles business (tenant) persistence
type BusinessRepository struct {
	db *database.DB
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *database.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// CreateTx inserts a business inside an existing transaction.
// owner_id starts null; provisioning sets it before the transaction commits,
// so no committed state ever shows a business without a valid owner.
func (r *BusinessRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, b *domain.Business) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}

	query := `
		INSERT INTO businesses (id, name, owner_id)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	return tx.QueryRowxContext(ctx, query, b.ID, b.Name, b.OwnerID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByID gets a business by ID
func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	var b domain.Business
	query := `
		SELECT id, name, owner_id, created_at, updated_at
		FROM businesses
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &b, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("business")
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// GetForUpdateTx loads a business with its row locked for the duration of
// the transaction. The repair service uses this so two concurrent repairs
// cannot race on the same owner linkage.
func (r *BusinessRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*domain.Business, error) {
	var b domain.Business
	query := `
		SELECT id, name, owner_id, created_at, updated_at
		FROM businesses
		WHERE id = $1
		FOR UPDATE
	`
	err := tx.GetContext(ctx, &b, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("business")
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// SetOwnerTx points the business at a new owner profile inside a transaction
func (r *BusinessRepository) SetOwnerTx(ctx context.Context, tx *sqlx.Tx, businessID, ownerID string) error {
	query := `
		UPDATE businesses
		SET owner_id = $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := tx.ExecContext(ctx, query, ownerID, businessID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("business")
	}
	return nil
}
