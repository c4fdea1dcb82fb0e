package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/database"
	"github.com/tillsup/tillsup-backend/pkg/errors"
)

// ProfileRepository handles profile persistence.
//
// Every query below either filters on business_id or is an identity lookup
// used by the resolver's privileged path. There is no per-row policy layer
// underneath these queries, so none of them can recurse.
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, business_id, branch_id, role, name, email, password_hash,
	       must_change_password, is_active, created_at, updated_at, deactivated_at`

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	return r.create(ctx, r.db.DB, p)
}

// CreateTx creates a new profile inside an existing transaction
func (r *ProfileRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, p *domain.Profile) error {
	return r.create(ctx, tx, p)
}

func (r *ProfileRepository) create(ctx context.Context, q sqlx.QueryerContext, p *domain.Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO profiles (id, business_id, branch_id, role, name, email, password_hash, must_change_password, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	return q.QueryRowxContext(ctx, query,
		p.ID,
		p.BusinessID,
		p.BranchID,
		p.Role,
		p.Name,
		p.Email,
		p.PasswordHash,
		p.MustChangePassword,
		p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetByID gets a profile by ID. Identity lookup: no business filter, used by
// the resolver's privileged path and followed by an in-process tenant check.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE id = $1 AND deactivated_at IS NULL
	`
	err := r.db.GetContext(ctx, &p, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.IdentityNotFound()
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// GetByEmail gets a profile by email. Used during login.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var p domain.Profile
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE email = $1 AND deactivated_at IS NULL
	`
	err := r.db.GetContext(ctx, &p, query, email)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("profile")
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// GetInBusiness gets a profile by ID scoped to one business.
func (r *ProfileRepository) GetInBusiness(ctx context.Context, businessID, id string) (*domain.Profile, error) {
	var p domain.Profile
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE id = $1 AND business_id = $2 AND deactivated_at IS NULL
	`
	err := r.db.GetContext(ctx, &p, query, id, businessID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("profile")
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// ListByBusiness lists profiles of one business, optionally narrowed to a branch.
// branchID == "" lists all branches.
func (r *ProfileRepository) ListByBusiness(ctx context.Context, businessID, branchID string, page, perPage int) ([]domain.Profile, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	var profiles []domain.Profile
	var total int64

	if branchID != "" {
		countQuery := `SELECT COUNT(*) FROM profiles WHERE business_id = $1 AND branch_id = $2 AND deactivated_at IS NULL`
		if err := r.db.GetContext(ctx, &total, countQuery, businessID, branchID); err != nil {
			return nil, 0, err
		}

		query := `
			SELECT ` + profileColumns + `
			FROM profiles
			WHERE business_id = $1 AND branch_id = $2 AND deactivated_at IS NULL
			ORDER BY created_at
			LIMIT $3 OFFSET $4
		`
		if err := r.db.SelectContext(ctx, &profiles, query, businessID, branchID, perPage, offset); err != nil {
			return nil, 0, err
		}
		return profiles, total, nil
	}

	countQuery := `SELECT COUNT(*) FROM profiles WHERE business_id = $1 AND deactivated_at IS NULL`
	if err := r.db.GetContext(ctx, &total, countQuery, businessID); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE business_id = $1 AND deactivated_at IS NULL
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &profiles, query, businessID, perPage, offset); err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

// Update updates a profile's name, email and branch assignment
func (r *ProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	query := `
		UPDATE profiles
		SET name = $1, email = $2, branch_id = $3, updated_at = NOW()
		WHERE id = $4 AND business_id = $5 AND deactivated_at IS NULL
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, p.Name, p.Email, p.BranchID, p.ID, p.BusinessID).Scan(&p.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("profile")
	}
	return err
}

// UpdateRole changes a profile's role and branch assignment.
// Role and branch writes go through this path only, never a direct update,
// so the policy evaluator's mutation checks cannot be bypassed.
func (r *ProfileRepository) UpdateRole(ctx context.Context, businessID, id string, role actor.Role, branchID *string) error {
	query := `
		UPDATE profiles
		SET role = $1, branch_id = $2, updated_at = NOW()
		WHERE id = $3 AND business_id = $4 AND deactivated_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, role, branchID, id, businessID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("profile")
	}
	return nil
}

// SetPassword replaces a profile's password hash
func (r *ProfileRepository) SetPassword(ctx context.Context, businessID, id, passwordHash string, mustChange bool) error {
	query := `
		UPDATE profiles
		SET password_hash = $1, must_change_password = $2, updated_at = NOW()
		WHERE id = $3 AND business_id = $4 AND deactivated_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, passwordHash, mustChange, id, businessID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("profile")
	}
	return nil
}

// Deactivate soft-deactivates a profile. Historical sales and audit records
// keep referencing the row.
func (r *ProfileRepository) Deactivate(ctx context.Context, businessID, id string) error {
	query := `
		UPDATE profiles
		SET is_active = FALSE, deactivated_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND business_id = $2 AND deactivated_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, businessID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("profile")
	}
	return nil
}

// OwnerCandidates returns the active Owner profiles of a business.
// The repair service transitions to Valid only when exactly one exists.
func (r *ProfileRepository) OwnerCandidates(ctx context.Context, businessID string) ([]domain.Profile, error) {
	return r.ownerCandidates(ctx, r.db.DB, businessID)
}

// OwnerCandidatesTx is OwnerCandidates inside an existing transaction
func (r *ProfileRepository) OwnerCandidatesTx(ctx context.Context, tx *sqlx.Tx, businessID string) ([]domain.Profile, error) {
	return r.ownerCandidates(ctx, tx, businessID)
}

func (r *ProfileRepository) ownerCandidates(ctx context.Context, q sqlx.QueryerContext, businessID string) ([]domain.Profile, error) {
	var profiles []domain.Profile
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE business_id = $1 AND role = $2 AND deactivated_at IS NULL
		ORDER BY created_at
	`
	rows, err := q.QueryxContext(ctx, query, businessID, actor.RoleOwner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Profile
		if err := rows.StructScan(&p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
