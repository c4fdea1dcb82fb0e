package testutil

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// BusinessFixture represents a seeded business row
type BusinessFixture struct {
	ID      string
	Name    string
	OwnerID *string
}

// ProfileFixture represents a seeded profile row
type ProfileFixture struct {
	ID         string
	BusinessID string
	BranchID   *string
	Role       string
	Name       string
	Email      string
	Password   string
	IsActive   bool
}

// BranchFixture represents a seeded branch row
type BranchFixture struct {
	ID         string
	BusinessID string
	Name       string
	IsActive   bool
}

// FixtureFactory seeds rows with sensible defaults. Sequence numbers keep
// unique columns (emails, SKUs) from colliding across calls.
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// SeedBusiness inserts a business. ownerID may be empty to create an
// orphaned business for repair tests.
func (f *FixtureFactory) SeedBusiness(ctx context.Context, db *sqlx.DB, name, ownerID string) (*BusinessFixture, error) {
	b := &BusinessFixture{
		ID:   uuid.New().String(),
		Name: name,
	}
	if ownerID != "" {
		b.OwnerID = &ownerID
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, owner_id) VALUES ($1, $2, $3)
	`, b.ID, b.Name, b.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to seed business: %w", err)
	}
	return b, nil
}

// SeedBranch inserts an active branch
func (f *FixtureFactory) SeedBranch(ctx context.Context, db *sqlx.DB, businessID, name string) (*BranchFixture, error) {
	b := &BranchFixture{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		Name:       name,
		IsActive:   true,
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO branches (id, business_id, name, is_active) VALUES ($1, $2, $3, TRUE)
	`, b.ID, b.BusinessID, b.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to seed branch: %w", err)
	}
	return b, nil
}

// SeedProfile inserts an active profile with a bcrypt-hashed password
func (f *FixtureFactory) SeedProfile(ctx context.Context, db *sqlx.DB, businessID, role string, branchID *string) (*ProfileFixture, error) {
	seq := f.nextSeq()
	p := &ProfileFixture{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		BranchID:   branchID,
		Role:       role,
		Name:       fmt.Sprintf("Test User %d", seq),
		Email:      fmt.Sprintf("user%d@test.tillsup.io", seq),
		Password:   "password123",
		IsActive:   true,
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO profiles (id, business_id, branch_id, role, name, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	`, p.ID, p.BusinessID, p.BranchID, p.Role, p.Name, p.Email, string(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to seed profile: %w", err)
	}
	return p, nil
}
