package domain

import (
	"time"

	"github.com/tillsup/tillsup-backend/pkg/actor"
)

// Profile is an authenticated user's row: its business membership, role and
// branch assignment. Profiles are never hard-deleted while referenced by
// historical sales or audit records; they are deactivated instead.
type Profile struct {
	ID                 string     `json:"id" db:"id"`
	BusinessID         string     `json:"business_id" db:"business_id"`
	BranchID           *string    `json:"branch_id" db:"branch_id"`
	Role               actor.Role `json:"role" db:"role"`
	Name               string     `json:"name" db:"name"`
	Email              string     `json:"email" db:"email"`
	PasswordHash       string     `json:"-" db:"password_hash"`
	MustChangePassword bool       `json:"must_change_password" db:"must_change_password"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	DeactivatedAt      *time.Time `json:"-" db:"deactivated_at"`
}

// Context builds the per-request actor context from the profile row.
func (p *Profile) Context() *actor.Context {
	branchID := ""
	if p.BranchID != nil {
		branchID = *p.BranchID
	}
	return &actor.Context{
		ID:                 p.ID,
		BusinessID:         p.BusinessID,
		BranchID:           branchID,
		Role:               p.Role,
		Email:              p.Email,
		MustChangePassword: p.MustChangePassword,
	}
}
