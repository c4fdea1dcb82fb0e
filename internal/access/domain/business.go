package domain

import (
	"time"
)

// OwnershipState classifies a business's owner linkage.
type OwnershipState string

const (
	// OwnershipValid: owner_id resolves to an active Owner profile in the
	// same business. Steady state.
	OwnershipValid OwnershipState = "valid"

	// OwnershipOrphaned: owner_id is absent.
	OwnershipOrphaned OwnershipState = "orphaned"

	// OwnershipDangling: owner_id references a profile that no longer exists
	// or is no longer an Owner of this business.
	OwnershipDangling OwnershipState = "dangling"

	// OwnershipUnrepairable: zero or multiple Owner candidates exist, so no
	// repair can be made without guessing. Requires operator action.
	OwnershipUnrepairable OwnershipState = "unrepairable"
)

// Business is a tenant. All data in the system is partitioned by business.
//
// OwnerID must always resolve to exactly one active Owner profile of the same
// business. The repair service restores that link when it is null or stale;
// it is never set to an invalid profile.
type Business struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   *string   `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Branch is a sub-unit of a business with its own scoped inventory, sales
// and staff. Deactivating a branch keeps its historical data readable.
type Branch struct {
	ID         string    `json:"id" db:"id"`
	BusinessID string    `json:"business_id" db:"business_id"`
	Name       string    `json:"name" db:"name"`
	Location   *string   `json:"location" db:"location"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// TenantBundle is the result of provisioning a new tenant: the business, its
// owner profile and the default branch, created atomically.
type TenantBundle struct {
	Business      *Business `json:"business"`
	OwnerProfile  *Profile  `json:"owner_profile"`
	DefaultBranch *Branch   `json:"default_branch"`
}
