// Package actor carries the resolved identity of the caller through a request.
//
// The Context here is resolved exactly once per request, from verified token
// claims or a single privileged profile lookup, and every subsequent
// authorization check reads it in-process. Authorization code must never
// re-query the profiles table to answer "who is calling" - that self-reference
// is what made the old row-level policies recurse.
package actor

import (
	"context"
	"fmt"
)

// Role is the coarse role an actor holds within its business.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleStaff      Role = "staff"
	RoleAccountant Role = "accountant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleStaff, RoleAccountant:
		return true
	}
	return false
}

// Level returns the role's position in the hierarchy. Higher outranks lower.
func (r Role) Level() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleManager:
		return 2
	case RoleAccountant, RoleStaff:
		return 1
	default:
		return 0
	}
}

// Context is the resolved actor context for one request.
type Context struct {
	// ID is the actor's profile ID
	ID string `json:"id"`

	// BusinessID is the tenant the actor belongs to. Never empty after bootstrap.
	BusinessID string `json:"business_id"`

	// BranchID is the actor's assigned branch. Empty only for Owners and
	// Accountants, who are branch-unscoped.
	BranchID string `json:"branch_id,omitempty"`

	// Role is the actor's role within the business
	Role Role `json:"role"`

	// Email is kept for audit logging
	Email string `json:"email,omitempty"`

	// MustChangePassword is set while the actor holds a provisional password.
	// Such actors may only authenticate, inspect themselves and change the
	// password; everything else is blocked until the change completes.
	MustChangePassword bool `json:"must_change_password,omitempty"`
}

// BranchScoped reports whether the actor is confined to a single branch.
func (c *Context) BranchScoped() bool {
	if c == nil {
		return true
	}
	return c.Role == RoleManager || c.Role == RoleStaff
}

// SameBusiness reports whether businessID belongs to the actor's tenant.
func (c *Context) SameBusiness(businessID string) bool {
	if c == nil {
		return false
	}
	return c.BusinessID != "" && c.BusinessID == businessID
}

// String returns a representation of the actor for logging
func (c *Context) String() string {
	if c == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s, business %s)", c.ID, c.Role, c.BusinessID)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the actor Context from the request context.
// Returns nil if no actor is present (e.g. system operations).
func FromContext(ctx context.Context) *Context {
	if ctx == nil {
		return nil
	}
	ac, ok := ctx.Value(actorContextKey).(*Context)
	if !ok {
		return nil
	}
	return ac
}

// WithActor returns a new context with the actor Context attached.
func WithActor(ctx context.Context, ac *Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, ac)
}

// MustFromContext retrieves the actor Context from the request context.
// Panics if no actor is present. Use only when the auth middleware is
// guaranteed to have run.
func MustFromContext(ctx context.Context) *Context {
	ac := FromContext(ctx)
	if ac == nil {
		panic("actor not found in context")
	}
	return ac
}

// System returns a Context representing the engine itself.
// Use for background repair runs and system-initiated operations.
func System() *Context {
	return &Context{
		ID:   "00000000-0000-0000-0000-000000000000",
		Role: RoleOwner,
	}
}

// IsSystem returns true if the actor represents the system.
func (c *Context) IsSystem() bool {
	if c == nil {
		return true
	}
	return c.ID == "00000000-0000-0000-0000-000000000000"
}
