package service

import (
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/errors"
)

// Scope narrows a resource query to what the actor may see. Repositories
// translate it into WHERE clauses; it never widens a query.
type Scope struct {
	// BusinessID is always set: tenant isolation applies to every query.
	BusinessID string

	// BranchID restricts the query to one branch when AllBranches is false.
	BranchID string

	// AllBranches is true for Owners without a viewing-branch selection and
	// for Accountants (read-only, business-wide).
	AllBranches bool
}

// ScopeFilter computes the visible row set for an actor.
type ScopeFilter struct{}

// NewScopeFilter creates a new scope filter
func NewScopeFilter() *ScopeFilter {
	return &ScopeFilter{}
}

// ForActor returns the scope for a resource query.
//
// viewingBranch is an Owner's explicit per-request branch selection (empty
// for the unfiltered all-branches view). It is request state passed in by
// the caller, never a process-wide setting. Non-owners cannot select a
// branch: their assignment is the only branch they see.
func (f *ScopeFilter) ForActor(ac *actor.Context, viewingBranch string) (Scope, error) {
	if ac == nil {
		return Scope{}, errors.Authentication("no actor context")
	}
	if ac.BusinessID == "" {
		return Scope{}, errors.IdentityNotFound()
	}

	switch ac.Role {
	case actor.RoleOwner:
		if viewingBranch != "" {
			return Scope{BusinessID: ac.BusinessID, BranchID: viewingBranch}, nil
		}
		return Scope{BusinessID: ac.BusinessID, AllBranches: true}, nil

	case actor.RoleAccountant:
		if viewingBranch != "" {
			return Scope{}, errors.BranchScope("accountants cannot switch branches")
		}
		return Scope{BusinessID: ac.BusinessID, AllBranches: true}, nil

	default:
		if viewingBranch != "" && viewingBranch != ac.BranchID {
			return Scope{}, errors.BranchScope("your role cannot switch branches")
		}
		if ac.BranchID == "" {
			return Scope{}, errors.BranchScope("no branch assigned")
		}
		return Scope{BusinessID: ac.BusinessID, BranchID: ac.BranchID}, nil
	}
}

// Visible reports whether a single already-loaded resource is in scope.
// Resources with no branch are tenant-wide and visible to every actor in
// the tenant.
func (f *ScopeFilter) Visible(ac *actor.Context, resourceBusinessID, resourceBranchID string) bool {
	if ac == nil || !ac.SameBusiness(resourceBusinessID) {
		return false
	}
	if resourceBranchID == "" {
		return true
	}
	if !ac.BranchScoped() {
		return true
	}
	return resourceBranchID == ac.BranchID
}
