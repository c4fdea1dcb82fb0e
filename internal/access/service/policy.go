package service

import (
	"context"

	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
	"github.com/tillsup/tillsup-backend/pkg/permissions"
)

// Operation names understood by the evaluator
const (
	OpStaffRead     = "staff.read"
	OpStaffCreate   = "staff.create"
	OpStaffUpdate   = "staff.update"
	OpStaffDelete   = "staff.delete"
	OpStaffRole     = "staff.role.change"
	OpPasswordReset = "staff.password.reset"
	OpBranchRead    = "branches.read"
	OpBranchCreate  = "branches.create"
	OpBranchDisable = "branches.deactivate"
	OpItemsRead     = "items.read"
	OpItemsWrite    = "items.write"
	OpItemsAdjust   = "items.adjust"
)

// Target identifies what an operation acts on. Zero fields mean
// "not applicable": a Target with no ProfileID is not a staff operation,
// a Target with no BranchID is tenant-wide.
type Target struct {
	Kind       string
	BusinessID string
	BranchID   string

	// For staff operations: the profile being acted on and the role being
	// assigned to it (created as, or promoted/demoted to).
	ProfileID   string
	ProfileRole actor.Role
	AssignRole  actor.Role
}

// SecurityLogger records denied cross-tenant attempts. Implemented by the
// access event publisher; nil disables emission.
type SecurityLogger interface {
	TenantMismatch(ctx context.Context, ac *actor.Context, targetBusinessID, operation string)
}

// PolicyEvaluator decides allow/deny for (actor, operation, target).
//
// Decisions are pure functions of the already-resolved actor context - the
// evaluator never reads the profiles table. That keeps every check O(1) and
// makes the recursive-policy failure mode structurally impossible.
type PolicyEvaluator struct {
	security SecurityLogger
	logger   *logger.Logger
}

// NewPolicyEvaluator creates a new policy evaluator
func NewPolicyEvaluator(security SecurityLogger, log *logger.Logger) *PolicyEvaluator {
	return &PolicyEvaluator{
		security: security,
		logger:   log.WithComponent("policy"),
	}
}

// AuthorizeTenant enforces tenant isolation: allow iff the resource belongs
// to the actor's business. Cross-tenant attempts are denied for every role
// and logged as potential security events.
func (e *PolicyEvaluator) AuthorizeTenant(ctx context.Context, ac *actor.Context, resourceBusinessID string) error {
	if ac.SameBusiness(resourceBusinessID) {
		return nil
	}

	e.logger.Warn().
		Str("actor_id", ac.ID).
		Str("actor_business_id", ac.BusinessID).
		Str("target_business_id", resourceBusinessID).
		Msg("cross-tenant access denied")

	if e.security != nil {
		e.security.TenantMismatch(ctx, ac, resourceBusinessID, "")
	}

	return errors.TenantMismatch()
}

// Authorize decides whether the actor may perform the operation on the target.
// Returns nil to allow, or a typed denial.
func (e *PolicyEvaluator) Authorize(ctx context.Context, ac *actor.Context, operation string, target Target) error {
	if ac == nil {
		return errors.Authentication("no actor context")
	}

	// Tenant isolation is absolute and checked first
	if target.BusinessID != "" {
		if err := e.AuthorizeTenant(ctx, ac, target.BusinessID); err != nil {
			return err
		}
	}

	// Self-updates ride on the profile.* grant every role carries
	gate := operation
	if operation == OpStaffUpdate && target.ProfileID != "" && target.ProfileID == ac.ID {
		gate = "profile.update"
	}

	// Coarse role gate
	if !permissions.Allowed(ac.Role, gate) {
		return errors.RolePolicyDenied(operation, string(permissions.RequiredRole(operation)))
	}

	// Branch scope: Managers and Staff act within their assigned branch only.
	// Tenant-wide targets (no branch) pass.
	if ac.BranchScoped() && target.BranchID != "" && target.BranchID != ac.BranchID {
		return errors.BranchScope("target belongs to another branch")
	}

	switch operation {
	case OpStaffCreate:
		return e.checkStaffCreate(ac, target)
	case OpStaffUpdate:
		return e.checkStaffUpdate(ac, target)
	case OpStaffDelete:
		return e.checkStaffDelete(ac, target)
	case OpStaffRole:
		return e.checkRoleChange(ac, target)
	case OpPasswordReset:
		return e.checkPasswordReset(ac, target)
	}

	return nil
}

func (e *PolicyEvaluator) checkStaffCreate(ac *actor.Context, target Target) error {
	if !target.AssignRole.Valid() {
		return errors.BadRequest("unknown role " + string(target.AssignRole))
	}

	switch ac.Role {
	case actor.RoleOwner:
		return nil
	case actor.RoleManager:
		// Managers hire Staff-level people only, never peers or Owners
		if target.AssignRole.Level() >= actor.RoleManager.Level() {
			return errors.RolePolicyDenied("creating a "+string(target.AssignRole), string(actor.RoleOwner))
		}
		return nil
	default:
		return errors.RolePolicyDenied(OpStaffCreate, string(actor.RoleManager))
	}
}

func (e *PolicyEvaluator) checkStaffUpdate(ac *actor.Context, target Target) error {
	switch ac.Role {
	case actor.RoleOwner:
		return nil
	case actor.RoleManager:
		if target.ProfileRole.Level() >= actor.RoleManager.Level() && target.ProfileID != ac.ID {
			return errors.RolePolicyDenied("updating a "+string(target.ProfileRole), string(actor.RoleOwner))
		}
		return nil
	default:
		// Staff and Accountants may update themselves only
		if target.ProfileID != ac.ID {
			return errors.RolePolicyDenied(OpStaffUpdate, string(actor.RoleManager))
		}
		return nil
	}
}

func (e *PolicyEvaluator) checkStaffDelete(ac *actor.Context, target Target) error {
	if ac.Role != actor.RoleOwner {
		return errors.RolePolicyDenied(OpStaffDelete, string(actor.RoleOwner))
	}
	// Lockout protection: an Owner never removes their own access
	if target.ProfileID == ac.ID {
		return errors.RolePolicyDenied("deleting your own owner profile", string(actor.RoleOwner))
	}
	return nil
}

func (e *PolicyEvaluator) checkRoleChange(ac *actor.Context, target Target) error {
	if !target.AssignRole.Valid() {
		return errors.BadRequest("unknown role " + string(target.AssignRole))
	}
	if ac.Role != actor.RoleOwner {
		// Managers may never create or promote anyone to Owner, nor touch roles at all
		return errors.RolePolicyDenied(OpStaffRole, string(actor.RoleOwner))
	}
	// Lockout protection: an Owner never demotes their own access
	if target.ProfileID == ac.ID && target.AssignRole != actor.RoleOwner {
		return errors.RolePolicyDenied("demoting your own owner profile", string(actor.RoleOwner))
	}
	return nil
}

func (e *PolicyEvaluator) checkPasswordReset(ac *actor.Context, target Target) error {
	switch ac.Role {
	case actor.RoleOwner:
		return nil
	case actor.RoleManager:
		if target.ProfileRole.Level() >= actor.RoleManager.Level() {
			return errors.RolePolicyDenied("resetting a "+string(target.ProfileRole)+"'s password", string(actor.RoleOwner))
		}
		return nil
	default:
		return errors.RolePolicyDenied(OpPasswordReset, string(actor.RoleManager))
	}
}
