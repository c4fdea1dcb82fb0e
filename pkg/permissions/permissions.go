// Package permissions maps roles to the dotted operations they may perform.
//
// Operation format:
//   - "*" - full access
//   - "resource.*" - all actions on a resource (e.g. "items.*")
//   - "resource.action" - a specific action (e.g. "items.adjust")
//
// These grants are the coarse gate only. Cross-cutting invariants (tenant
// isolation, branch scope, self-protection) are enforced by the policy
// evaluator on top of them.
package permissions

import (
	"strings"

	"github.com/tillsup/tillsup-backend/pkg/actor"
)

// Grants lists the operations each role may perform within its own business.
var Grants = map[actor.Role][]string{
	actor.RoleOwner: {
		"*",
	},
	actor.RoleManager: {
		"staff.read",
		"staff.create",
		"staff.update",
		"staff.password.reset",
		"branches.read",
		"items.*",
		"sales.*",
		"attendance.*",
		"profile.*",
	},
	actor.RoleStaff: {
		"items.read",
		"items.adjust",
		"sales.create",
		"sales.read.own",
		"attendance.clock",
		"profile.*",
	},
	actor.RoleAccountant: {
		"staff.read",
		"branches.read",
		"items.read",
		"sales.read",
		"attendance.read",
		"reports.*",
		"profile.*",
	},
}

// Allowed checks whether the role's grants cover the required operation.
// Supports wildcard matching:
//   - "*" matches everything
//   - "items.*" matches "items.read", "items.adjust", etc.
//   - exact match otherwise
func Allowed(role actor.Role, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range Grants[role] {
		if p == "*" {
			return true
		}
		if p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// RequiredRole returns the lowest role in the hierarchy whose grants cover
// the operation. Used to name the needed role in denial messages.
func RequiredRole(operation string) actor.Role {
	ordered := []actor.Role{actor.RoleStaff, actor.RoleAccountant, actor.RoleManager, actor.RoleOwner}
	for _, r := range ordered {
		if Allowed(r, operation) {
			return r
		}
	}
	return actor.RoleOwner
}

// Operations lists every distinct non-wildcard operation appearing in Grants.
func Operations() []string {
	seen := make(map[string]bool)
	var ops []string
	for _, grants := range Grants {
		for _, p := range grants {
			if p == "*" || strings.HasSuffix(p, ".*") {
				continue
			}
			if !seen[p] {
				seen[p] = true
				ops = append(ops, p)
			}
		}
	}
	return ops
}
