package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

type recordingSecurityLogger struct {
	mismatches int
	lastTarget string
}

func (r *recordingSecurityLogger) TenantMismatch(_ context.Context, _ *actor.Context, targetBusinessID, _ string) {
	r.mismatches++
	r.lastTarget = targetBusinessID
}

func testActor(role actor.Role, branchID string) *actor.Context {
	return &actor.Context{
		ID:         "actor-1",
		BusinessID: "biz-1",
		BranchID:   branchID,
		Role:       role,
	}
}

func newTestEvaluator(security SecurityLogger) *PolicyEvaluator {
	return NewPolicyEvaluator(security, logger.New("test", "development"))
}

func TestAuthorizeTenant(t *testing.T) {
	security := &recordingSecurityLogger{}
	e := newTestEvaluator(security)
	ctx := context.Background()

	t.Run("same business allowed", func(t *testing.T) {
		err := e.AuthorizeTenant(ctx, testActor(actor.RoleStaff, "branch-1"), "biz-1")
		assert.NoError(t, err)
		assert.Equal(t, 0, security.mismatches)
	})

	t.Run("cross tenant denied for every role", func(t *testing.T) {
		for _, role := range []actor.Role{actor.RoleOwner, actor.RoleManager, actor.RoleStaff, actor.RoleAccountant} {
			err := e.AuthorizeTenant(ctx, testActor(role, ""), "biz-2")
			require.Error(t, err, "role %s must not cross tenants", role)
			assert.True(t, errors.Is(err, errors.ErrTenantMismatch))
		}
		assert.Equal(t, 4, security.mismatches)
		assert.Equal(t, "biz-2", security.lastTarget)
	})
}

func TestAuthorize(t *testing.T) {
	e := newTestEvaluator(nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		actor     *actor.Context
		operation string
		target    Target
		wantErr   error
	}{
		{
			name:      "owner reads staff anywhere",
			actor:     testActor(actor.RoleOwner, ""),
			operation: OpStaffRead,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-2"},
		},
		{
			name:      "manager confined to own branch",
			actor:     testActor(actor.RoleManager, "branch-1"),
			operation: OpStaffRead,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-2"},
			wantErr:   errors.ErrBranchScope,
		},
		{
			name:      "staff cannot create staff",
			actor:     testActor(actor.RoleStaff, "branch-1"),
			operation: OpStaffCreate,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", AssignRole: actor.RoleStaff},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "manager creates staff in own branch",
			actor:     testActor(actor.RoleManager, "branch-1"),
			operation: OpStaffCreate,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", AssignRole: actor.RoleStaff},
		},
		{
			name:      "manager cannot create a manager",
			actor:     testActor(actor.RoleManager, "branch-1"),
			operation: OpStaffCreate,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", AssignRole: actor.RoleManager},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "manager cannot create an owner",
			actor:     testActor(actor.RoleManager, "branch-1"),
			operation: OpStaffCreate,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", AssignRole: actor.RoleOwner},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "accountant cannot create staff",
			actor:     testActor(actor.RoleAccountant, ""),
			operation: OpStaffCreate,
			target:    Target{Kind: "staff", BusinessID: "biz-1", AssignRole: actor.RoleStaff},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "staff updates own profile",
			actor:     testActor(actor.RoleStaff, "branch-1"),
			operation: OpStaffUpdate,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", ProfileID: "actor-1", ProfileRole: actor.RoleStaff},
		},
		{
			name:      "staff cannot update colleagues",
			actor:     testActor(actor.RoleStaff, "branch-1"),
			operation: OpStaffUpdate,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", ProfileID: "other", ProfileRole: actor.RoleStaff},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "manager cannot update the owner",
			actor:     testActor(actor.RoleManager, "branch-1"),
			operation: OpStaffUpdate,
			target:    Target{Kind: "staff", BusinessID: "biz-1", ProfileID: "owner-1", ProfileRole: actor.RoleOwner},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "only owner deactivates staff",
			actor:     testActor(actor.RoleManager, "branch-1"),
			operation: OpStaffDelete,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", ProfileID: "other", ProfileRole: actor.RoleStaff},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "owner never deactivates self",
			actor:     testActor(actor.RoleOwner, ""),
			operation: OpStaffDelete,
			target:    Target{Kind: "staff", BusinessID: "biz-1", ProfileID: "actor-1", ProfileRole: actor.RoleOwner},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "owner never demotes self",
			actor:     testActor(actor.RoleOwner, ""),
			operation: OpStaffRole,
			target:    Target{Kind: "staff", BusinessID: "biz-1", ProfileID: "actor-1", ProfileRole: actor.RoleOwner, AssignRole: actor.RoleManager},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "owner promotes a manager",
			actor:     testActor(actor.RoleOwner, ""),
			operation: OpStaffRole,
			target:    Target{Kind: "staff", BusinessID: "biz-1", ProfileID: "other", ProfileRole: actor.RoleManager, AssignRole: actor.RoleOwner},
		},
		{
			name:      "manager cannot change roles",
			actor:     testActor(actor.RoleManager, "branch-1"),
			operation: OpStaffRole,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", ProfileID: "other", ProfileRole: actor.RoleStaff, AssignRole: actor.RoleManager},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "manager resets a staff password",
			actor:     testActor(actor.RoleManager, "branch-1"),
			operation: OpPasswordReset,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", ProfileID: "other", ProfileRole: actor.RoleStaff},
		},
		{
			name:      "manager cannot reset a peer manager's password",
			actor:     testActor(actor.RoleManager, "branch-1"),
			operation: OpPasswordReset,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-1", ProfileID: "other", ProfileRole: actor.RoleManager},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "accountant reads staff business-wide",
			actor:     testActor(actor.RoleAccountant, ""),
			operation: OpStaffRead,
			target:    Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-2"},
		},
		{
			name:      "accountant cannot adjust stock",
			actor:     testActor(actor.RoleAccountant, ""),
			operation: OpItemsAdjust,
			target:    Target{Kind: "item", BusinessID: "biz-1"},
			wantErr:   errors.ErrRolePolicyDenied,
		},
		{
			name:      "cross tenant denied before any role logic",
			actor:     testActor(actor.RoleOwner, ""),
			operation: OpStaffRead,
			target:    Target{Kind: "staff", BusinessID: "biz-2"},
			wantErr:   errors.ErrTenantMismatch,
		},
		{
			name:      "unknown assigned role rejected",
			actor:     testActor(actor.RoleOwner, ""),
			operation: OpStaffCreate,
			target:    Target{Kind: "staff", BusinessID: "biz-1", AssignRole: actor.Role("superuser")},
			wantErr:   errors.ErrBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Authorize(ctx, tt.actor, tt.operation, tt.target)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestAuthorizeNoActor(t *testing.T) {
	e := newTestEvaluator(nil)

	err := e.Authorize(context.Background(), nil, OpStaffRead, Target{BusinessID: "biz-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAuthentication))
}

// A denial never depends on table state: the same inputs always produce the
// same decision, so repeated evaluation is safe and cheap.
func TestAuthorizeIsDeterministic(t *testing.T) {
	e := newTestEvaluator(nil)
	ctx := context.Background()
	ac := testActor(actor.RoleManager, "branch-1")
	target := Target{Kind: "staff", BusinessID: "biz-1", BranchID: "branch-2"}

	first := e.Authorize(ctx, ac, OpStaffRead, target)
	for i := 0; i < 10; i++ {
		again := e.Authorize(ctx, ac, OpStaffRead, target)
		assert.Equal(t, first.Error(), again.Error())
	}
}
