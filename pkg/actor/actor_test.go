package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleOwner.Valid())
	assert.True(t, RoleManager.Valid())
	assert.True(t, RoleStaff.Valid())
	assert.True(t, RoleAccountant.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestRoleLevel(t *testing.T) {
	assert.Greater(t, RoleOwner.Level(), RoleManager.Level())
	assert.Greater(t, RoleManager.Level(), RoleStaff.Level())
	assert.Equal(t, RoleStaff.Level(), RoleAccountant.Level())
	assert.Equal(t, 0, Role("superuser").Level())
}

func TestBranchScoped(t *testing.T) {
	assert.True(t, (&Context{Role: RoleManager}).BranchScoped())
	assert.True(t, (&Context{Role: RoleStaff}).BranchScoped())
	assert.False(t, (&Context{Role: RoleOwner}).BranchScoped())
	assert.False(t, (&Context{Role: RoleAccountant}).BranchScoped())

	var nilCtx *Context
	assert.True(t, nilCtx.BranchScoped(), "no actor means maximum restriction")
}

func TestSameBusiness(t *testing.T) {
	ac := &Context{ID: "a", BusinessID: "biz-1"}
	assert.True(t, ac.SameBusiness("biz-1"))
	assert.False(t, ac.SameBusiness("biz-2"))
	assert.False(t, (&Context{}).SameBusiness(""), "empty business never matches")

	var nilCtx *Context
	assert.False(t, nilCtx.SameBusiness("biz-1"))
}

func TestContextRoundTrip(t *testing.T) {
	ac := &Context{ID: "a", BusinessID: "biz-1", Role: RoleStaff}

	ctx := WithActor(context.Background(), ac)
	assert.Equal(t, ac, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestSystemActor(t *testing.T) {
	sys := System()
	assert.True(t, sys.IsSystem())
	assert.False(t, (&Context{ID: "a"}).IsSystem())

	var nilCtx *Context
	assert.True(t, nilCtx.IsSystem())
}
