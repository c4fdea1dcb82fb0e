package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

type fakeStaffStore struct {
	profiles map[string]*domain.Profile

	created     *domain.Profile
	updated     *domain.Profile
	deactivated string
	roleSet     actor.Role
	passwordSet bool
	mustChange  bool
}

func (f *fakeStaffStore) Create(_ context.Context, p *domain.Profile) error {
	p.ID = "new-staff"
	f.created = p
	return nil
}

func (f *fakeStaffStore) GetInBusiness(_ context.Context, businessID, id string) (*domain.Profile, error) {
	p, ok := f.profiles[id]
	if !ok || p.BusinessID != businessID {
		return nil, errors.NotFound("profile")
	}
	return p, nil
}

func (f *fakeStaffStore) ListByBusiness(_ context.Context, businessID, branchID string, _, _ int) ([]domain.Profile, int64, error) {
	var out []domain.Profile
	for _, p := range f.profiles {
		if p.BusinessID != businessID {
			continue
		}
		if branchID != "" && (p.BranchID == nil || *p.BranchID != branchID) {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStaffStore) Update(_ context.Context, p *domain.Profile) error {
	f.updated = p
	return nil
}

func (f *fakeStaffStore) UpdateRole(_ context.Context, _, _ string, role actor.Role, _ *string) error {
	f.roleSet = role
	return nil
}

func (f *fakeStaffStore) SetPassword(_ context.Context, _, _, _ string, mustChange bool) error {
	f.passwordSet = true
	f.mustChange = mustChange
	return nil
}

func (f *fakeStaffStore) Deactivate(_ context.Context, _, id string) error {
	f.deactivated = id
	return nil
}

type fakeBranchStore struct {
	branches map[string]*domain.Branch
}

func (f *fakeBranchStore) GetInBusiness(_ context.Context, businessID, id string) (*domain.Branch, error) {
	b, ok := f.branches[id]
	if !ok || b.BusinessID != businessID {
		return nil, errors.NotFound("branch")
	}
	return b, nil
}

type recordingStaffEvents struct {
	changes []string
}

func (r *recordingStaffEvents) StaffChanged(_ context.Context, change string, _ *actor.Context, _ *domain.Profile) {
	r.changes = append(r.changes, change)
}

func staffProfile(id, businessID, branchID string, role actor.Role) *domain.Profile {
	p := &domain.Profile{
		ID:         id,
		BusinessID: businessID,
		Role:       role,
		Name:       "Person " + id,
		Email:      id + "@tillsup.io",
		IsActive:   true,
	}
	if branchID != "" {
		p.BranchID = &branchID
	}
	return p
}

func newTestStaffService(store *fakeStaffStore, branches *fakeBranchStore, events *recordingStaffEvents) *StaffService {
	log := logger.New("test", "development")
	return NewStaffService(store, branches, NewPolicyEvaluator(nil, log), NewScopeFilter(), events, log)
}

func activeBranches(ids ...string) *fakeBranchStore {
	branches := map[string]*domain.Branch{}
	for _, id := range ids {
		branches[id] = &domain.Branch{ID: id, BusinessID: "biz-1", Name: id, IsActive: true}
	}
	return &fakeBranchStore{branches: branches}
}

func TestStaffCreate(t *testing.T) {
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{}}
	events := &recordingStaffEvents{}
	svc := newTestStaffService(store, activeBranches("branch-1"), events)

	owner := testActor(actor.RoleOwner, "")
	created, err := svc.Create(context.Background(), owner, &CreateStaffRequest{
		Name:     "Jo",
		Email:    "jo@tillsup.io",
		Password: "s3cret-pass",
		Role:     "staff",
		BranchID: "branch-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "biz-1", created.BusinessID)
	assert.Equal(t, actor.RoleStaff, created.Role)
	require.NotNil(t, created.BranchID)
	assert.Equal(t, "branch-1", *created.BranchID)
	assert.True(t, created.MustChangePassword, "a hire starts with a temporary password")
	assert.NotEqual(t, "s3cret-pass", created.PasswordHash)
	assert.Equal(t, []string{"created"}, events.changes)
}

func TestStaffCreateRequiresBranchForScopedRoles(t *testing.T) {
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{}}
	svc := newTestStaffService(store, activeBranches(), &recordingStaffEvents{})

	_, err := svc.Create(context.Background(), testActor(actor.RoleOwner, ""), &CreateStaffRequest{
		Name:     "Jo",
		Email:    "jo@tillsup.io",
		Password: "s3cret-pass",
		Role:     "staff",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
	assert.Nil(t, store.created)
}

func TestStaffCreateIntoDeactivatedBranchDenied(t *testing.T) {
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{}}
	branches := activeBranches("branch-1")
	branches.branches["branch-1"].IsActive = false
	svc := newTestStaffService(store, branches, &recordingStaffEvents{})

	_, err := svc.Create(context.Background(), testActor(actor.RoleOwner, ""), &CreateStaffRequest{
		Name:     "Jo",
		Email:    "jo@tillsup.io",
		Password: "s3cret-pass",
		Role:     "staff",
		BranchID: "branch-1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBranchScope))
	assert.Nil(t, store.created)
}

func TestStaffCreateManagerCannotHirePeers(t *testing.T) {
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{}}
	svc := newTestStaffService(store, activeBranches("branch-1"), &recordingStaffEvents{})

	_, err := svc.Create(context.Background(), testActor(actor.RoleManager, "branch-1"), &CreateStaffRequest{
		Name:     "Jo",
		Email:    "jo@tillsup.io",
		Password: "s3cret-pass",
		Role:     "manager",
		BranchID: "branch-1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRolePolicyDenied))
}

func TestStaffCreateOwnerWithoutBranch(t *testing.T) {
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{}}
	svc := newTestStaffService(store, activeBranches(), &recordingStaffEvents{})

	created, err := svc.Create(context.Background(), testActor(actor.RoleOwner, ""), &CreateStaffRequest{
		Name:     "Co-Owner",
		Email:    "co@tillsup.io",
		Password: "s3cret-pass",
		Role:     "owner",
	})
	require.NoError(t, err)
	assert.Nil(t, created.BranchID, "owners are branch-unscoped")
}

func TestStaffUpdateCrossTenantInvisible(t *testing.T) {
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{
		"foreign": staffProfile("foreign", "biz-2", "branch-9", actor.RoleStaff),
	}}
	svc := newTestStaffService(store, activeBranches(), &recordingStaffEvents{})

	// Lookups are scoped to the caller's business, so other tenants' rows
	// are indistinguishable from nonexistent ones.
	_, err := svc.Update(context.Background(), testActor(actor.RoleOwner, ""), "foreign", &UpdateStaffRequest{
		Name:  "New Name",
		Email: "new@tillsup.io",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStaffChangeRole(t *testing.T) {
	target := staffProfile("staff-1", "biz-1", "branch-1", actor.RoleStaff)
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{"staff-1": target}}
	events := &recordingStaffEvents{}
	svc := newTestStaffService(store, activeBranches("branch-1", "branch-2"), events)

	updated, err := svc.ChangeRole(context.Background(), testActor(actor.RoleOwner, ""), "staff-1", actor.RoleManager, "branch-2")
	require.NoError(t, err)
	assert.Equal(t, actor.RoleManager, store.roleSet)
	assert.Equal(t, actor.RoleManager, updated.Role)
	require.NotNil(t, updated.BranchID)
	assert.Equal(t, "branch-2", *updated.BranchID)
	assert.Equal(t, []string{"role_changed"}, events.changes)
}

func TestStaffChangeRoleManagerDenied(t *testing.T) {
	target := staffProfile("staff-1", "biz-1", "branch-1", actor.RoleStaff)
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{"staff-1": target}}
	svc := newTestStaffService(store, activeBranches("branch-1"), &recordingStaffEvents{})

	_, err := svc.ChangeRole(context.Background(), testActor(actor.RoleManager, "branch-1"), "staff-1", actor.RoleManager, "branch-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRolePolicyDenied))
	assert.Empty(t, store.roleSet)
}

func TestStaffResetPassword(t *testing.T) {
	target := staffProfile("staff-1", "biz-1", "branch-1", actor.RoleStaff)
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{"staff-1": target}}
	events := &recordingStaffEvents{}
	svc := newTestStaffService(store, activeBranches("branch-1"), events)

	err := svc.ResetPassword(context.Background(), testActor(actor.RoleManager, "branch-1"), "staff-1", "temp-password-1")
	require.NoError(t, err)
	assert.True(t, store.passwordSet)
	assert.True(t, store.mustChange, "an admin-set password must be changed at next login")
	assert.Equal(t, []string{"password_reset"}, events.changes)
}

func TestStaffDeactivateOwnerOnly(t *testing.T) {
	target := staffProfile("staff-1", "biz-1", "branch-1", actor.RoleStaff)
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{"staff-1": target}}
	svc := newTestStaffService(store, activeBranches("branch-1"), &recordingStaffEvents{})

	err := svc.Deactivate(context.Background(), testActor(actor.RoleManager, "branch-1"), "staff-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRolePolicyDenied))
	assert.Empty(t, store.deactivated)

	err = svc.Deactivate(context.Background(), testActor(actor.RoleOwner, ""), "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "staff-1", store.deactivated)
}

func TestStaffDeactivateSelfDenied(t *testing.T) {
	owner := staffProfile("actor-1", "biz-1", "", actor.RoleOwner)
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{"actor-1": owner}}
	svc := newTestStaffService(store, activeBranches(), &recordingStaffEvents{})

	err := svc.Deactivate(context.Background(), testActor(actor.RoleOwner, ""), "actor-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRolePolicyDenied))
	assert.Empty(t, store.deactivated)
}

func TestStaffListScopedByBranch(t *testing.T) {
	store := &fakeStaffStore{profiles: map[string]*domain.Profile{
		"a": staffProfile("a", "biz-1", "branch-1", actor.RoleStaff),
		"b": staffProfile("b", "biz-1", "branch-2", actor.RoleStaff),
	}}
	svc := newTestStaffService(store, activeBranches("branch-1", "branch-2"), &recordingStaffEvents{})

	list, total, err := svc.List(context.Background(), testActor(actor.RoleManager, "branch-1"), "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)

	list, total, err = svc.List(context.Background(), testActor(actor.RoleOwner, ""), "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
}
