package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/internal/access/repository"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/database"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

type recordingBranchEvents struct {
	created     int
	deactivated int
}

func (r *recordingBranchEvents) BranchChanged(_ context.Context, created bool, _ *domain.Branch) {
	if created {
		r.created++
	} else {
		r.deactivated++
	}
}

func newTestBranchService(db *database.DB, events BranchEvents) *BranchService {
	log := logger.New("test", "development")
	return NewBranchService(repository.NewBranchRepository(db), NewPolicyEvaluator(nil, log), events, log)
}

func TestBranchCreate(t *testing.T) {
	db, mock := newMockDB(t)
	events := &recordingBranchEvents{}
	svc := newTestBranchService(db, events)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO branches`).
		WithArgs(sqlmock.AnyArg(), "biz-1", "Harbor Kiosk", "Pier 3", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	branch, err := svc.Create(context.Background(), testActor(actor.RoleOwner, ""), &CreateBranchRequest{
		Name:     "Harbor Kiosk",
		Location: "Pier 3",
	})
	require.NoError(t, err)
	assert.Equal(t, "biz-1", branch.BusinessID)
	assert.True(t, branch.IsActive)
	assert.Equal(t, 1, events.created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBranchCreateOwnerOnly(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestBranchService(db, &recordingBranchEvents{})

	for _, role := range []actor.Role{actor.RoleManager, actor.RoleStaff, actor.RoleAccountant} {
		branchID := ""
		if role != actor.RoleAccountant {
			branchID = "branch-1"
		}
		_, err := svc.Create(context.Background(), testActor(role, branchID), &CreateBranchRequest{Name: "Harbor Kiosk"})
		require.Error(t, err, "role %s must not open branches", role)
		assert.True(t, errors.Is(err, errors.ErrRolePolicyDenied))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBranchDeactivate(t *testing.T) {
	db, mock := newMockDB(t)
	events := &recordingBranchEvents{}
	svc := newTestBranchService(db, events)
	now := time.Now()

	mock.ExpectQuery(`FROM branches\s+WHERE id = \$1 AND business_id = \$2`).
		WithArgs("branch-1", "biz-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "name", "location", "is_active", "created_at", "updated_at"}).
			AddRow("branch-1", "biz-1", "Harbor Kiosk", nil, true, now, now))
	mock.ExpectExec(`UPDATE branches\s+SET is_active = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND business_id = \$3`).
		WithArgs(false, "branch-1", "biz-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Deactivate(context.Background(), testActor(actor.RoleOwner, ""), "branch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, events.deactivated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBranchDeactivateUnknown(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestBranchService(db, &recordingBranchEvents{})

	mock.ExpectQuery(`FROM branches\s+WHERE id = \$1 AND business_id = \$2`).
		WithArgs("nope", "biz-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "name", "location", "is_active", "created_at", "updated_at"}))

	err := svc.Deactivate(context.Background(), testActor(actor.RoleOwner, ""), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
