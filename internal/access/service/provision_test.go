package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/internal/access/repository"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/database"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

type recordingProvisionEvents struct {
	provisioned int
	bundle      *domain.TenantBundle
}

func (r *recordingProvisionEvents) TenantProvisioned(_ context.Context, bundle *domain.TenantBundle) {
	r.provisioned++
	r.bundle = bundle
}

func newTestProvisionService(db *database.DB, events ProvisionEvents) *ProvisionService {
	return NewProvisionService(
		db,
		repository.NewBusinessRepository(db),
		repository.NewProfileRepository(db),
		repository.NewBranchRepository(db),
		events,
		logger.New("test", "development"),
	)
}

func TestProvisionTenant(t *testing.T) {
	db, mock := newMockDB(t)
	events := &recordingProvisionEvents{}
	svc := newTestProvisionService(db, events)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO businesses \(id, name, owner_id\)`).
		WithArgs(sqlmock.AnyArg(), "Cafe Central", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(`INSERT INTO profiles`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), nil, "owner", "Maria", "maria@tillsup.io", sqlmock.AnyArg(), false, true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`UPDATE businesses\s+SET owner_id = \$1, updated_at = NOW\(\)\s+WHERE id = \$2`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO branches`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Main Branch", nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	bundle, err := svc.ProvisionTenant(context.Background(), &ProvisionRequest{
		BusinessName: "Cafe Central",
		OwnerName:    "Maria",
		OwnerEmail:   "maria@tillsup.io",
		Password:     "s3cret-pass",
	})
	require.NoError(t, err)

	require.NotNil(t, bundle.Business.OwnerID)
	assert.Equal(t, bundle.OwnerProfile.ID, *bundle.Business.OwnerID)
	assert.Equal(t, bundle.Business.ID, bundle.OwnerProfile.BusinessID)
	assert.Equal(t, bundle.Business.ID, bundle.DefaultBranch.BusinessID)
	assert.Equal(t, actor.RoleOwner, bundle.OwnerProfile.Role)
	assert.Equal(t, "Main Branch", bundle.DefaultBranch.Name)
	assert.True(t, bundle.DefaultBranch.IsActive)
	assert.NotEqual(t, "s3cret-pass", bundle.OwnerProfile.PasswordHash)

	assert.Equal(t, 1, events.provisioned)
	assert.Same(t, bundle, events.bundle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionTenantCustomBranchName(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestProvisionService(db, nil)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO businesses`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(`INSERT INTO profiles`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`UPDATE businesses`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO branches`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Harbor Kiosk", nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	bundle, err := svc.ProvisionTenant(context.Background(), &ProvisionRequest{
		BusinessName: "Cafe Central",
		OwnerName:    "Maria",
		OwnerEmail:   "maria@tillsup.io",
		Password:     "s3cret-pass",
		BranchName:   "Harbor Kiosk",
	})
	require.NoError(t, err)
	assert.Equal(t, "Harbor Kiosk", bundle.DefaultBranch.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionTenantDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	events := &recordingProvisionEvents{}
	svc := newTestProvisionService(db, events)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO businesses`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(`INSERT INTO profiles`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "profiles_email_key"})
	mock.ExpectRollback()

	_, err := svc.ProvisionTenant(context.Background(), &ProvisionRequest{
		BusinessName: "Cafe Central",
		OwnerName:    "Maria",
		OwnerEmail:   "taken@tillsup.io",
		Password:     "s3cret-pass",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Equal(t, 0, events.provisioned, "a failed bootstrap must not announce a tenant")
	assert.NoError(t, mock.ExpectationsWereMet())
}
