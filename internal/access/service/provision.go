package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/internal/access/repository"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/database"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// uniqueViolation is the Postgres error code for duplicate keys
const uniqueViolation = "23505"

// ProvisionEvents receives tenant bootstrap notifications.
type ProvisionEvents interface {
	TenantProvisioned(ctx context.Context, bundle *domain.TenantBundle)
}

// ProvisionRequest carries everything needed to bootstrap a tenant.
type ProvisionRequest struct {
	BusinessName string `json:"business_name" validate:"required,min=2,max=255"`
	OwnerName    string `json:"owner_name" validate:"required,min=2,max=255"`
	OwnerEmail   string `json:"owner_email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	BranchName   string `json:"branch_name,omitempty" validate:"omitempty,min=2,max=255"`
}

// ProvisionService bootstraps new tenants.
//
// The business, its owner profile and the default branch are created in one
// transaction. The business row starts with a null owner_id and is pointed
// at the owner before commit, so no externally observable state ever shows
// a business without a valid owner.
type ProvisionService struct {
	db         *database.DB
	businesses *repository.BusinessRepository
	profiles   *repository.ProfileRepository
	branches   *repository.BranchRepository
	events     ProvisionEvents
	logger     *logger.Logger
}

// NewProvisionService creates a new provisioning service
func NewProvisionService(db *database.DB, businesses *repository.BusinessRepository, profiles *repository.ProfileRepository, branches *repository.BranchRepository, events ProvisionEvents, log *logger.Logger) *ProvisionService {
	return &ProvisionService{
		db:         db,
		businesses: businesses,
		profiles:   profiles,
		branches:   branches,
		events:     events,
		logger:     log.WithComponent("provision"),
	}
}

// ProvisionTenant creates the business, owner profile and default branch
// atomically and returns the consistent bundle.
func (s *ProvisionService) ProvisionTenant(ctx context.Context, req *ProvisionRequest) (*domain.TenantBundle, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	branchName := req.BranchName
	if branchName == "" {
		branchName = "Main Branch"
	}

	business := &domain.Business{Name: req.BusinessName}
	profile := &domain.Profile{
		Role:         actor.RoleOwner,
		Name:         req.OwnerName,
		Email:        req.OwnerEmail,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	branch := &domain.Branch{Name: branchName, IsActive: true}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.businesses.CreateTx(ctx, tx, business); err != nil {
			return err
		}

		profile.BusinessID = business.ID
		if err := s.profiles.CreateTx(ctx, tx, profile); err != nil {
			return err
		}

		if err := s.businesses.SetOwnerTx(ctx, tx, business.ID, profile.ID); err != nil {
			return err
		}

		branch.BusinessID = business.ID
		return s.branches.CreateTx(ctx, tx, branch)
	})
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return nil, errors.Conflict("an account with this email already exists")
		}
		s.logger.Error().Err(err).Str("business_name", req.BusinessName).Msg("tenant provisioning failed")
		return nil, errors.Internal("failed to provision tenant")
	}

	ownerID := profile.ID
	business.OwnerID = &ownerID

	bundle := &domain.TenantBundle{
		Business:      business,
		OwnerProfile:  profile,
		DefaultBranch: branch,
	}

	s.logger.Info().
		Str("business_id", business.ID).
		Str("owner_id", profile.ID).
		Str("branch_id", branch.ID).
		Msg("tenant provisioned")

	if s.events != nil {
		s.events.TenantProvisioned(ctx, bundle)
	}

	return bundle, nil
}
