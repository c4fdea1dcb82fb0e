package service

import (
	"context"

	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// StaffStore is the profile access the staff service needs.
type StaffStore interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetInBusiness(ctx context.Context, businessID, id string) (*domain.Profile, error)
	ListByBusiness(ctx context.Context, businessID, branchID string, page, perPage int) ([]domain.Profile, int64, error)
	Update(ctx context.Context, p *domain.Profile) error
	UpdateRole(ctx context.Context, businessID, id string, role actor.Role, branchID *string) error
	SetPassword(ctx context.Context, businessID, id, passwordHash string, mustChange bool) error
	Deactivate(ctx context.Context, businessID, id string) error
}

// BranchStore is the branch access the staff service needs.
type BranchStore interface {
	GetInBusiness(ctx context.Context, businessID, id string) (*domain.Branch, error)
}

// StaffEvents receives staff lifecycle notifications.
type StaffEvents interface {
	StaffChanged(ctx context.Context, eventType string, ac *actor.Context, staff *domain.Profile)
}

// StaffService manages profiles within a tenant. Every mutation goes through
// the policy evaluator; role and branch writes never bypass it.
type StaffService struct {
	store    StaffStore
	branches BranchStore
	policy   *PolicyEvaluator
	scope    *ScopeFilter
	events   StaffEvents
	logger   *logger.Logger
}

// NewStaffService creates a new staff service
func NewStaffService(store StaffStore, branches BranchStore, policy *PolicyEvaluator, scope *ScopeFilter, events StaffEvents, log *logger.Logger) *StaffService {
	return &StaffService{
		store:    store,
		branches: branches,
		policy:   policy,
		scope:    scope,
		events:   events,
		logger:   log.WithComponent("staff"),
	}
}

// CreateStaffRequest carries a new hire.
type CreateStaffRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=owner manager staff accountant"`
	BranchID string `json:"branch_id,omitempty" validate:"omitempty,uuid"`
}

// UpdateStaffRequest carries profile field updates.
type UpdateStaffRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=255"`
	Email string `json:"email" validate:"required,email"`
}

// List returns the staff visible to the actor under branch scoping.
func (s *StaffService) List(ctx context.Context, ac *actor.Context, viewingBranch string, page, perPage int) ([]domain.Profile, int64, error) {
	if err := s.policy.Authorize(ctx, ac, OpStaffRead, Target{Kind: "staff", BusinessID: ac.BusinessID}); err != nil {
		return nil, 0, err
	}

	scope, err := s.scope.ForActor(ac, viewingBranch)
	if err != nil {
		return nil, 0, err
	}

	return s.store.ListByBusiness(ctx, scope.BusinessID, scope.BranchID, page, perPage)
}

// Get returns one profile in the actor's business.
func (s *StaffService) Get(ctx context.Context, ac *actor.Context, id string) (*domain.Profile, error) {
	if err := s.policy.Authorize(ctx, ac, OpStaffRead, Target{Kind: "staff", BusinessID: ac.BusinessID}); err != nil {
		return nil, err
	}

	profile, err := s.store.GetInBusiness(ctx, ac.BusinessID, id)
	if err != nil {
		return nil, err
	}

	branchID := ""
	if profile.BranchID != nil {
		branchID = *profile.BranchID
	}
	if !s.scope.Visible(ac, profile.BusinessID, branchID) {
		return nil, errors.BranchScope("profile belongs to another branch")
	}

	return profile, nil
}

// Create hires a new staff member into the actor's business.
func (s *StaffService) Create(ctx context.Context, ac *actor.Context, req *CreateStaffRequest) (*domain.Profile, error) {
	role := actor.Role(req.Role)

	target := Target{
		Kind:       "staff",
		BusinessID: ac.BusinessID,
		BranchID:   req.BranchID,
		AssignRole: role,
	}
	if err := s.policy.Authorize(ctx, ac, OpStaffCreate, target); err != nil {
		return nil, err
	}

	var branchID *string
	if role != actor.RoleOwner && role != actor.RoleAccountant {
		if req.BranchID == "" {
			return nil, errors.BadRequest("branch_id is required for branch-scoped roles")
		}
		if err := s.checkBranchAssignable(ctx, ac.BusinessID, req.BranchID); err != nil {
			return nil, err
		}
		branchID = &req.BranchID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	profile := &domain.Profile{
		BusinessID:   ac.BusinessID,
		BranchID:     branchID,
		Role:         role,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		// First login forces a password change
		MustChangePassword: true,
		IsActive:           true,
	}

	if err := s.store.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("actor_id", ac.ID).
		Str("staff_id", profile.ID).
		Str("role", string(role)).
		Msg("staff created")

	if s.events != nil {
		s.events.StaffChanged(ctx, "created", ac, profile)
	}

	return profile, nil
}

// Update changes a profile's name and email.
func (s *StaffService) Update(ctx context.Context, ac *actor.Context, id string, req *UpdateStaffRequest) (*domain.Profile, error) {
	profile, err := s.store.GetInBusiness(ctx, ac.BusinessID, id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(ctx, ac, OpStaffUpdate, s.staffTarget(profile)); err != nil {
		return nil, err
	}

	profile.Name = req.Name
	profile.Email = req.Email

	if err := s.store.Update(ctx, profile); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.StaffChanged(ctx, "updated", ac, profile)
	}

	return profile, nil
}

// ChangeRole reassigns a profile's role and branch.
func (s *StaffService) ChangeRole(ctx context.Context, ac *actor.Context, id string, role actor.Role, branchID string) (*domain.Profile, error) {
	profile, err := s.store.GetInBusiness(ctx, ac.BusinessID, id)
	if err != nil {
		return nil, err
	}

	target := s.staffTarget(profile)
	target.AssignRole = role
	if err := s.policy.Authorize(ctx, ac, OpStaffRole, target); err != nil {
		return nil, err
	}

	var branch *string
	if role != actor.RoleOwner && role != actor.RoleAccountant {
		if branchID == "" {
			return nil, errors.BadRequest("branch_id is required for branch-scoped roles")
		}
		if err := s.checkBranchAssignable(ctx, ac.BusinessID, branchID); err != nil {
			return nil, err
		}
		branch = &branchID
	}

	if err := s.store.UpdateRole(ctx, ac.BusinessID, id, role, branch); err != nil {
		return nil, err
	}

	profile.Role = role
	profile.BranchID = branch

	s.logger.Info().
		Str("actor_id", ac.ID).
		Str("staff_id", id).
		Str("role", string(role)).
		Msg("staff role changed")

	if s.events != nil {
		s.events.StaffChanged(ctx, "role_changed", ac, profile)
	}

	return profile, nil
}

// ResetPassword sets a new temporary password on another profile.
// The target must change it at next login.
func (s *StaffService) ResetPassword(ctx context.Context, ac *actor.Context, id, newPassword string) error {
	profile, err := s.store.GetInBusiness(ctx, ac.BusinessID, id)
	if err != nil {
		return err
	}

	if err := s.policy.Authorize(ctx, ac, OpPasswordReset, s.staffTarget(profile)); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal("failed to hash password")
	}

	if err := s.store.SetPassword(ctx, ac.BusinessID, id, string(hash), true); err != nil {
		return err
	}

	if s.events != nil {
		s.events.StaffChanged(ctx, "password_reset", ac, profile)
	}

	return nil
}

// Deactivate soft-deactivates a profile. Owner-only; self-deactivation is
// rejected by the evaluator to prevent lockout.
func (s *StaffService) Deactivate(ctx context.Context, ac *actor.Context, id string) error {
	profile, err := s.store.GetInBusiness(ctx, ac.BusinessID, id)
	if err != nil {
		return err
	}

	if err := s.policy.Authorize(ctx, ac, OpStaffDelete, s.staffTarget(profile)); err != nil {
		return err
	}

	if err := s.store.Deactivate(ctx, ac.BusinessID, id); err != nil {
		return err
	}

	s.logger.Info().
		Str("actor_id", ac.ID).
		Str("staff_id", id).
		Msg("staff deactivated")

	if s.events != nil {
		s.events.StaffChanged(ctx, "deactivated", ac, profile)
	}

	return nil
}

func (s *StaffService) staffTarget(profile *domain.Profile) Target {
	branchID := ""
	if profile.BranchID != nil {
		branchID = *profile.BranchID
	}
	return Target{
		Kind:        "staff",
		BusinessID:  profile.BusinessID,
		BranchID:    branchID,
		ProfileID:   profile.ID,
		ProfileRole: profile.Role,
	}
}

// checkBranchAssignable verifies the branch exists in the business and is
// active. Assigning people to a deactivated branch is denied; existing
// assignments keep read access to its history.
func (s *StaffService) checkBranchAssignable(ctx context.Context, businessID, branchID string) error {
	branch, err := s.branches.GetInBusiness(ctx, businessID, branchID)
	if err != nil {
		return err
	}
	if !branch.IsActive {
		return errors.BranchScope("branch is deactivated")
	}
	return nil
}
