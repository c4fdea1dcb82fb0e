package service

import (
	"context"

	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/internal/access/repository"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

// BranchEvents receives branch lifecycle notifications.
type BranchEvents interface {
	BranchChanged(ctx context.Context, created bool, branch *domain.Branch)
}

// BranchService manages the branches of a tenant. Creation and deactivation
// are Owner operations; everyone with branches.read can list them.
type BranchService struct {
	branches *repository.BranchRepository
	policy   *PolicyEvaluator
	events   BranchEvents
	logger   *logger.Logger
}

// NewBranchService creates a new branch service
func NewBranchService(branches *repository.BranchRepository, policy *PolicyEvaluator, events BranchEvents, log *logger.Logger) *BranchService {
	return &BranchService{
		branches: branches,
		policy:   policy,
		events:   events,
		logger:   log.WithComponent("branches"),
	}
}

// CreateBranchRequest carries a new branch.
type CreateBranchRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Location string `json:"location,omitempty" validate:"omitempty,max=500"`
}

// List returns all branches of the actor's business.
func (s *BranchService) List(ctx context.Context, ac *actor.Context) ([]domain.Branch, error) {
	if err := s.policy.Authorize(ctx, ac, OpBranchRead, Target{Kind: "branch", BusinessID: ac.BusinessID}); err != nil {
		return nil, err
	}
	return s.branches.ListByBusiness(ctx, ac.BusinessID)
}

// Create opens a new branch in the actor's business.
func (s *BranchService) Create(ctx context.Context, ac *actor.Context, req *CreateBranchRequest) (*domain.Branch, error) {
	if err := s.policy.Authorize(ctx, ac, OpBranchCreate, Target{Kind: "branch", BusinessID: ac.BusinessID}); err != nil {
		return nil, err
	}

	branch := &domain.Branch{
		BusinessID: ac.BusinessID,
		Name:       req.Name,
		IsActive:   true,
	}
	if req.Location != "" {
		branch.Location = &req.Location
	}

	if err := s.branches.Create(ctx, branch); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("actor_id", ac.ID).
		Str("branch_id", branch.ID).
		Msg("branch created")

	if s.events != nil {
		s.events.BranchChanged(ctx, true, branch)
	}

	return branch, nil
}

// Deactivate marks a branch inactive. Its history stays readable; writes
// against it and new staff assignments are denied from then on.
func (s *BranchService) Deactivate(ctx context.Context, ac *actor.Context, id string) error {
	branch, err := s.branches.GetInBusiness(ctx, ac.BusinessID, id)
	if err != nil {
		return err
	}

	target := Target{Kind: "branch", BusinessID: branch.BusinessID}
	if err := s.policy.Authorize(ctx, ac, OpBranchDisable, target); err != nil {
		return err
	}

	if err := s.branches.SetActive(ctx, ac.BusinessID, id, false); err != nil {
		return err
	}

	s.logger.Info().
		Str("actor_id", ac.ID).
		Str("branch_id", id).
		Msg("branch deactivated")

	if s.events != nil {
		branch.IsActive = false
		s.events.BranchChanged(ctx, false, branch)
	}

	return nil
}
