package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/internal/access/repository"
	"github.com/tillsup/tillsup-backend/pkg/config"
	"github.com/tillsup/tillsup-backend/pkg/database"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

// RepairEvents receives ownership repair notifications for the audit trail.
type RepairEvents interface {
	OwnershipRepaired(ctx context.Context, businessID, previousOwner, newOwner string, previousState domain.OwnershipState)
	OwnershipUnrepairable(ctx context.Context, businessID string, candidates int)
}

// RepairService restores the business -> owner linkage.
//
// Every documented access stall traces back to this link being null, stale
// or pointing at a deleted profile. Instead of letting guards wait on a
// match that cannot occur, the linkage is modeled as an explicit state
// machine and repaired under a row lock, or failed closed with a typed
// error within the configured bound.
type RepairService struct {
	db         *database.DB
	businesses *repository.BusinessRepository
	profiles   *repository.ProfileRepository
	events     RepairEvents
	timeout    time.Duration
	logger     *logger.Logger
}

// NewRepairService creates a new ownership repair service
func NewRepairService(db *database.DB, businesses *repository.BusinessRepository, profiles *repository.ProfileRepository, events RepairEvents, cfg *config.AccessConfig, log *logger.Logger) *RepairService {
	return &RepairService{
		db:         db,
		businesses: businesses,
		profiles:   profiles,
		events:     events,
		timeout:    cfg.RepairTimeout,
		logger:     log.WithComponent("repair"),
	}
}

// Repair classifies and, when possible, repairs a business's owner linkage.
//
// Valid is returned both for the no-op case and after a successful repair.
// Zero or multiple Owner candidates make the business Unrepairable: the
// service never guesses, it surfaces a manual-intervention error.
func (s *RepairService) Repair(ctx context.Context, businessID string) (domain.OwnershipState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result domain.OwnershipState
	var previousOwner string
	var newOwner string
	var previousState domain.OwnershipState
	var candidateCount int

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		business, err := s.businesses.GetForUpdateTx(ctx, tx, businessID)
		if err != nil {
			return err
		}

		candidates, err := s.profiles.OwnerCandidatesTx(ctx, tx, businessID)
		if err != nil {
			return err
		}
		candidateCount = len(candidates)

		if business.OwnerID != nil {
			previousOwner = *business.OwnerID
			for _, c := range candidates {
				if c.ID == previousOwner {
					// Steady state, nothing to do
					result = domain.OwnershipValid
					return nil
				}
			}
			previousState = domain.OwnershipDangling
		} else {
			previousState = domain.OwnershipOrphaned
		}

		if candidateCount != 1 {
			result = domain.OwnershipUnrepairable
			return errors.OwnershipUnrepairable(businessID, candidateCount)
		}

		newOwner = candidates[0].ID
		if err := s.businesses.SetOwnerTx(ctx, tx, businessID, newOwner); err != nil {
			return err
		}

		result = domain.OwnershipValid
		return nil
	})

	if err != nil {
		if errors.Is(err, errors.ErrOwnershipUnrepairable) {
			s.logger.Error().
				Str("business_id", businessID).
				Int("candidates", candidateCount).
				Msg("ownership unrepairable, operator action required")
			if s.events != nil {
				s.events.OwnershipUnrepairable(ctx, businessID, candidateCount)
			}
			return domain.OwnershipUnrepairable, err
		}
		if ctx.Err() != nil {
			// Fail closed quickly instead of stalling the caller
			return "", errors.Internal("ownership repair timed out")
		}
		return "", err
	}

	if newOwner != "" {
		s.logger.Info().
			Str("business_id", businessID).
			Str("previous_owner", previousOwner).
			Str("new_owner", newOwner).
			Str("previous_state", string(previousState)).
			Msg("ownership repaired")
		if s.events != nil {
			s.events.OwnershipRepaired(ctx, businessID, previousOwner, newOwner, previousState)
		}
	}

	return result, nil
}
