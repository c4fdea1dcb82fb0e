package service

import (
	"context"
	"time"

	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/internal/access/token"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/config"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

// ProfileGetter is the privileged, non-recursive identity lookup. It reads
// the profiles table directly with service-level trust - there is no policy
// layer underneath it to re-enter.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

// IdentityResolver turns a bearer token into an actor context.
//
// The normal path is claims-only: business, branch and role are embedded in
// the signed token, so resolution needs zero table reads. Tokens minted
// before tenant claims were embedded fall back to a single bounded profile
// lookup. Either way resolution terminates in O(1) lookups and the result
// is cached on the request context for all later checks.
type IdentityResolver struct {
	tokens   *token.Manager
	profiles ProfileGetter
	timeout  time.Duration
	logger   *logger.Logger
}

// NewIdentityResolver creates a new identity resolver
func NewIdentityResolver(tokens *token.Manager, profiles ProfileGetter, cfg *config.AccessConfig, log *logger.Logger) *IdentityResolver {
	return &IdentityResolver{
		tokens:   tokens,
		profiles: profiles,
		timeout:  cfg.ResolveTimeout,
		logger:   log.WithComponent("resolver"),
	}
}

// Resolve validates the token and returns the actor context.
// Returns an authentication error for bad/expired tokens, and
// IdentityNotFound when the token is valid but no profile row exists,
// so callers can route orphaned accounts to provisioning or support.
func (r *IdentityResolver) Resolve(ctx context.Context, tokenString string) (*actor.Context, error) {
	claims, err := r.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.BusinessID != "" {
		role := actor.Role(claims.Role)
		if !role.Valid() {
			return nil, errors.TokenInvalid()
		}
		return &actor.Context{
			ID:                 claims.ActorID,
			BusinessID:         claims.BusinessID,
			BranchID:           claims.BranchID,
			Role:               role,
			Email:              claims.Email,
			MustChangePassword: claims.MustChangePassword,
		}, nil
	}

	// Legacy token without tenant claims: one privileged lookup, bounded.
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	profile, err := r.profiles.GetByID(lookupCtx, claims.ActorID)
	if err != nil {
		if errors.Is(err, errors.ErrIdentityNotFound) {
			return nil, errors.IdentityNotFound()
		}
		if lookupCtx.Err() != nil {
			r.logger.Error().Str("actor_id", claims.ActorID).Msg("identity lookup timed out")
			return nil, errors.Internal("identity lookup timed out")
		}
		return nil, err
	}

	if !profile.IsActive {
		return nil, errors.Authentication("profile is deactivated")
	}

	return profile.Context(), nil
}
