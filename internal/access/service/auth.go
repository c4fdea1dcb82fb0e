package service

import (
	"context"

	"github.com/tillsup/tillsup-backend/internal/access/domain"
	"github.com/tillsup/tillsup-backend/internal/access/token"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore is the profile access the auth service needs.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	SetPassword(ctx context.Context, businessID, id, passwordHash string, mustChange bool) error
}

// AuthService handles login, token refresh and password changes.
type AuthService struct {
	store  CredentialStore
	tokens *token.Manager
	logger *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store CredentialStore, tokens *token.Manager, log *logger.Logger) *AuthService {
	return &AuthService{
		store:  store,
		tokens: tokens,
		logger: log.WithComponent("auth"),
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	AccessToken        string         `json:"access_token"`
	RefreshToken       string         `json:"refresh_token"`
	TokenType          string         `json:"token_type"`
	MustChangePassword bool           `json:"must_change_password"`
	Actor              *actor.Context `json:"actor"`
}

// Login authenticates a profile and mints a token pair carrying the tenant
// claims (business, branch, role), so later requests resolve without any
// profile lookup.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	profile, err := s.store.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if !profile.IsActive {
		return nil, errors.InvalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	pair, err := s.mintPair(profile)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("actor_id", profile.ID).
		Str("business_id", profile.BusinessID).
		Msg("login succeeded")

	return &LoginResponse{
		AccessToken:        pair.AccessToken,
		RefreshToken:       pair.RefreshToken,
		TokenType:          pair.TokenType,
		MustChangePassword: profile.MustChangePassword,
		Actor:              profile.Context(),
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The profile is reloaded
// so role and branch reassignments take effect on the next access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*token.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	profile, err := s.store.GetByID(ctx, claims.ActorID)
	if err != nil {
		if errors.Is(err, errors.ErrIdentityNotFound) {
			return nil, errors.IdentityNotFound()
		}
		return nil, err
	}

	if !profile.IsActive {
		return nil, errors.Authentication("profile is deactivated")
	}

	return s.mintPair(profile)
}

// ChangePassword verifies the current password and stores a new hash,
// clearing the must_change_password flag.
func (s *AuthService) ChangePassword(ctx context.Context, ac *actor.Context, current, next string) error {
	profile, err := s.store.GetByID(ctx, ac.ID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(current)); err != nil {
		return errors.InvalidCredentials()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal("failed to hash password")
	}

	return s.store.SetPassword(ctx, profile.BusinessID, profile.ID, string(hash), false)
}

func (s *AuthService) mintPair(profile *domain.Profile) (*token.TokenPair, error) {
	branchID := ""
	if profile.BranchID != nil {
		branchID = *profile.BranchID
	}

	info := &token.ActorInfo{
		ID:         profile.ID,
		Email:      profile.Email,
		Name:       profile.Name,
		Role:       profile.Role,
		BusinessID: profile.BusinessID,
		BranchID:   branchID,

		MustChangePassword: profile.MustChangePassword,
	}

	pair, err := s.tokens.GenerateTokenPair(info, "")
	if err != nil {
		return nil, errors.Internal("failed to generate tokens")
	}
	return pair, nil
}
