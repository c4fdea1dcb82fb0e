package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/config"
	"github.com/tillsup/tillsup-backend/pkg/errors"
)

func newManager(accessExpiry time.Duration) *Manager {
	return NewManager(&config.JWTConfig{
		Secret:        "test-secret-do-not-use",
		AccessExpiry:  accessExpiry,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "tillsup-test",
	})
}

func testInfo() *ActorInfo {
	return &ActorInfo{
		ID:         "actor-1",
		Email:      "maria@tillsup.io",
		Name:       "Maria",
		Role:       actor.RoleManager,
		BusinessID: "biz-1",
		BranchID:   "branch-1",
	}
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := newManager(15 * time.Minute)

	pair, err := m.GenerateTokenPair(testInfo(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "actor-1", claims.ActorID)
	assert.Equal(t, "biz-1", claims.BusinessID)
	assert.Equal(t, "branch-1", claims.BranchID)
	assert.Equal(t, "manager", claims.Role)

	refresh, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "actor-1", refresh.ActorID)
	assert.Equal(t, "session-1", refresh.SessionID)
}

func TestValidateExpiredToken(t *testing.T) {
	m := newManager(-time.Minute)

	pair, err := m.GenerateTokenPair(testInfo(), "")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
}

func TestValidateTokenWrongSecret(t *testing.T) {
	m := newManager(15 * time.Minute)
	other := NewManager(&config.JWTConfig{
		Secret:        "a-different-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "tillsup-test",
	})

	pair, err := other.GenerateTokenPair(testInfo(), "")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestValidateGarbage(t *testing.T) {
	m := newManager(15 * time.Minute)

	_, err := m.ValidateAccessToken("not-a-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))

	_, err = m.ValidateRefreshToken("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}
