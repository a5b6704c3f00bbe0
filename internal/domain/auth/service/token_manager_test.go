package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenPair(t *testing.T) {
	tm := NewJWTTokenManager("test-secret", "", time.Minute, time.Hour)

	pair, err := tm.GenerateTokenPair("user-1", "ana@example.com", "ana")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, int64(60), pair.ExpiresIn)

	claims, err := tm.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "ana", claims.Username)

	refreshClaims, err := tm.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
}

func TestValidateAccessToken_RejectsRefreshToken(t *testing.T) {
	tm := NewJWTTokenManager("test-secret", "", time.Minute, time.Hour)
	pair, err := tm.GenerateTokenPair("user-1", "ana@example.com", "ana")
	require.NoError(t, err)

	_, err = tm.ValidateAccessToken(pair.RefreshToken)
	assert.Error(t, err)

	_, err = tm.ValidateRefreshToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	tm := NewJWTTokenManager("test-secret", "", time.Nanosecond, time.Hour)
	pair, err := tm.GenerateTokenPair("user-1", "ana@example.com", "ana")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = tm.ValidateAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	tm := NewJWTTokenManager("secret-a", "", time.Minute, time.Hour)
	other := NewJWTTokenManager("secret-b", "", time.Minute, time.Hour)

	pair, err := tm.GenerateTokenPair("user-1", "ana@example.com", "ana")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(pair.AccessToken)
	assert.Error(t, err)

	_, err = tm.ValidateAccessToken("not-a-jwt")
	assert.Error(t, err)
}

func TestTokenPairsAreUnique(t *testing.T) {
	tm := NewJWTTokenManager("test-secret", "", time.Minute, time.Hour)

	first, err := tm.GenerateTokenPair("user-1", "ana@example.com", "ana")
	require.NoError(t, err)
	second, err := tm.GenerateTokenPair("user-1", "ana@example.com", "ana")
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}
