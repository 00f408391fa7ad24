package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/storefront/fulfillment/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(now time.Time) *JWTService {
	svc := NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars!",
		Issuer:                "fulfillment-test",
		AccessTokenExpiration: 30 * time.Minute,
	})
	svc.now = func() time.Time { return now }
	return svc
}

func TestNewJWTService_DefaultExpiration(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "s"})
	assert.Equal(t, time.Hour, svc.Expiration())
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(now)

	token, err := svc.Issue("ops", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, now.Add(30*time.Minute), token.ExpiresAt)

	claims, err := svc.Validate(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Username)
	assert.Equal(t, "ops", claims.Subject)
	assert.True(t, claims.IsAdmin())
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, 10*time.Minute, claims.RemainingTTL(now.Add(20*time.Minute)))
	assert.Zero(t, claims.RemainingTTL(now.Add(time.Hour)))
}

func TestJWTService_Validate_Failures(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(now)
	token, err := svc.Issue("ops", RoleAdmin)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newTestJWTService(now.Add(31 * time.Minute))
		_, err := later.Validate(token.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		earlier := newTestJWTService(now.Add(-time.Hour))
		_, err := earlier.Validate(token.AccessToken)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-another-secret-000", Issuer: "fulfillment-test"})
		other.now = func() time.Time { return now }
		_, err := other.Validate(token.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars!", Issuer: "someone-else"})
		other.now = func() time.Time { return now }
		_, err := other.Validate(token.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("signature from another token", func(t *testing.T) {
		other, err := svc.Issue("someone", RoleAdmin)
		require.NoError(t, err)
		a := strings.Split(token.AccessToken, ".")
		b := strings.Split(other.AccessToken, ".")
		_, err = svc.Validate(a[0] + "." + a[1] + "." + b[2])
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Username: "ops", Role: RoleAdmin}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Validate(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate(strings.Repeat("a", 20))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
