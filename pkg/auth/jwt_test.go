package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	token, ttl, err := svc.GenerateAccessToken("rose.gomez@example.com", "stage_tenant")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "rose.gomez@example.com", claims.Username)
	assert.Equal(t, "stage_tenant", claims.Tenant)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer := NewJWTService("secret", time.Hour)
	other := NewJWTService("other-secret", time.Hour)

	token, _, err := other.GenerateAccessToken("a", "t")
	require.NoError(t, err)
	_, err = issuer.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := &hmacService{secret: []byte("secret"), expiry: time.Minute, now: func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}}
	token, _, err = expired.GenerateAccessToken("a", "t")
	require.NoError(t, err)
	_, err = issuer.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
