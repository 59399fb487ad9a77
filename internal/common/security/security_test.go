package security

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenRoundTrip(t *testing.T) {
	InitJWT([]byte("test-secret-test-secret-test-secret"), time.Hour)

	tokenString, expiresAt, err := IssueToken(Identity{UserID: "u-1", Username: "alice", Role: "user"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	token, err := jwtauth.VerifyToken(TokenAuth, tokenString)
	require.NoError(t, err)
	claims, err := token.AsMap(context.Background())
	require.NoError(t, err)

	id, err := IdentityFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", Username: "alice", Role: "user"}, id)
}

func TestIdentityFromClaimsMissing(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		want   error
	}{
		{"no subject", map[string]any{"role": "user"}, ErrMissingSubject},
		{"subject not a string", map[string]any{"sub": 42, "role": "user"}, ErrMissingSubject},
		{"no role", map[string]any{"sub": "u-1"}, ErrMissingRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IdentityFromClaims(tt.claims)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("hunter22", hash))
	assert.False(t, CheckPasswordHash("hunter23", hash))
}
