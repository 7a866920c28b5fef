package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyAthleteToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"))

	token, err := issuer.GenerateToken("athlete-1", RoleAthlete, time.Hour)
	require.NoError(t, err)

	id, err := issuer.VerifyToken(token)
	require.NoError(t, err)
	assert.True(t, id.IsAthlete())
	assert.False(t, id.IsAdmin())
	assert.Equal(t, "athlete-1", id.AthleteID)
}

func TestGenerateAndVerifyAdminToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"))

	token, err := issuer.GenerateToken("admin@example.com", RoleAdmin, time.Hour)
	require.NoError(t, err)

	id, err := issuer.VerifyToken(token)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
	assert.Empty(t, id.AthleteID)
	assert.Equal(t, "admin@example.com", id.Subject)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"))
	issuer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	token, err := issuer.GenerateToken("athlete-1", RoleAthlete, 24*time.Hour)
	require.NoError(t, err)

	_, err = issuer.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	other := NewTokenIssuer([]byte("other-secret"))
	token, err := other.GenerateToken("athlete-1", RoleAthlete, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenIssuer([]byte("secret")).VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"))
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.VerifyToken(token)
		assert.Error(t, err, token)
	}
}

func TestGenerateTokenValidatesInput(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"))

	_, err := issuer.GenerateToken("", RoleAthlete, time.Hour)
	assert.ErrorIs(t, err, ErrMissingClaim)

	_, err = issuer.GenerateToken("x", "superuser", time.Hour)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestIdentityFromClaimsRejectsUnknownRole(t *testing.T) {
	_, err := IdentityFromClaims(map[string]interface{}{"user_id": "x", "role": "editor"})
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = IdentityFromClaims(map[string]interface{}{"role": "admin"})
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPasswordHash("secret1", hash))
	assert.False(t, CheckPasswordHash("secret2", hash))
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("admin@x.com", "admin@x.com"))
	assert.False(t, ConstantTimeEqual("admin@x.com", "admin@y.com"))
	assert.False(t, ConstantTimeEqual("short", "longer-value"))
}
