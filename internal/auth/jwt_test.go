package auth

import (
	"testing"
	"time"

	"capacity-planner-api/internal/config"

	"github.com/stretchr/testify/require"
)

func withSettings(t *testing.T, cfg config.AuthConfig) {
	t.Helper()
	prev := current()
	Configure(cfg)
	t.Cleanup(func() { Configure(prev) })
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("u-1", "alice", "e-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "e-1", claims.EmployeeID)
}

func TestValidateToken_Invalid(t *testing.T) {
	_, err := ValidateToken("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	token, err := GenerateToken("u-1", "alice", "")
	require.NoError(t, err)

	cfg := config.Default().Auth
	cfg.Audience = "someone-else"
	withSettings(t, cfg)

	_, err = ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := config.Default().Auth
	cfg.TokenTTL = -time.Minute
	withSettings(t, cfg)

	token, err := GenerateToken("u-1", "alice", "")
	require.NoError(t, err)
	_, err = ValidateToken(token)
	require.Error(t, err)
}

func TestPassword(t *testing.T) {
	_, err := HashPassword("abc")
	require.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret!", hash)
	require.True(t, CheckPassword(hash, "s3cret!"))
	require.False(t, CheckPassword(hash, "wrong"))
}
