package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/clinic?sslmode=disable")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(false)
	require.NoError(t, err)

	require.Equal(t, "5000", cfg.Port)
	require.Equal(t, ":5000", cfg.Addr())
	require.True(t, cfg.IsDevelopment())
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 168*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.False(t, cfg.Auth.RefreshRevocation)
	require.Equal(t, 10, cfg.Auth.LoginRateLimitMax)
	require.Equal(t, time.Minute, cfg.Auth.LoginRateLimitSpan)
	require.Equal(t, 10, cfg.DB.MaxOpenConns)
	require.Equal(t, 500, cfg.CleanupBatchSize)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL", "1h")
	t.Setenv("REFRESH_TOKEN_REVOCATION", "true")
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "8080")
	t.Setenv("SENTRY_RELEASE", "medicare-pro@1.4.0")

	cfg, err := Load(false)
	require.NoError(t, err)

	require.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	require.True(t, cfg.Auth.RefreshRevocation)
	require.False(t, cfg.IsDevelopment())
	require.Equal(t, ":8080", cfg.Addr())
	require.Equal(t, "medicare-pro@1.4.0", cfg.Release)
}

func TestLoad_MissingSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load(false)
	require.Error(t, err)
}

func TestLoad_SharedSecretRejected(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_REFRESH_SECRET", "access-secret")

	_, err := Load(false)
	require.ErrorIs(t, err, ErrSharedSecret)
}

func TestLoad_RefreshShorterThanAccess(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL", "2h")
	t.Setenv("REFRESH_TOKEN_TTL", "1h")

	_, err := Load(false)
	require.Error(t, err)
}
