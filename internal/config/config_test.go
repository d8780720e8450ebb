package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-clinic-portal/internal/config"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("BACKEND_URL", "")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.False(t, c.IsProduction())
	require.False(t, c.GetSecureCookies())
	require.Equal(t, "http://localhost:4000", c.GetBackendURL())
	require.Equal(t, 15*time.Second, c.GetBackendTimeout())
	require.Equal(t, "memory", c.GetSnapshotStore())
}

func TestNew_ProductionAndOrigins(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PORT", ":9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "6")
	t.Setenv("LOGIN_RATE_BURST", "2")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, ":9000", c.GetPort())
	require.True(t, c.IsProduction())
	require.True(t, c.GetSecureCookies())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example.com"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("https://c.example.com"))

	limit, burst := c.GetLoginRateLimit()
	require.Equal(t, rate.Every(10*time.Second), limit)
	require.Equal(t, 2, burst)
}
