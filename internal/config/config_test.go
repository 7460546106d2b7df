package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
	"github.com/verishda/verishda/internal/config"
)

func TestServerConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		c, err := config.NewWithLookuper(ctx, envconfig.MapLookuper(map[string]string{}))
		require.NoError(t, err)
		require.Equal(t, ":8080", c.GetPort())
		require.Equal(t, "DEV", c.GetEnv())
		require.Equal(t, 10*time.Minute, c.GetPendingLoginTTL())
		require.Equal(t, time.Minute, c.GetPendingLoginSweepInterval())
		require.True(t, c.GetEnableRateLimiting())
		require.Empty(t, c.GetOTLPEndpoint())
	})

	t.Run("overrides", func(t *testing.T) {
		c, err := config.NewWithLookuper(ctx, envconfig.MapLookuper(map[string]string{
			"PORT":                  ":9000",
			"PENDING_LOGIN_TTL":     "30s",
			"RATE_LIMIT_PER_MINUTE": "0",
		}))
		require.NoError(t, err)
		require.Equal(t, ":9000", c.GetPort())
		require.Equal(t, 30*time.Second, c.GetPendingLoginTTL())
		require.False(t, c.GetEnableRateLimiting())
	})

	t.Run("malformed duration", func(t *testing.T) {
		_, err := config.NewWithLookuper(ctx, envconfig.MapLookuper(map[string]string{
			"PENDING_LOGIN_TTL": "soon",
		}))
		require.Error(t, err)
	})
}

func TestClientConfig(t *testing.T) {
	ctx := context.Background()

	c, err := config.NewClientWithLookuper(ctx, envconfig.MapLookuper(map[string]string{
		"API_BASE_URL": "http://localhost:8080",
	}))
	require.NoError(t, err)
	require.Equal(t, "verishda-windows", c.ClientID)
	require.Equal(t, "http://localhost:8080", c.APIBaseURL)
	require.Equal(t, 5*time.Minute, c.SiteRefreshInterval)
	require.Equal(t, time.Minute, c.PresenceRefreshInterval)
	require.Equal(t, 100.0, c.GeofenceRadiusMeters)
}
