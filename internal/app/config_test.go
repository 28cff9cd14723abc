package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CSRF_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 30*time.Second, cfg.AppRequestTimeout)
	require.Equal(t, 8, cfg.FeeBatchConcurrency)
	require.Equal(t, 60, cfg.RateLimitPerMinute)
	require.Equal(t, "portal_session", cfg.SessionCookie)
	require.False(t, cfg.MigrateOnStart)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CSRF_SECRET", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LEDGER_FEE_BATCH_CONCURRENCY", "3")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 3, cfg.FeeBatchConcurrency)
	require.True(t, cfg.MigrateOnStart)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing csrf secret":  {"CSRF_SECRET": ""},
		"zero concurrency":     {"CSRF_SECRET": "secret", "LEDGER_FEE_BATCH_CONCURRENCY": "0"},
		"negative rate limit":  {"CSRF_SECRET": "secret", "RATE_LIMIT_PER_MINUTE": "-1"},
		"unparseable duration": {"CSRF_SECRET": "secret", "SESSION_TTL": "forever"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestNilConfigIsNotProduction(t *testing.T) {
	var cfg *Config
	require.False(t, cfg.IsProduction())
}
