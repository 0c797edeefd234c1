package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8008, cfg.Port)
	require.Equal(t, "election-results.db", cfg.DatabasePath)
	require.Equal(t, 30*time.Second, cfg.ActiveTTL)
	require.Equal(t, 5*time.Minute, cfg.EndedTTL)
	require.Equal(t, cfg.ActiveTTL, cfg.PollInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", "/tmp/votes.db")
	t.Setenv("ACTIVE_TTL", "10s")
	t.Setenv("ENDED_TTL", "1m")
	t.Setenv("POLL_INTERVAL", "15s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "/tmp/votes.db", cfg.DatabasePath)
	require.Equal(t, 10*time.Second, cfg.ActiveTTL)
	require.Equal(t, time.Minute, cfg.EndedTTL)
	require.Equal(t, 15*time.Second, cfg.PollInterval)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("ACTIVE_TTL", "soon")
	_, err := Load()
	require.Error(t, err)
}
