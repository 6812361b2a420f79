package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.CalendarSync.Enabled)
	assert.Equal(t, 5*time.Second, cfg.CalendarSync.RequestTimeout)
	assert.Equal(t, CompletionDelete, cfg.CalendarSync.CompletionPolicy)
	assert.Equal(t, 30*time.Second, cfg.CalendarSync.RecordLockTTL)
	assert.Equal(t, "primary", cfg.Google.CalendarID)
	assert.False(t, cfg.Google.Configured())
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Dashboard.CacheTTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENABLE_CALENDAR_SYNC", "false")
	t.Setenv("CALENDAR_REQUEST_TIMEOUT", "2s")
	t.Setenv("CALENDAR_COMPLETION_POLICY", "Resync")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.CalendarSync.Enabled)
	assert.Equal(t, 2*time.Second, cfg.CalendarSync.RequestTimeout)
	assert.Equal(t, CompletionResync, cfg.CalendarSync.CompletionPolicy)
	assert.True(t, cfg.Google.Configured())
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("CALENDAR_REQUEST_TIMEOUT", "soon")
	t.Setenv("RECORD_LOCK_TTL", "-5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.CalendarSync.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.CalendarSync.RecordLockTTL)
}

func TestParseCompletionPolicy(t *testing.T) {
	cases := map[string]CompletionPolicy{
		"":        CompletionDelete,
		"delete":  CompletionDelete,
		" KEEP ":  CompletionKeep,
		"resync":  CompletionResync,
		"archive": CompletionDelete,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseCompletionPolicy(raw), raw)
	}
}
