package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CODEAPP_HOME_DIR", t.TempDir())
	t.Setenv("CODEAPP_SERVER_URL", "")
	t.Setenv("CODEAPP_PUSH_ENVIRONMENT", "")
	t.Setenv("CODEAPP_WAKEUP_INTERVAL", "")
	t.Setenv("CODEAPP_ACCESS_TOKEN", "")
	t.Setenv("DEBUG", "")
	t.Setenv("CODEAPP_DEBUG", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultServerURL, cfg.ServerURL)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, defaultWakeupInterval, cfg.WakeupInterval)
	assert.False(t, cfg.Debug)
}

func TestLoadOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CODEAPP_HOME_DIR", home)
	t.Setenv("CODEAPP_SERVER_URL", "https://staging.example.com")
	t.Setenv("CODEAPP_PUSH_ENVIRONMENT", "development")
	t.Setenv("CODEAPP_WAKEUP_INTERVAL", "5m")
	t.Setenv("CODEAPP_ACCESS_TOKEN", "tok")
	t.Setenv("CODEAPP_DEBUG", "1")
	t.Setenv("DEBUG", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, home, cfg.AppHome)
	assert.Equal(t, "https://staging.example.com", cfg.ServerURL)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5*time.Minute, cfg.WakeupInterval)
	assert.Equal(t, "tok", cfg.AccessToken)
	assert.True(t, cfg.Debug)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CODEAPP_HOME_DIR", t.TempDir())

	t.Setenv("CODEAPP_PUSH_ENVIRONMENT", "staging")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("CODEAPP_PUSH_ENVIRONMENT", "production")
	t.Setenv("CODEAPP_WAKEUP_INTERVAL", "soon")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("CODEAPP_WAKEUP_INTERVAL", "-1m")
	_, err = Load()
	require.Error(t, err)
}
