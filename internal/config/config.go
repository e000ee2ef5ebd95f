package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	// ServerURL is the base URL of the backend API.
	ServerURL string

	// AppHome is the directory where the coordinator stores local state
	// (recovery flags, the offline decision queue).
	AppHome string

	// AccessToken is the bearer token used for backend calls and the
	// realtime channel.
	AccessToken string

	// Environment is the push environment reported during activity token
	// registration ("production" or "development").
	Environment string

	// WakeupInterval is the cadence of the low-frequency background wake-up.
	WakeupInterval time.Duration

	// Debug enables verbose logging.
	Debug bool
}

const (
	defaultServerURL      = "https://api.claudecodeapp.dev"
	defaultEnvironment    = "production"
	defaultWakeupInterval = 15 * time.Minute
)

// Load loads configuration from environment and defaults.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	appHome := os.Getenv("CODEAPP_HOME_DIR")
	if appHome == "" {
		appHome = filepath.Join(homeDir, ".claudecodeapp")
	}
	if err := os.MkdirAll(appHome, 0700); err != nil {
		return nil, fmt.Errorf("failed to create app home: %w", err)
	}

	serverURL := os.Getenv("CODEAPP_SERVER_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}

	environment := os.Getenv("CODEAPP_PUSH_ENVIRONMENT")
	switch environment {
	case "":
		environment = defaultEnvironment
	case "production", "development":
	default:
		return nil, fmt.Errorf("invalid CODEAPP_PUSH_ENVIRONMENT %q (expected production or development)", environment)
	}

	wakeupInterval := defaultWakeupInterval
	if raw := os.Getenv("CODEAPP_WAKEUP_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid CODEAPP_WAKEUP_INTERVAL %q", raw)
		}
		wakeupInterval = parsed
	}

	debug := os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1"
	if !debug {
		debug = os.Getenv("CODEAPP_DEBUG") == "true" || os.Getenv("CODEAPP_DEBUG") == "1"
	}

	return &Config{
		ServerURL:      serverURL,
		AppHome:        appHome,
		AccessToken:    os.Getenv("CODEAPP_ACCESS_TOKEN"),
		Environment:    environment,
		WakeupInterval: wakeupInterval,
		Debug:          debug,
	}, nil
}
