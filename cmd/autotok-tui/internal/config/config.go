// Package config provides configuration management for the AutoTok TUI.
package config

import (
	"os"
	"time"
)

// Config holds the TUI configuration.
type Config struct {
	// ServerConfigPath points at the server's YAML config. Empty means
	// environment variables and defaults only.
	ServerConfigPath string

	// Refresh interval for the account and video tables.
	Refresh time.Duration

	// ConfirmDelete asks before removing an account.
	ConfirmDelete bool
}

// Load returns configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ServerConfigPath: getEnv("AUTOTOK_CONFIG", ""),
		Refresh:          getDuration("AUTOTOK_TUI_REFRESH", 5*time.Second),
		ConfirmDelete:    getEnv("AUTOTOK_TUI_CONFIRM", "true") != "false",
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}
