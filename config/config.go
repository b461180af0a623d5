package config

import (
	"os"
	"strconv"

	"github.com/DaveBieleveld/TrackTime365/pkg/apperr"
)

type Config struct {
	Environment string
	LogLevel    string
	StatusPort  string

	// Database
	DatabaseURL string
	RedisURL    string

	// Microsoft Graph application registration
	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string

	// Sync
	SyncIntervalMin  int
	SyncWindowDays   int
	ErrorCooldownSec int
	RunLockTTLMin    int
}

// Load reads configuration from the environment. Missing credentials or a
// missing database URL are configuration errors: the process cannot do
// anything useful without them.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		StatusPort:  getEnv("STATUS_PORT", "8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		GraphTenantID:     getEnv("GRAPH_TENANT_ID", ""),
		GraphClientID:     getEnv("GRAPH_CLIENT_ID", ""),
		GraphClientSecret: getEnv("GRAPH_CLIENT_SECRET", ""),

		SyncIntervalMin:  getEnvInt("SYNC_INTERVAL_MINUTES", 15),
		SyncWindowDays:   getEnvInt("SYNC_WINDOW_DAYS", 7),
		ErrorCooldownSec: getEnvInt("ERROR_COOLDOWN_SECONDS", 60),
		RunLockTTLMin:    getEnvInt("RUN_LOCK_TTL_MINUTES", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, apperr.ConfigError("DATABASE_URL is required")
	}
	if cfg.GraphTenantID == "" || cfg.GraphClientID == "" || cfg.GraphClientSecret == "" {
		return nil, apperr.ConfigError("GRAPH_TENANT_ID, GRAPH_CLIENT_ID and GRAPH_CLIENT_SECRET are required")
	}
	if cfg.SyncIntervalMin < 1 {
		return nil, apperr.ConfigError("SYNC_INTERVAL_MINUTES must be at least 1")
	}
	if cfg.SyncWindowDays < 1 {
		return nil, apperr.ConfigError("SYNC_WINDOW_DAYS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
