// Package config loads the service configuration from an optional JSON
// file with environment variable overrides. Validation is fail-fast: a
// misconfigured service refuses to start.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	// Server
	Port string `json:"port"`

	// Storage
	DatabasePath string `json:"database_path"`

	// Connection pooling
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	// Classification oracle
	OracleAPIKey    string        `json:"oracle_api_key"`
	OracleModel     string        `json:"oracle_model"`
	OracleBaseURL   string        `json:"oracle_base_url"`
	OracleTimeout   time.Duration `json:"oracle_timeout"`
	AcceptThreshold float64       `json:"accept_threshold"`

	// Matching
	CompanyThreshold   int `json:"company_threshold"`
	PlantNameThreshold int `json:"plant_name_threshold"`

	// Web search context
	WebSearchEnabled  bool          `json:"web_search_enabled"`
	WebSearchTimeout  time.Duration `json:"web_search_timeout"`
	WebSearchCacheTTL time.Duration `json:"web_search_cache_ttl"`

	// Logging
	LogLevel string `json:"log_level"`

	// Run options
	MaxConcurrentPartitions int `json:"max_concurrent_partitions"`
}

// Default returns the configuration defaults applied before file and
// environment overrides.
func Default() *Config {
	return &Config{
		Port:                    "8080",
		DatabasePath:            "plantregistry.db",
		MaxOpenConns:            10,
		MaxIdleConns:            3,
		ConnMaxLifetime:         5 * time.Minute,
		OracleModel:             "gpt-4o-mini",
		OracleBaseURL:           "https://api.openai.com/v1",
		OracleTimeout:           30 * time.Second,
		AcceptThreshold:         0.88,
		CompanyThreshold:        90,
		PlantNameThreshold:      85,
		WebSearchEnabled:        true,
		WebSearchTimeout:        5 * time.Second,
		WebSearchCacheTTL:       24 * time.Hour,
		LogLevel:                "INFO",
		MaxConcurrentPartitions: 2,
	}
}

// Load builds the configuration: defaults, then the JSON file at
// configPath (skipped when empty), then environment overrides, then
// validation.
func Load(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
		slog.Info("config loaded from file", "path", configPath)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overrides fields from PLANTREG_* environment variables.
func (c *Config) applyEnv() {
	c.Port = getEnv("PLANTREG_PORT", c.Port)
	c.DatabasePath = getEnv("PLANTREG_DATABASE_PATH", c.DatabasePath)

	c.MaxOpenConns = getEnvInt("PLANTREG_MAX_OPEN_CONNS", c.MaxOpenConns)
	c.MaxIdleConns = getEnvInt("PLANTREG_MAX_IDLE_CONNS", c.MaxIdleConns)
	c.ConnMaxLifetime = getEnvDuration("PLANTREG_CONN_MAX_LIFETIME", c.ConnMaxLifetime)

	c.OracleAPIKey = getEnv("PLANTREG_ORACLE_API_KEY", c.OracleAPIKey)
	c.OracleModel = getEnv("PLANTREG_ORACLE_MODEL", c.OracleModel)
	c.OracleBaseURL = getEnv("PLANTREG_ORACLE_BASE_URL", c.OracleBaseURL)
	c.OracleTimeout = getEnvDuration("PLANTREG_ORACLE_TIMEOUT", c.OracleTimeout)
	c.AcceptThreshold = getEnvFloat("PLANTREG_ACCEPT_THRESHOLD", c.AcceptThreshold)

	c.CompanyThreshold = getEnvInt("PLANTREG_COMPANY_THRESHOLD", c.CompanyThreshold)
	c.PlantNameThreshold = getEnvInt("PLANTREG_PLANT_NAME_THRESHOLD", c.PlantNameThreshold)

	c.WebSearchEnabled = getEnv("PLANTREG_WEB_SEARCH_ENABLED", boolString(c.WebSearchEnabled)) == "true"
	c.WebSearchTimeout = getEnvDuration("PLANTREG_WEB_SEARCH_TIMEOUT", c.WebSearchTimeout)
	c.WebSearchCacheTTL = getEnvDuration("PLANTREG_WEB_SEARCH_CACHE_TTL", c.WebSearchCacheTTL)

	c.LogLevel = getEnv("PLANTREG_LOG_LEVEL", c.LogLevel)
	c.MaxConcurrentPartitions = getEnvInt("PLANTREG_MAX_CONCURRENT_PARTITIONS", c.MaxConcurrentPartitions)
}

// SlogLevel maps the configured log level onto slog. Unset or
// unrecognized levels fall back to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
