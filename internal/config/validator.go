package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate checks the whole configuration and reports every problem at
// once rather than one per restart.
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	if c.DatabasePath == "" {
		errors = append(errors, "database path is required")
	}

	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	if c.OracleModel == "" {
		errors = append(errors, "oracle model is required")
	}
	if c.OracleBaseURL == "" {
		errors = append(errors, "oracle base URL is required")
	}
	if c.OracleTimeout < time.Second {
		errors = append(errors, "oracle timeout must be at least 1 second")
	}
	if c.AcceptThreshold <= 0 || c.AcceptThreshold > 1 {
		errors = append(errors, fmt.Sprintf("accept threshold must be in (0,1], got %v", c.AcceptThreshold))
	}

	if c.CompanyThreshold < 0 || c.CompanyThreshold > 100 {
		errors = append(errors, fmt.Sprintf("company threshold must be in [0,100], got %d", c.CompanyThreshold))
	}
	if c.PlantNameThreshold < 0 || c.PlantNameThreshold > 100 {
		errors = append(errors, fmt.Sprintf("plant name threshold must be in [0,100], got %d", c.PlantNameThreshold))
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if c.LogLevel != "" {
		valid := false
		logLevelUpper := strings.ToUpper(c.LogLevel)
		for _, level := range validLogLevels {
			if logLevelUpper == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("invalid log level: %s (valid: %s)",
				c.LogLevel, strings.Join(validLogLevels, ", ")))
		}
	}

	if c.MaxConcurrentPartitions < 1 {
		errors = append(errors, "max concurrent partitions must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

// RequireOracleKey rejects configurations without an API key. Separate
// from Validate so offline commands (export, quality report) can run
// without one.
func (c *Config) RequireOracleKey() error {
	if c.OracleAPIKey == "" {
		return fmt.Errorf("oracle API key is required (set PLANTREG_ORACLE_API_KEY)")
	}
	return nil
}
