package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Client  ClientConfig
	Server  ServerConfig
	Logger  LoggerConfig
	Notices NoticeConfig
}

// ClientConfig holds settings for the coupon service client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration // 0 means no transport-level timeout
}

// ServerConfig holds settings for the bundled in-memory coupon server.
type ServerConfig struct {
	Host          string
	Port          int
	AdminUsername string
	AdminPassword string
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// NoticeConfig holds the auto-dismiss windows for workflow notices.
type NoticeConfig struct {
	ClaimSuccess time.Duration
	ClaimFailure time.Duration
	Roster       time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Client: ClientConfig{
			BaseURL: getEnv("COUPON_API_BASE_URL", "http://localhost:5000"),
			Timeout: getEnvAsSeconds("HTTP_TIMEOUT", 0),
		},
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "0.0.0.0"),
			Port:          getEnvAsInt("SERVER_PORT", 5000),
			AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Notices: NoticeConfig{
			ClaimSuccess: getEnvAsSeconds("CLAIM_SUCCESS_WINDOW", 15),
			ClaimFailure: getEnvAsSeconds("CLAIM_ERROR_WINDOW", 8),
			Roster:       getEnvAsSeconds("ROSTER_NOTICE_WINDOW", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Client.BaseURL == "" {
		return fmt.Errorf("coupon API base URL is required")
	}

	if c.Client.Timeout < 0 {
		return fmt.Errorf("invalid HTTP timeout: %s", c.Client.Timeout)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Notices.ClaimSuccess <= 0 || c.Notices.ClaimFailure <= 0 || c.Notices.Roster <= 0 {
		return fmt.Errorf("notice windows must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	return nil
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsSeconds retrieves an environment variable as a duration in whole
// seconds or returns a default value.
func getEnvAsSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}
