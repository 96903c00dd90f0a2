// Package config loads bibliod configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bibliod/bibliod/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage StorageConfig

	// Auth configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AllowedOrigins  []string

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	// Type selects the backend: "postgres" or "sqlite"
	Type string

	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	SQLitePath string
}

// AuthConfig holds token and password hashing configuration
type AuthConfig struct {
	// SigningKey signs bearer tokens. Required; no default.
	SigningKey string

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// BcryptCost is the cost parameter for password hashing.
	BcryptCost int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BIBLIOD_HOST", "0.0.0.0"),
		Port:            getEnv("BIBLIOD_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BIBLIOD_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BIBLIOD_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BIBLIOD_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BIBLIOD_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("BIBLIOD_MAX_BODY_BYTES", 1<<20),
		AllowedOrigins:  strings.Split(getEnv("BIBLIOD_ALLOWED_ORIGINS", "*"), ","),
		HealthPort:      getEnv("BIBLIOD_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Type:             getEnv("BIBLIOD_STORAGE_TYPE", "sqlite"),
		PostgresURL:      getEnv("BIBLIOD_POSTGRES_URL", ""),
		PostgresMaxConns: getEnvInt("BIBLIOD_POSTGRES_MAX_CONNS", 25),
		PostgresMinConns: getEnvInt("BIBLIOD_POSTGRES_MIN_CONNS", 5),
		PostgresTimeout:  getEnvDuration("BIBLIOD_POSTGRES_TIMEOUT", 10*time.Second),
		SQLitePath:       getEnv("BIBLIOD_SQLITE_PATH", "bibliod.db"),
	}
}

// loadAuthConfig loads auth configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		SigningKey: getEnv("BIBLIOD_SIGNING_KEY", ""),
		TokenTTL:   getEnvDuration("BIBLIOD_TOKEN_TTL", 30*time.Minute),
		BcryptCost: getEnvInt("BIBLIOD_BCRYPT_COST", 0),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("BIBLIOD_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("BIBLIOD_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be postgres or sqlite)", c.Storage.Type)
	}

	if c.Auth.SigningKey == "" {
		return fmt.Errorf("signing key is required (set BIBLIOD_SIGNING_KEY)")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
