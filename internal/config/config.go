// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server        ServerConfig
	Cache         CacheConfig
	DocDB         DocDBConfig
	Vault         VaultConfig
	ChatService   ChatServiceConfig
	Authorization AuthorizationConfig
	Scenarios     ScenarioConfig
	Archive       ArchiveConfig
	Log           LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host           string
	Port           int
	GinMode        string
	AllowedOrigins []string
	// EventKeepAlive is the SSE comment and websocket ping interval.
	EventKeepAlive time.Duration
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds cache-related configuration.
type CacheConfig struct {
	Type        string
	Host        string
	Port        string
	Password    string
	DB          int
	TTL         time.Duration
	SnapshotTTL time.Duration
}

// DocDBConfig holds document database configuration.
type DocDBConfig struct {
	Type     string
	URI      string
	Database string
}

// VaultConfig holds vault configuration.
type VaultConfig struct {
	Type          string
	EncryptionKey string
}

// ChatServiceConfig holds the backend agent service configuration.
type ChatServiceConfig struct {
	BaseURL         string
	Timeout         time.Duration
	ExchangeTimeout time.Duration
}

// AuthorizationConfig holds the consent polling configuration.
type AuthorizationConfig struct {
	// TriggerMode is "browser" or "http".
	TriggerMode   string
	ExpectedState string
	PollInterval  time.Duration
	MaxAttempts   int
}

// ScenarioConfig holds the explanation catalog configuration.
type ScenarioConfig struct {
	// CatalogPath points at a JSON catalog; empty uses the built-in one.
	CatalogPath string
}

// ArchiveConfig holds the transcript archive worker configuration.
type ArchiveConfig struct {
	Enabled    bool
	BufferSize int
	Workers    int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8086),
			GinMode:        getEnv("GIN_MODE", "debug"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			EventKeepAlive: time.Duration(getEnvAsInt("EVENTS_KEEPALIVE_SECONDS", 25)) * time.Second,
		},
		Cache: CacheConfig{
			Type:        getEnv("CACHE_TYPE", "redis"),
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			TTL:         time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
			SnapshotTTL: time.Duration(getEnvAsInt("SNAPSHOT_TTL_SECONDS", 86400)) * time.Second,
		},
		DocDB: DocDBConfig{
			Type:     getEnv("DOCDB_TYPE", "mongodb"),
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "chatbridge"),
		},
		Vault: VaultConfig{
			Type:          getEnv("VAULT_TYPE", "dotenv"),
			EncryptionKey: getEnv("SECRETS_ENCRYPTION_KEY", ""),
		},
		ChatService: ChatServiceConfig{
			BaseURL:         strings.TrimRight(getEnv("CHAT_SERVICE_URL", "http://localhost:8000"), "/"),
			Timeout:         time.Duration(getEnvAsInt("CHAT_SERVICE_TIMEOUT_SECONDS", 30)) * time.Second,
			ExchangeTimeout: time.Duration(getEnvAsInt("CHAT_EXCHANGE_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Authorization: AuthorizationConfig{
			TriggerMode:   getEnv("AUTH_TRIGGER_MODE", "browser"),
			ExpectedState: getEnv("AUTH_EXPECTED_STATE", "BOOKING_AUTHORIZED"),
			PollInterval:  time.Duration(getEnvAsInt("AUTH_POLL_INTERVAL_SECONDS", 5)) * time.Second,
			MaxAttempts:   getEnvAsInt("AUTH_POLL_MAX_ATTEMPTS", 12),
		},
		Scenarios: ScenarioConfig{
			CatalogPath: getEnv("SCENARIO_CATALOG_PATH", ""),
		},
		Archive: ArchiveConfig{
			Enabled:    getEnvAsBool("ARCHIVE_ENABLED", true),
			BufferSize: getEnvAsInt("ARCHIVE_BUFFER_SIZE", 256),
			Workers:    getEnvAsInt("ARCHIVE_WORKERS", 2),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.ChatService.BaseURL == "" {
		return fmt.Errorf("CHAT_SERVICE_URL is required")
	}
	if c.Authorization.ExpectedState == "" {
		return fmt.Errorf("AUTH_EXPECTED_STATE must not be empty")
	}
	if c.Authorization.PollInterval <= 0 {
		return fmt.Errorf("AUTH_POLL_INTERVAL_SECONDS must be positive")
	}
	if c.Authorization.MaxAttempts <= 0 {
		return fmt.Errorf("AUTH_POLL_MAX_ATTEMPTS must be positive")
	}
	switch c.Authorization.TriggerMode {
	case "browser", "http":
	default:
		return fmt.Errorf("unsupported AUTH_TRIGGER_MODE: %s", c.Authorization.TriggerMode)
	}
	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
