package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scorekeeper/adapters/redis"
	"scorekeeper/adapters/sqlx"
	"scorekeeper/core"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"SCOREKEEPER_ENV"`
	Profile     string      `json:"profile" env:"SCOREKEEPER_PROFILE"`

	Server       ServerConfig       `json:"server"`
	Storage      StorageConfig      `json:"storage"`
	Leaderboard  LeaderboardConfig  `json:"leaderboard"`
	Logging      LoggingConfig      `json:"logging"`
	Security     SecurityConfig     `json:"security"`
	Integrations IntegrationsConfig `json:"integrations"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"SCOREKEEPER_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"SCOREKEEPER_SERVER_PATH_PREFIX"`
	CORSOrigins       []string      `json:"cors_origins" env:"SCOREKEEPER_SERVER_CORS_ORIGINS"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"SCOREKEEPER_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"SCOREKEEPER_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"SCOREKEEPER_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"SCOREKEEPER_SERVER_READ_HEADER_TIMEOUT"`
	RequestTimeout    time.Duration `json:"request_timeout" env:"SCOREKEEPER_SERVER_REQUEST_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"SCOREKEEPER_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" env:"SCOREKEEPER_STORAGE_ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty"`
	SQL     sqlx.Config  `json:"sql,omitempty"`
	File    FileConfig   `json:"file,omitempty"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"SCOREKEEPER_STORAGE_FILE_PATH"`
}

// LeaderboardConfig bounds the stored and returned score lists.
type LeaderboardConfig struct {
	Capacity     int `json:"capacity" env:"SCOREKEEPER_LEADERBOARD_CAPACITY"`
	DefaultLimit int `json:"default_limit" env:"SCOREKEEPER_LEADERBOARD_DEFAULT_LIMIT"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"SCOREKEEPER_LOG_LEVEL"`
	Format     string            `json:"format" env:"SCOREKEEPER_LOG_FORMAT"`
	Output     string            `json:"output" env:"SCOREKEEPER_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" env:"SCOREKEEPER_LOG_ATTRIBUTES" envKeyValSeparator:"="`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"SCOREKEEPER_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" env:"SCOREKEEPER_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int `json:"burst_size" env:"SCOREKEEPER_SECURITY_RATE_LIMIT_BURST"`
}

// IntegrationsConfig lists outbound event receivers.
type IntegrationsConfig struct {
	Webhooks       []string      `json:"webhooks,omitempty" env:"SCOREKEEPER_WEBHOOKS"`
	WebhookTimeout time.Duration `json:"webhook_timeout" env:"SCOREKEEPER_WEBHOOK_TIMEOUT"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file. Environment variables
// override file values.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
// Scores live in a local SQLite file, matching a single-node game backend.
func DefaultConfig() *Config {
	sqlCfg := sqlx.DefaultConfig(sqlx.DriverSQLite)
	sqlCfg.DSN = "./data/highscores.db"
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":5000",
			PathPrefix:        "",
			CORSOrigins:       []string{"*"},
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "sql",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlCfg,
			File: FileConfig{
				Path: "./data/highscores.json",
			},
		},
		Leaderboard: LeaderboardConfig{
			Capacity:     core.MaxScoreEntries,
			DefaultLimit: core.DefaultTopLimit,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 120,
				BurstSize:         20,
			},
		},
		Integrations: IntegrationsConfig{
			WebhookTimeout: 2 * time.Second,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Leaderboard.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("leaderboard config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Integrations.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("integrations config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" && cfg.Storage.SQL.Driver != sqlx.DriverSQLite {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
