package config

import (
	"fmt"
	"time"

	"scorekeeper/adapters/sqlx"
)

// LoadProfile returns the validated preset configuration for a named
// environment. Environment variables are not applied.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name

	switch Environment(name) {
	case EnvDevelopment:
		cfg.Environment = EnvDevelopment
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Storage.Adapter = "memory"
		cfg.Logging.Level = "warn"
		cfg.Logging.Format = "text"
		cfg.Server.Address = "127.0.0.1:0"
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Storage.SQL = sqlx.DefaultConfig(sqlx.DriverPostgres)
		cfg.Security.EnableRateLimit = true
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Storage.SQL = sqlx.DefaultConfig(sqlx.DriverPostgres)
		cfg.Storage.SQL.MaxOpenConns = 25
		cfg.Storage.SQL.MaxIdleConns = 10
		cfg.Storage.SQL.AutoMigrate = false
		cfg.Security.EnableRateLimit = true
		cfg.Server.ShutdownTimeout = 60 * time.Second
		cfg.Logging.Attributes = map[string]string{"service": "scorekeeper"}
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	return cfg, nil
}
