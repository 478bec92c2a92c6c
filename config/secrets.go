package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scorekeeper/adapters/sqlx"
)

// ErrSecretNotFound is returned when a store has no value for a key.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore resolves named secrets.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, def string) string
}

// EnvironmentSecretStore reads secrets from process environment variables.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrSecretNotFound)
	}
	return v, nil
}

func (s EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	if v, err := s.Get(ctx, key); err == nil {
		return v
	}
	return def
}

// FileSecretStore reads one secret per file from a directory, such as the
// /run/secrets mount used by container orchestrators. Trailing newlines are trimmed.
type FileSecretStore struct {
	Dir string
}

func NewFileSecretStore(dir string) *FileSecretStore { return &FileSecretStore{Dir: dir} }

func (s FileSecretStore) Get(_ context.Context, key string) (string, error) {
	if strings.ContainsAny(key, `/\`) || key == ".." {
		return "", fmt.Errorf("invalid secret key %q", key)
	}
	b, err := os.ReadFile(filepath.Join(s.Dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", key, ErrSecretNotFound)
	}
	if err != nil {
		return "", err
	}
	v := strings.TrimRight(string(b), "\r\n")
	if v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrSecretNotFound)
	}
	return v, nil
}

func (s FileSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	if v, err := s.Get(ctx, key); err == nil {
		return v
	}
	return def
}

// Secret keys consulted by LoadSecrets.
const (
	SecretSQLDSN        = "SCOREKEEPER_SQL_DSN"
	SecretRedisPassword = "SCOREKEEPER_REDIS_PASSWORD"
)

// LoadSecrets fills credentials for the selected storage adapter from store.
// A missing SQL DSN is an error for non-SQLite drivers; a missing Redis
// password leaves the configured value.
func (c *Config) LoadSecrets(ctx context.Context, store SecretStore) error {
	switch c.Storage.Adapter {
	case "sql":
		dsn, err := store.Get(ctx, SecretSQLDSN)
		switch {
		case err == nil:
			c.Storage.SQL.DSN = dsn
		case errors.Is(err, ErrSecretNotFound) && c.Storage.SQL.Driver == sqlx.DriverSQLite:
		default:
			return fmt.Errorf("load sql dsn: %w", err)
		}
	case "redis":
		c.Storage.Redis.Password = store.GetWithDefault(ctx, SecretRedisPassword, c.Storage.Redis.Password)
	}
	return nil
}

// LoadSecretsFromEnv is LoadSecrets backed by environment variables.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	return c.LoadSecrets(ctx, NewEnvironmentSecretStore())
}
