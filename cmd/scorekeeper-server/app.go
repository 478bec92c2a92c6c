package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"scorekeeper/adapters/jsonfile"
	mem "scorekeeper/adapters/memory"
	redisAdapter "scorekeeper/adapters/redis"
	sqlxAdapter "scorekeeper/adapters/sqlx"
	"scorekeeper/api/httpapi"
	"scorekeeper/config"
	"scorekeeper/engine"
	"scorekeeper/integrations/webhook"
	"scorekeeper/keeper"
	"scorekeeper/realtime"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Service *engine.Service
	Handler http.Handler
	Server  *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := os.Getenv("SCOREKEEPER_CONFIG_FILE"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if cfg.Environment == config.EnvProduction {
		if err := cfg.LoadSecretsFromEnv(ctx); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.Storage, func(), error) {
	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Error("failed to close storage", "error", err)
			}
		}
	}
	return store, cleanup, nil
}

func provideWebhooks(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	if len(cfg.Integrations.Webhooks) == 0 {
		return nil
	}
	return webhook.New(cfg.Integrations.Webhooks,
		webhook.WithClient(&http.Client{Timeout: cfg.Integrations.WebhookTimeout}),
		webhook.WithLogger(logger))
}

func provideService(cfg *config.Config, logger *slog.Logger, hub *realtime.Hub, storage engine.Storage, sink *webhook.Sink) (*engine.Service, func()) {
	opts := []keeper.Option{
		keeper.WithStorage(storage),
		keeper.WithRealtime(hub),
		keeper.WithDispatchMode(engine.DispatchAsync),
		keeper.WithCapacity(cfg.Leaderboard.Capacity),
		keeper.WithDefaultLimit(cfg.Leaderboard.DefaultLimit),
		keeper.WithLogger(logger),
	}
	if sink != nil {
		opts = append(opts, keeper.WithWebhooks(sink))
	}
	svc := keeper.New(opts...)
	return svc, func() {
		svc.Close()
		hub.Close()
	}
}

func provideHandler(cfg *config.Config, svc *engine.Service, hub *realtime.Hub, logger *slog.Logger) (http.Handler, error) {
	return httpapi.NewRouter(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		CORSOrigins:      cfg.Server.CORSOrigins,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		RequestTimeout:   cfg.Server.RequestTimeout,
		Version:          version,
		Logger:           logger,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	var out io.Writer = os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(_ context.Context, cfg *config.Config) (engine.Storage, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		if cfg.Storage.SQL.Driver == sqlxAdapter.DriverSQLite {
			if err := ensureSQLiteDir(cfg.Storage.SQL.DSN); err != nil {
				return nil, err
			}
		}
		return sqlxAdapter.New(cfg.Storage.SQL)
	case "file":
		return jsonfile.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}

// ensureSQLiteDir creates the parent directory of a file-backed SQLite DSN.
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sqlite directory: %w", err)
	}
	return nil
}
