// Package keeper assembles a ready-to-use engine.Service from options.
package keeper

import (
	"context"
	"log/slog"

	mem "scorekeeper/adapters/memory"
	"scorekeeper/core"
	"scorekeeper/engine"
	"scorekeeper/integrations/webhook"
	"scorekeeper/realtime"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	storage  engine.Storage
	mode     engine.DispatchMode
	hub      *realtime.Hub
	sink     *webhook.Sink
	capacity int
	limit    int
	logger   *slog.Logger
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all service events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithWebhooks forwards all service events to the sink.
func WithWebhooks(s *webhook.Sink) Option { return func(c *config) { c.sink = s } }

// WithCapacity overrides the number of retained score entries.
func WithCapacity(n int) Option { return func(c *config) { c.capacity = n } }

// WithDefaultLimit sets the leaderboard size returned for a non-positive limit.
func WithDefaultLimit(n int) Option { return func(c *config) { c.limit = n } }

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// New builds a configured Service. If not provided, defaults are used:
//   - storage: in-memory
//   - dispatch: async
//   - capacity: core.MaxScoreEntries
//   - default limit: core.DefaultTopLimit
func New(opts ...Option) *engine.Service {
	cfg := &config{mode: engine.DispatchAsync, capacity: core.MaxScoreEntries, limit: core.DefaultTopLimit}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}
	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewService(cfg.storage, cfg.storage, bus,
		engine.WithCapacity(cfg.capacity),
		engine.WithDefaultLimit(cfg.limit),
		engine.WithLogger(cfg.logger))
	if cfg.hub != nil {
		bus.Subscribe(engine.AllEvents, func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
	}
	if cfg.sink != nil {
		bus.Subscribe(engine.AllEvents, cfg.sink.OnEvent)
	}
	return svc
}
