package engine

import (
	"context"
	"fmt"
	"log/slog"

	"scorekeeper/core"
)

// Service wires the two stores and the event bus into the public operation set.
type Service struct {
	scores   LeaderboardStorage
	presets  PresetStorage
	bus      *EventBus
	capacity int
	limit    int
	logger   *slog.Logger
}

// ServiceOption tunes a Service.
type ServiceOption func(*Service)

// WithCapacity overrides the number of retained score entries.
func WithCapacity(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithDefaultLimit sets the leaderboard size returned for a non-positive limit.
func WithDefaultLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger used for store side effects.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(scores LeaderboardStorage, presets PresetStorage, bus *EventBus, opts ...ServiceOption) *Service {
	if scores == nil || presets == nil || bus == nil {
		panic("NewService requires non-nil score storage, preset storage, and bus")
	}
	s := &Service{
		scores:   scores,
		presets:  presets,
		bus:      bus,
		capacity: core.MaxScoreEntries,
		limit:    core.DefaultTopLimit,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe convenience method.
func (s *Service) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

// Capacity reports the retention cap applied on submit.
func (s *Service) Capacity() int { return s.capacity }

// SubmitScore validates and stores a score, evicting one lowest score when
// the board is over capacity. Returns core.ErrInvalidInput without writing
// when the score is missing.
func (s *Service) SubmitScore(ctx context.Context, in core.ScoreInput) (core.Submission, error) {
	entry, err := in.Entry()
	if err != nil {
		return core.Submission{}, err
	}
	sub, err := s.scores.SubmitScore(ctx, entry, s.capacity)
	if err != nil {
		return core.Submission{}, fmt.Errorf("submit score: %w", err)
	}
	s.bus.Publish(ctx, core.NewScoreSubmitted(sub.Entry))
	if sub.Evicted != nil {
		s.logger.InfoContext(ctx, "score purged",
			"id", sub.Evicted.ID,
			"score", sub.Evicted.Score,
			"name", sub.Evicted.Name)
		s.bus.Publish(ctx, core.NewScoreEvicted(*sub.Evicted))
	}
	return sub, nil
}

// TopScores returns up to limit entries, highest score first. A non-positive
// limit means the configured default (core.DefaultTopLimit unless overridden).
func (s *Service) TopScores(ctx context.Context, limit int) ([]core.ScoreEntry, error) {
	out, err := s.scores.TopScores(ctx, core.ClampLimit(limit, s.limit))
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	return out, nil
}

// CountScores returns the number of stored score entries.
func (s *Service) CountScores(ctx context.Context) (int, error) {
	return s.scores.CountScores(ctx)
}

// SubmitPreset stores a new preset. Duplicate names create independent records.
func (s *Service) SubmitPreset(ctx context.Context, in core.PresetInput) (core.InstructorPreset, error) {
	p, err := s.presets.SubmitPreset(ctx, in.Preset())
	if err != nil {
		return core.InstructorPreset{}, fmt.Errorf("submit preset: %w", err)
	}
	s.bus.Publish(ctx, core.NewPresetSubmitted(p))
	return p, nil
}

// ListPresets returns every stored preset ordered by name.
func (s *Service) ListPresets(ctx context.Context) ([]core.InstructorPreset, error) {
	out, err := s.presets.ListPresets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return out, nil
}

func (s *Service) Close() { s.bus.Close() }
