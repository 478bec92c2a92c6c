package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"scorekeeper/core"
)

// Sink posts domain events to configured HTTP endpoints.
// Each endpoint sits behind its own circuit breaker so a dead receiver stops
// costing a timeout per event.
type Sink struct {
	client    *http.Client
	logger    *slog.Logger
	endpoints []endpoint

	failureThreshold uint32
	openTimeout      time.Duration
}

type endpoint struct {
	url     string
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBreaker sets how many consecutive failures open an endpoint's breaker
// and how long it stays open before a trial request.
func WithBreaker(failures uint32, open time.Duration) Option {
	return func(s *Sink) {
		if failures > 0 {
			s.failureThreshold = failures
		}
		if open > 0 {
			s.openTimeout = open
		}
	}
}

// New creates a webhook sink.
func New(urls []string, opts ...Option) *Sink {
	s := &Sink{
		client:           &http.Client{Timeout: 2 * time.Second},
		logger:           slog.Default(),
		failureThreshold: 5,
		openTimeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, u := range urls {
		s.endpoints = append(s.endpoints, endpoint{
			url: u,
			breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
				Name:    "webhook " + u,
				Timeout: s.openTimeout,
				ReadyToTrip: func(c gobreaker.Counts) bool {
					return c.ConsecutiveFailures >= s.failureThreshold
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					s.logger.Warn("webhook breaker state changed", "endpoint", name, "from", from.String(), "to", to.String())
				},
			}),
		})
	}
	return s
}

// Deliver posts the event JSON to every endpoint and joins the failures.
func (s *Sink) Deliver(ctx context.Context, e core.Event) error {
	if len(s.endpoints) == 0 {
		return nil
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	var errs []error
	for _, ep := range s.endpoints {
		_, err := ep.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, s.post(ctx, ep.url, body)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ep.url, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// OnEvent matches the event bus handler signature. Failures are logged only.
func (s *Sink) OnEvent(ctx context.Context, e core.Event) {
	if err := s.Deliver(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "webhook delivery failed", "type", e.Type, "error", err)
	}
}
