package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hellofresh/health-go/v5"
	"github.com/rs/cors"

	wsadapter "scorekeeper/adapters/websocket"
	"scorekeeper/core"
	"scorekeeper/engine"
	"scorekeeper/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// CORSOrigins enables CORS for the listed origins (use "*" for any).
	CORSOrigins []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client IP.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// RequestTimeout bounds non-streaming requests. Zero means 60s.
	RequestTimeout time.Duration
	// Version is reported by the health endpoint.
	Version string
	Logger  *slog.Logger
}

// NewRouter builds an http.Handler exposing the highscore and preset API.
// Routes:
//   - POST {prefix}/submitScore
//   - GET  {prefix}/highScores?limit=10
//   - POST {prefix}/submitPreset
//   - GET  {prefix}/presets
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewRouter(svc *engine.Service, hub *realtime.Hub, opts Options) (http.Handler, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	checker, err := health.New(
		health.WithComponent(health.Component{Name: "scorekeeper", Version: opts.Version}),
		health.WithChecks(health.Config{
			Name:    "storage",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				_, err := svc.CountScores(ctx)
				return err
			},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("health checker: %w", err)
	}

	h := &handlers{svc: svc, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		r.Use(withRateLimit(opts.RateLimitRPM, opts.RateLimitBurst))
	}

	routes := func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.RequestTimeout))
			r.Post("/submitScore", h.submitScore)
			r.Get("/highScores", h.highScores)
			r.Post("/submitPreset", h.submitPreset)
			r.Get("/presets", h.presets)
			r.Method(http.MethodGet, "/healthz", checker.Handler())
		})
		// streams are long lived, so no request timeout here
		if hub != nil {
			r.Method(http.MethodGet, "/ws", wsadapter.Handler(hub, wsadapter.Options{AllowedOrigins: opts.CORSOrigins}))
		}
	}
	if prefix := trimPrefix(opts.PathPrefix); prefix != "" {
		r.Route(prefix, routes)
	} else {
		routes(r)
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	var handler http.Handler = r
	if len(opts.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         86400,
		}).Handler(handler)
	}
	return handler, nil
}

type handlers struct {
	svc    *engine.Service
	logger *slog.Logger
}

type scoreRequest struct {
	Score *int64 `json:"score"`
	Name  string `json:"name"`
}

func (h *handlers) submitScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalid(w)
		return
	}
	if _, err := h.svc.SubmitScore(r.Context(), core.ScoreInput{Score: req.Score, Name: req.Name}); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "score submitted successfully"})
}

func (h *handlers) highScores(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer", nil)
			return
		}
		limit = n
	}
	top, err := h.svc.TopScores(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (h *handlers) submitPreset(w http.ResponseWriter, r *http.Request) {
	in, err := decodePreset(r)
	if err != nil {
		writeInvalid(w)
		return
	}
	if _, err := h.svc.SubmitPreset(r.Context(), in); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "preset submitted successfully"})
}

// decodePreset accepts any subset of the tuning fields. Unknown keys and
// null values are ignored; a present field that is not an integer is an error.
func decodePreset(r *http.Request) (core.PresetInput, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return core.PresetInput{}, err
	}
	var in core.PresetInput
	if v, ok := raw["name"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &in.Name); err != nil {
			return core.PresetInput{}, fmt.Errorf("name: %w", err)
		}
	}
	in.Values = make(map[string]int64, len(core.PresetFieldNames))
	for _, key := range core.PresetFieldNames {
		v, ok := raw[key]
		if !ok || isNull(v) {
			continue
		}
		var n int64
		if err := json.Unmarshal(v, &n); err != nil {
			return core.PresetInput{}, fmt.Errorf("%s: %w", key, err)
		}
		in.Values[key] = n
	}
	return in, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func (h *handlers) presets(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPresets(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrInvalidInput) {
		writeInvalid(w)
		return
	}
	h.logger.ErrorContext(r.Context(), "request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err)
	writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
}

// Helpers

func trimPrefix(prefix string) string {
	for len(prefix) > 0 && prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	if prefix != "" && prefix[0] != '/' {
		prefix = "/" + prefix
	}
	return prefix
}

type message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSON(w, status, apiError{Code: code, Message: msg, Details: details})
}

func writeInvalid(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "invalid_input", "Invalid data", nil)
}
