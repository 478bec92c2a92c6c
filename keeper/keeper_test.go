package keeper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	mem "scorekeeper/adapters/memory"
	"scorekeeper/core"
	"scorekeeper/engine"
	"scorekeeper/integrations/webhook"
	"scorekeeper/realtime"
)

func score(v int64) *int64 { return &v }

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	_, ch := hub.Subscribe(4)
	svc := New(
		WithRealtime(hub),
		WithStorage(mem.New()),
		WithDispatchMode(engine.DispatchSync),
	)
	defer svc.Close()

	sub, err := svc.SubmitScore(context.Background(), core.ScoreInput{Score: score(5), Name: "alice"})
	if err != nil || sub.Entry.ID != 1 {
		t.Fatalf("submit score sub=%+v err=%v", sub, err)
	}

	ev := <-ch
	if ev.Name != "alice" || ev.Type != core.EventScoreSubmitted {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestInMemoryDefault(t *testing.T) {
	svc := New(WithCapacity(1))
	defer svc.Close()
	ctx := context.Background()

	if _, err := svc.SubmitScore(ctx, core.ScoreInput{Score: score(3)}); err != nil {
		t.Fatalf("default submit: %v", err)
	}
	sub, err := svc.SubmitScore(ctx, core.ScoreInput{Score: score(1)})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if sub.Evicted == nil || sub.Evicted.Score != 1 {
		t.Fatalf("expected the new low score to be evicted, got %+v", sub.Evicted)
	}
	top, err := svc.TopScores(ctx, 0)
	if err != nil {
		t.Fatalf("top scores: %v", err)
	}
	if len(top) != 1 || top[0].Name != core.DefaultName {
		t.Fatalf("unexpected board: %+v", top)
	}
}

func TestWebhooksReceiveEvents(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	svc := New(WithDispatchMode(engine.DispatchSync), WithWebhooks(webhook.New([]string{srv.URL})))
	defer svc.Close()

	if _, err := svc.SubmitPreset(context.Background(), core.PresetInput{Name: "p"}); err != nil {
		t.Fatalf("submit preset: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected 1 webhook hit, got %d", hits)
	}
}
