package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"scorekeeper/core"
)

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1)

	ev := core.NewScoreSubmitted(core.ScoreEntry{ID: 3, Score: 10, Name: "bob"})
	h.Broadcast(context.Background(), ev)

	received := <-ch
	if received.Name != "bob" || received.Type != core.EventScoreSubmitted {
		t.Fatalf("unexpected event: %+v", received)
	}

	h.Unsubscribe(id)
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", h.Subscribers())
	}
}

func TestHubTypeFilter(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(4, core.EventPresetSubmitted)

	h.Broadcast(context.Background(), core.NewScoreSubmitted(core.ScoreEntry{ID: 1, Score: 1, Name: "x"}))
	h.Broadcast(context.Background(), core.NewPresetSubmitted(core.InstructorPreset{ID: 9, Name: "calm"}))

	got := <-ch
	if got.Type != core.EventPresetSubmitted || got.ID != 9 {
		t.Fatalf("unexpected event: %+v", got)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra event: %+v", extra)
	default:
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	_, _ = h.Subscribe(1)
	ev := core.NewScoreEvicted(core.ScoreEntry{ID: 1})
	h.Broadcast(context.Background(), ev)
	h.Broadcast(context.Background(), ev)
	if h.Dropped() != 1 {
		t.Fatalf("expected 1 dropped, got %d", h.Dropped())
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	_, a := h.Subscribe(1)
	_, b := h.Subscribe(1)
	h.Close()
	if _, ok := <-a; ok {
		t.Fatal("expected a closed")
	}
	if _, ok := <-b; ok {
		t.Fatal("expected b closed")
	}
}

func TestMarshalJSON(t *testing.T) {
	ev := core.NewPresetSubmitted(core.InstructorPreset{ID: 2, Name: "swarm"})
	b := MarshalJSON(ev)
	var out core.Event
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Name != "swarm" || out.ID != 2 {
		t.Fatalf("unexpected event: %+v", out)
	}
}
