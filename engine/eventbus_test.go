package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"scorekeeper/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventScoreSubmitted, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewScoreSubmitted(core.ScoreEntry{ID: 1, Score: 1}))
	bus.Publish(context.Background(), core.NewScoreEvicted(core.ScoreEntry{ID: 1, Score: 1}))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusAllEventsAndUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	unsub := bus.Subscribe(AllEvents, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewScoreSubmitted(core.ScoreEntry{ID: 1}))
	bus.Publish(context.Background(), core.NewPresetSubmitted(core.InstructorPreset{ID: 1}))
	unsub()
	bus.Publish(context.Background(), core.NewScoreSubmitted(core.ScoreEntry{ID: 2}))
	if count != 2 {
		t.Fatalf("want 2 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventScoreSubmitted, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewScoreSubmitted(core.ScoreEntry{ID: 1, Score: 1}))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusCloseDrains(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	var seen atomic.Int64
	bus.Subscribe(AllEvents, func(ctx context.Context, e core.Event) { seen.Add(1) })
	for i := 0; i < 50; i++ {
		bus.Publish(context.Background(), core.NewScoreSubmitted(core.ScoreEntry{ID: int64(i)}))
	}
	bus.Close()
	bus.Close()
	if got := seen.Load() + bus.Dropped(); got != 50 {
		t.Fatalf("expected all 50 events handled or dropped, got %d", got)
	}
}
