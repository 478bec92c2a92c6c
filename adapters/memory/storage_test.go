package memory

import (
	"context"
	"sync"
	"testing"

	"scorekeeper/core"
	"scorekeeper/engine"
	"scorekeeper/engine/storagetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) engine.Storage { return New() })
}

func TestMemoryStoreConcurrentSubmitsKeepCap(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.SubmitScore(context.Background(), core.ScoreEntry{Score: int64(i), Name: "AAA"}, core.MaxScoreEntries); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	n, _ := s.CountScores(context.Background())
	if n != core.MaxScoreEntries {
		t.Fatalf("expected %d entries, got %d", core.MaxScoreEntries, n)
	}
	top, _ := s.TopScores(context.Background(), 1)
	if top[0].Score != 63 {
		t.Fatalf("highest score lost: %#v", top)
	}
}
