package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scorekeeper/core"
	"scorekeeper/engine"
	"scorekeeper/engine/storagetest"
)

func TestStoreConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) engine.Storage {
		s, err := New(filepath.Join(t.TempDir(), "state.json"))
		if err != nil {
			t.Fatalf("new store: %v", err)
		}
		return s
	})
}

func TestStorePersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	for i, name := range []string{"Al", "Bo", "Cy"} {
		if _, err := store.SubmitScore(ctx, core.ScoreEntry{Score: int64(10 * (i + 1)), Name: name}, core.MaxScoreEntries); err != nil {
			t.Fatalf("submit score: %v", err)
		}
	}
	if _, err := store.SubmitPreset(ctx, core.PresetInput{Name: "calm", Values: map[string]int64{"gestation": 4}}.Preset()); err != nil {
		t.Fatalf("submit preset: %v", err)
	}

	// ensure file written
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s", path)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	top, err := reloaded.TopScores(ctx, 10)
	if err != nil {
		t.Fatalf("top scores: %v", err)
	}
	if len(top) != 3 || top[0].Name != "Cy" || top[2].Name != "Al" {
		t.Fatalf("unexpected order after reload: %+v", top)
	}

	sub, err := reloaded.SubmitScore(ctx, core.ScoreEntry{Score: 1, Name: "Di"}, core.MaxScoreEntries)
	if err != nil {
		t.Fatalf("submit after reload: %v", err)
	}
	if sub.Entry.ID != 4 {
		t.Fatalf("expected id sequence to continue at 4, got %d", sub.Entry.ID)
	}

	presets, err := reloaded.ListPresets(ctx)
	if err != nil {
		t.Fatalf("list presets: %v", err)
	}
	if len(presets) != 1 || presets[0].Gestation != 4 || presets[0].GrowthRate != 1 {
		t.Fatalf("unexpected presets after reload: %+v", presets)
	}
}

func TestStoreEvictedEntryNotReloaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.SubmitScore(ctx, core.ScoreEntry{Score: int64(i), Name: "AAA"}, 2); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	n, _ := reloaded.CountScores(ctx)
	if n != 2 {
		t.Fatalf("expected 2 stored entries, got %d", n)
	}
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}
