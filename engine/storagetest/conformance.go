// Package storagetest provides a reusable conformance suite for
// engine.Storage adapters. Each adapter's tests call Run with a factory that
// returns a fresh, empty store.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/core"
	"scorekeeper/engine"
)

// Factory returns an empty store. Cleanup should be registered with t.Cleanup.
type Factory func(t *testing.T) engine.Storage

// Run executes every conformance case against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(*testing.T, engine.Storage)
	}{
		{"TopScoresOrder", testTopScoresOrder},
		{"TopScoresLimit", testTopScoresLimit},
		{"CapacityNeverExceeded", testCapacityNeverExceeded},
		{"EvictsMinimum", testEvictsMinimum},
		{"EvictsOnlyOneTie", testEvictsOnlyOneTie},
		{"UniqueIDs", testUniqueIDs},
		{"PresetRoundTrip", testPresetRoundTrip},
		{"PresetsOrderedByName", testPresetsOrderedByName},
		{"PresetDuplicateNames", testPresetDuplicateNames},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.fn(t, newStore(t))
		})
	}
}

func submit(t *testing.T, s engine.Storage, score int64, name string) core.Submission {
	t.Helper()
	sub, err := s.SubmitScore(context.Background(), core.ScoreEntry{Score: score, Name: name}, core.MaxScoreEntries)
	require.NoError(t, err)
	return sub
}

func testTopScoresOrder(t *testing.T, s engine.Storage) {
	submit(t, s, 100, "Al")
	submit(t, s, 50, "Bo")
	submit(t, s, 75, "Cy")

	top, err := s.TopScores(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, int64(100), top[0].Score)
	assert.Equal(t, "Al", top[0].Name)
	assert.Equal(t, int64(75), top[1].Score)
	assert.Equal(t, "Cy", top[1].Name)
	assert.Equal(t, int64(50), top[2].Score)
	assert.Equal(t, "Bo", top[2].Name)
}

func testTopScoresLimit(t *testing.T, s engine.Storage) {
	for i := int64(1); i <= 8; i++ {
		submit(t, s, i*3%7, fmt.Sprintf("p%d", i))
	}
	top, err := s.TopScores(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 5)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
	}

	all, err := s.TopScores(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, all, 8)
}

func testCapacityNeverExceeded(t *testing.T, s engine.Storage) {
	ctx := context.Background()
	for i := int64(0); i < 30; i++ {
		submit(t, s, (i*7919)%53, "AAA")
		n, err := s.CountScores(ctx)
		require.NoError(t, err)
		require.LessOrEqual(t, n, core.MaxScoreEntries)
	}
	n, err := s.CountScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.MaxScoreEntries, n)
}

func testEvictsMinimum(t *testing.T, s engine.Storage) {
	ctx := context.Background()
	for i := int64(0); i < 11; i++ {
		submit(t, s, 30+i, "AAA")
	}
	submit(t, s, 5, "Low")
	n, err := s.CountScores(ctx)
	require.NoError(t, err)
	require.Equal(t, 12, n)

	sub := submit(t, s, 20, "New")
	require.NotNil(t, sub.Evicted)
	assert.Equal(t, int64(5), sub.Evicted.Score)

	top, err := s.TopScores(ctx, 100)
	require.NoError(t, err)
	require.Len(t, top, 12)
	found := false
	for _, e := range top {
		assert.NotEqual(t, int64(5), e.Score)
		if e.ID == sub.Entry.ID {
			found = true
			assert.Equal(t, int64(20), e.Score)
		}
	}
	assert.True(t, found, "new entry should be retained")
}

func testEvictsOnlyOneTie(t *testing.T, s engine.Storage) {
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		submit(t, s, 1, "Tie")
	}
	sub := submit(t, s, 1, "Tie")
	require.NotNil(t, sub.Evicted)
	assert.Equal(t, int64(1), sub.Evicted.Score)

	n, err := s.CountScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func testUniqueIDs(t *testing.T, s engine.Storage) {
	seen := map[int64]bool{}
	for i := 0; i < 20; i++ {
		sub := submit(t, s, int64(i), "AAA")
		require.False(t, seen[sub.Entry.ID], "duplicate id %d", sub.Entry.ID)
		seen[sub.Entry.ID] = true
	}
}

func testPresetRoundTrip(t *testing.T, s engine.Storage) {
	ctx := context.Background()
	fields := core.PresetFieldsFrom(map[string]int64{"growth_rate": 7, "offspring_energy": -2})

	stored, err := s.SubmitPreset(ctx, core.InstructorPreset{Name: "custom", PresetFields: fields})
	require.NoError(t, err)
	assert.NotZero(t, stored.ID)

	defaults, err := s.SubmitPreset(ctx, core.PresetInput{}.Preset())
	require.NoError(t, err)

	list, err := s.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AAA", list[0].Name)
	assert.Equal(t, defaults.ID, list[0].ID)
	assert.Equal(t, core.DefaultPresetFields(), list[0].PresetFields)
	assert.Equal(t, "custom", list[1].Name)
	assert.Equal(t, fields, list[1].PresetFields)
}

func testPresetsOrderedByName(t *testing.T, s engine.Storage) {
	ctx := context.Background()
	names := []string{"zeta", "Alpha", "beta", "alpha", "Zulu", "m"}
	for _, n := range names {
		_, err := s.SubmitPreset(ctx, core.InstructorPreset{Name: n, PresetFields: core.DefaultPresetFields()})
		require.NoError(t, err)
	}
	list, err := s.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(names))
	got := make([]string, len(list))
	for i, p := range list {
		got[i] = p.Name
	}
	want := append([]string(nil), names...)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func testPresetDuplicateNames(t *testing.T, s engine.Storage) {
	ctx := context.Background()
	a, err := s.SubmitPreset(ctx, core.InstructorPreset{Name: "same", PresetFields: core.DefaultPresetFields()})
	require.NoError(t, err)
	fields := core.DefaultPresetFields()
	fields.MaxSize = 99
	b, err := s.SubmitPreset(ctx, core.InstructorPreset{Name: "same", PresetFields: fields})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	list, err := s.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].MaxSize)
	assert.Equal(t, int64(99), list[1].MaxSize)
}
