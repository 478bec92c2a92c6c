package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/core"
	"scorekeeper/engine"
	"scorekeeper/engine/storagetest"
)

// newTestClient spins up a miniredis server and returns a client plus the server.
func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) engine.Storage {
		client, _ := newTestClient(t)
		return NewWithClient(client, "test:")
	})
}

func TestStore_SubmitScoreKeys(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWithClient(client, "sk:")
	ctx := context.Background()

	sub, err := store.SubmitScore(ctx, core.ScoreEntry{Score: 10, Name: "Al"}, core.MaxScoreEntries)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sub.Entry.ID)
	assert.Nil(t, sub.Evicted)

	assert.True(t, mr.Exists("sk:scores:rank"))
	assert.True(t, mr.Exists("sk:scores:entries"))
	seq, err := mr.Get("sk:scores:seq")
	require.NoError(t, err)
	assert.Equal(t, "1", seq)
}

func TestStore_EvictsNewestOfTiedLowest(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewWithClient(client, "")
	ctx := context.Background()

	first, err := store.SubmitScore(ctx, core.ScoreEntry{Score: 1, Name: "old"}, 2)
	require.NoError(t, err)
	_, err = store.SubmitScore(ctx, core.ScoreEntry{Score: 9, Name: "high"}, 2)
	require.NoError(t, err)

	sub, err := store.SubmitScore(ctx, core.ScoreEntry{Score: 1, Name: "new"}, 2)
	require.NoError(t, err)
	require.NotNil(t, sub.Evicted)
	assert.Equal(t, sub.Entry.ID, sub.Evicted.ID)

	top, err := store.TopScores(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "high", top[0].Name)
	assert.Equal(t, first.Entry.ID, top[1].ID)
}

func TestStore_TopScoresEmpty(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewWithClient(client, "")

	top, err := store.TopScores(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, top)

	presets, err := store.ListPresets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, presets)
}

func TestStore_PresetNamePrefixOrdering(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewWithClient(client, "")
	ctx := context.Background()

	for _, n := range []string{"ab", "a", "a b"} {
		_, err := store.SubmitPreset(ctx, core.InstructorPreset{Name: n, PresetFields: core.DefaultPresetFields()})
		require.NoError(t, err)
	}
	list, err := store.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "a b", list[1].Name)
	assert.Equal(t, "ab", list[2].Name)
}

func TestStore_ServerDown(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewWithClient(client, "")
	mr.Close()

	_, err := store.SubmitScore(context.Background(), core.ScoreEntry{Score: 1, Name: "x"}, 12)
	assert.Error(t, err)
	_, err = store.CountScores(context.Background())
	assert.Error(t, err)
}

func TestNew_ConnectFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 100 * time.Millisecond
	_, err := New(cfg)
	assert.Error(t, err)
}
