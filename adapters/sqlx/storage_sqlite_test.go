package sqlx_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "scorekeeper/adapters/sqlx"
	"scorekeeper/core"
	"scorekeeper/engine"
	"scorekeeper/engine/storagetest"
)

func newSQLiteStore(t *testing.T, path string) *storage.Store {
	t.Helper()
	cfg := storage.DefaultConfig(storage.DriverSQLite)
	cfg.DSN = path
	store, err := storage.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) engine.Storage {
		return newSQLiteStore(t, filepath.Join(t.TempDir(), "highscores.db"))
	})
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "highscores.db")
	ctx := context.Background()

	first := newSQLiteStore(t, path)
	_, err := first.SubmitScore(ctx, core.ScoreEntry{Score: 42, Name: "Al"}, core.MaxScoreEntries)
	require.NoError(t, err)
	_, err = first.SubmitPreset(ctx, core.PresetInput{Name: "p"}.Preset())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newSQLiteStore(t, path)
	top, err := second.TopScores(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Al", top[0].Name)

	presets, err := second.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 1)
	assert.Equal(t, core.DefaultPresetFields(), presets[0].PresetFields)
}

func TestSQLiteConcurrentSubmits(t *testing.T) {
	store := newSQLiteStore(t, filepath.Join(t.TempDir(), "highscores.db"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.SubmitScore(ctx, core.ScoreEntry{Score: int64(i), Name: "AAA"}, core.MaxScoreEntries)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := store.CountScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.MaxScoreEntries, n)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, storage.DefaultConfig(storage.DriverPostgres).Validate())
	assert.Error(t, storage.Config{Driver: "oracle", DSN: "x"}.Validate())
	assert.Error(t, storage.Config{Driver: storage.DriverSQLite}.Validate())
}
