package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/adapters/jsonfile"
	mem "scorekeeper/adapters/memory"
	sqlxAdapter "scorekeeper/adapters/sqlx"
	"scorekeeper/config"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestSetupStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Storage.Adapter = "memory"
	s, err := setupStorage(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &mem.Store{}, s)

	cfg.Storage.Adapter = "file"
	cfg.Storage.File.Path = filepath.Join(dir, "state.json")
	s, err = setupStorage(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &jsonfile.Store{}, s)

	cfg.Storage.Adapter = "sql"
	cfg.Storage.SQL.DSN = filepath.Join(dir, "nested", "highscores.db")
	s, err = setupStorage(ctx, cfg)
	require.NoError(t, err)
	require.IsType(t, &sqlxAdapter.Store{}, s)
	require.NoError(t, s.(io.Closer).Close())
	_, err = os.Stat(filepath.Join(dir, "nested"))
	assert.NoError(t, err)

	cfg.Storage.Adapter = "ldap"
	_, err = setupStorage(ctx, cfg)
	assert.Error(t, err)
}

func TestEnsureSQLiteDir(t *testing.T) {
	assert.NoError(t, ensureSQLiteDir(":memory:"))
	assert.NoError(t, ensureSQLiteDir("file::memory:?cache=shared"))

	dir := t.TempDir()
	require.NoError(t, ensureSQLiteDir("file:"+filepath.Join(dir, "a", "b.db")+"?_pragma=foreign_keys(1)"))
	_, err := os.Stat(filepath.Join(dir, "a"))
	assert.NoError(t, err)
}

func TestBuildAppWithMemoryStorage(t *testing.T) {
	t.Setenv("SCOREKEEPER_STORAGE_ADAPTER", "memory")
	t.Setenv("SCOREKEEPER_LOG_LEVEL", "error")

	app, cleanup, err := BuildApp(context.Background())
	require.NoError(t, err)
	defer cleanup()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submitScore", strings.NewReader(`{"score": 3}`))
	app.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/highScores", nil))
	assert.Contains(t, rec.Body.String(), `"name":"AAA"`)
	assert.Equal(t, ":5000", app.Server.Addr)
}
