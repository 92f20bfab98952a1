package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/memory"
	redisadapter "github.com/custodia-labs/sercha-rag/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-rag/internal/config"
)

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"ERROR", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := newApp()
				app.Writer = &bytes.Buffer{}

				err := app.Run([]string{"sercha-rag", "--log-level", tc.input, "version"})
				require.NoError(t, err)
				assert.Equal(t, tc.expected, logLevel.Level())
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := newApp()
		app.Writer = &bytes.Buffer{}

		err := app.Run([]string{"sercha-rag", "--log-level", "verbose", "version"})
		assert.Error(t, err)
	})
}

func TestVersionCommand(t *testing.T) {
	out := &bytes.Buffer{}
	app := newApp()
	app.Writer = out

	require.NoError(t, app.Run([]string{"sercha-rag", "version"}))
	assert.Equal(t, version+"\n", out.String())
}

func TestCheckConfigCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))

	out := &bytes.Buffer{}
	app := newApp()
	app.Writer = out

	err := app.Run([]string{"sercha-rag", "--config", path, "--env-file", filepath.Join(dir, "missing.env"), "check-config"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), ":9191")
	assert.Contains(t, out.String(), "lock backend memory")
}

func TestCheckConfigCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lock:\n  backend: zookeeper\n"), 0o600))

	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"sercha-rag", "--config", path, "--env-file", filepath.Join(dir, "missing.env"), "check-config"})
	assert.Error(t, err)
}

func newFakeOllama(t *testing.T, embedStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/embed", func(w http.ResponseWriter, r *http.Request) {
		if embedStatus != http.StatusOK {
			w.WriteHeader(embedStatus)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	})
	mux.HandleFunc("GET /api/version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"0.6.0"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckAICommand(t *testing.T) {
	srv := newFakeOllama(t, http.StatusOK)
	dir := t.TempDir()

	out := &bytes.Buffer{}
	app := newApp()
	app.Writer = out

	err := app.Run([]string{"sercha-rag", "--env-file", filepath.Join(dir, "missing.env"), "check-ai", "--ollama-url", srv.URL + "/"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "embedding ok: embeddinggemma")
	assert.Contains(t, out.String(), "generation ok: gemma3:4b")
}

func TestCheckAICommand_EmbeddingDown(t *testing.T) {
	srv := newFakeOllama(t, http.StatusInternalServerError)
	dir := t.TempDir()

	out := &bytes.Buffer{}
	app := newApp()
	app.Writer = out

	err := app.Run([]string{"sercha-rag", "--env-file", filepath.Join(dir, "missing.env"), "check-ai", "--ollama-url", srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding model embeddinggemma")
	assert.NotContains(t, out.String(), "generation ok")
}

func TestNewLock_Memory(t *testing.T) {
	cfg := config.Default()

	lock, closeLock, err := newLock(context.Background(), cfg)
	require.NoError(t, err)
	defer closeLock()

	assert.IsType(t, &memory.Lock{}, lock)
}

func TestNewLock_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Lock.Backend = config.LockBackendRedis
	cfg.Lock.RedisURL = "redis://" + mr.Addr()

	lock, closeLock, err := newLock(context.Background(), cfg)
	require.NoError(t, err)
	defer closeLock()

	assert.IsType(t, &redisadapter.Lock{}, lock)
	assert.NoError(t, lock.Ping(context.Background()))
}

func TestNewLock_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Lock.Backend = config.LockBackendRedis
	cfg.Lock.RedisURL = "redis://127.0.0.1:1"

	_, _, err := newLock(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewLock_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Lock.Backend = "zookeeper"

	_, _, err := newLock(context.Background(), cfg)
	assert.Error(t, err)
}
