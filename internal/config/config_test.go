package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"public-chat/internal/feed"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DocumentBackend)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.False(t, cfg.DebugRoutes)
}

func TestLoadServerEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chatd.yaml")
	require.NoError(t, os.WriteFile(file, []byte("port: \"9000\"\nnats_url: nats://bus:4222\n"), 0o600))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("SESSION_SECRET", "0123456789abcdef")
	t.Setenv("DOCUMENT_BACKEND", "mongo")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("DEBUG_ROUTES", "true")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "nats://bus:4222", cfg.NATSURL)
	assert.Equal(t, "mongo", cfg.DocumentBackend)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.DebugRoutes)
}

func TestLoadServerValidation(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")
	_, err := LoadServer()
	assert.ErrorContains(t, err, "SESSION_SECRET")

	t.Setenv("SESSION_SECRET", "0123456789abcdef")
	t.Setenv("DOCUMENT_BACKEND", "sqlite")
	_, err = LoadServer()
	assert.ErrorContains(t, err, "DOCUMENT_BACKEND")
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func clearClientEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CHAT_ENDPOINT", "CHAT_PROJECT", "CHAT_DATABASE_ID", "CHAT_MESSAGES_COLLECTION_ID", "CHAT_BUCKET_ID", "CHAT_ORPHAN_POLICY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadClientFromEnvFile(t *testing.T) {
	clearClientEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"CHAT_ENDPOINT=http://localhost:8080/v1\nCHAT_PROJECT=demo\nCHAT_DATABASE_ID=chat\nCHAT_MESSAGES_COLLECTION_ID=messages\nCHAT_BUCKET_ID=images\nCHAT_ORPHAN_POLICY=delete\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("CHAT_PROJECT=local\n"), 0o600))

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1", cfg.Endpoint)
	assert.Equal(t, "local", cfg.Project)
	assert.Equal(t, "messages", cfg.Feed.CollectionID)
	assert.Equal(t, feed.OrphanDelete, cfg.Feed.OrphanPolicy)
}

func TestLoadClientMissing(t *testing.T) {
	clearClientEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("CHAT_ENDPOINT", "http://localhost:8080/v1")

	_, err := LoadClient()
	require.ErrorIs(t, err, feed.ErrConfigMissing)
	assert.ErrorContains(t, err, "CHAT_BUCKET_ID, CHAT_DATABASE_ID, CHAT_MESSAGES_COLLECTION_ID, CHAT_PROJECT")
}
