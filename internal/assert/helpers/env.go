package helpers

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/stepwise/formwizard/internal/config"
	"github.com/stepwise/formwizard/pkg/storage"
)

// TestEnv bundles the storage backends used by integration-style tests:
// a miniredis-backed state store and an in-memory file bucket
type TestEnv struct {
	Redis   *miniredis.Miniredis
	Store   *storage.RedisStore
	Files   *storage.BlobFileStore
	Cleanup func()
}

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// NewTestEnv creates a test environment with miniredis and memblob backends
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)

	store := storage.NewRedisStore(storage.RedisConfig{
		Addr:   server.Addr(),
		Prefix: "test",
	})

	files, err := storage.NewBlobFileStore(
		context.Background(), "mem://", "uploads",
	)
	assert.NoError(t, err)

	cleanup := func() {
		_ = files.Close()
		_ = store.Close()
		server.Close()
	}

	return &TestEnv{
		Redis:   server,
		Store:   store,
		Files:   files,
		Cleanup: cleanup,
	}
}

// WithTestEnv creates a test environment, executes the provided function
// with it, and ensures cleanup happens automatically
func WithTestEnv(t *testing.T, fn func(*TestEnv)) {
	t.Helper()
	testEnv := NewTestEnv(t)
	defer testEnv.Cleanup()
	fn(testEnv)
}
