package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/flags"
)

func newTestMemory(t *testing.T) *MemoryCache {
	t.Helper()
	mem, err := NewMemoryCache(64, time.Minute)
	require.NoError(t, err)
	t.Cleanup(mem.Close)
	return mem
}

func TestMemoryCache(t *testing.T) {
	t.Parallel()
	mem := newTestMemory(t)

	flag := &flags.FeatureFlag{Name: "beta", Enabled: true}
	mem.Set("beta", flag)

	got, ok := mem.Get("beta")
	require.True(t, ok)
	assert.Equal(t, "beta", got.Name)

	mem.Del("beta")
	_, ok = mem.Get("beta")
	assert.False(t, ok)
}

func TestLayered_MemoryOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	// nil redis: single-process deployment.
	layered := NewLayered(newTestMemory(t), nil, quiet)

	t.Run("Miss then hit", func(t *testing.T) {
		_, ok := layered.Get(ctx, "beta")
		assert.False(t, ok)

		layered.Set(ctx, "beta", &flags.FeatureFlag{Name: "beta", Enabled: true})

		got, ok := layered.Get(ctx, "beta")
		require.True(t, ok)
		assert.True(t, got.Enabled)
	})

	t.Run("Invalidate drops the entry", func(t *testing.T) {
		layered.Set(ctx, "dark-mode", &flags.FeatureFlag{Name: "dark-mode"})
		layered.Invalidate(ctx, "dark-mode")

		_, ok := layered.Get(ctx, "dark-mode")
		assert.False(t, ok)
	})
}

func TestLayered_NilMemoryPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		NewLayered(nil, nil, nil)
	})
}
