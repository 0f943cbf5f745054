//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/flags"
	"github.com/gatehouse/gatehouse/internal/testsupport"
)

func TestRedisCache_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := testsupport.StartRedisContainer(ctx, time.Minute)
	require.NoError(t, err, "failed to start redis container")
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	redisCache := container.Cache

	t.Run("Round-trips the full targeting configuration", func(t *testing.T) {
		pct := 40
		flag := &flags.FeatureFlag{
			ID:                  1,
			Name:                "new-checkout",
			Enabled:             true,
			RolloutPercentage:   &pct,
			AllowedUserIDs:      []string{"u-1"},
			AllowedWorkspaceIDs: []string{"ws-1"},
			AllowedDomains:      []string{"example.com"},
		}
		require.NoError(t, redisCache.Set(ctx, "new-checkout", flag))

		got, ok, err := redisCache.Get(ctx, "new-checkout")
		require.NoError(t, err)
		require.True(t, ok)

		assert.Equal(t, flag.Name, got.Name)
		require.NotNil(t, got.RolloutPercentage)
		assert.Equal(t, 40, *got.RolloutPercentage)
		assert.Equal(t, []string{"u-1"}, got.AllowedUserIDs)
		assert.Equal(t, []string{"example.com"}, got.AllowedDomains)
	})

	t.Run("Missing key is not an error", func(t *testing.T) {
		_, ok, err := redisCache.Get(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Del removes the entry", func(t *testing.T) {
		require.NoError(t, redisCache.Set(ctx, "beta", &flags.FeatureFlag{Name: "beta"}))
		require.NoError(t, redisCache.Del(ctx, "beta"))

		_, ok, err := redisCache.Get(ctx, "beta")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("HealthCheck pings the server", func(t *testing.T) {
		assert.NoError(t, redisCache.HealthCheck(ctx))
	})
}
