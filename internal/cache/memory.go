// Package cache provides the read-path caching layers for flag lookups:
// an in-process L1 (otter) and a Redis L2. Both layers are fail-open: a
// cache problem never breaks an evaluation, it only costs a store read.
package cache

import (
	"time"

	"github.com/maypok86/otter"

	"github.com/gatehouse/gatehouse/internal/flags"
)

// MemoryCache is the L1 layer, backed by otter's contention-free S3-FIFO
// implementation.
type MemoryCache struct {
	store otter.Cache[string, *flags.FeatureFlag]
}

// NewMemoryCache initializes the in-memory cache with a hard item cap
// (against OOM) and a TTL (staleness safety net).
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	c, err := otter.MustBuilder[string, *flags.FeatureFlag](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}
	return &MemoryCache{store: c}, nil
}

// Get retrieves a flag from memory.
func (c *MemoryCache) Get(name string) (*flags.FeatureFlag, bool) {
	return c.store.Get(name)
}

// Set adds or updates a flag; the configured TTL applies automatically.
func (c *MemoryCache) Set(name string, flag *flags.FeatureFlag) {
	c.store.Set(name, flag)
}

// Del removes a flag, used on lifecycle mutations.
func (c *MemoryCache) Del(name string) {
	c.store.Delete(name)
}

// Close shuts down the cache and its background cleanup goroutines.
func (c *MemoryCache) Close() {
	c.store.Close()
}
