package cache

import (
	"context"
	"log/slog"

	"github.com/gatehouse/gatehouse/internal/flags"
	"github.com/gatehouse/gatehouse/internal/observability"
)

// Layered combines the L1 memory cache with an optional L2 Redis cache.
// An L1 hit never touches Redis; an L2 hit repopulates L1. Redis errors are
// logged and treated as misses so the caller falls through to the store.
type Layered struct {
	memory *MemoryCache
	redis  *RedisCache
	logger *slog.Logger
}

// NewLayered builds the layered cache. redis may be nil for single-process
// deployments; memory is required.
func NewLayered(memory *MemoryCache, redis *RedisCache, logger *slog.Logger) *Layered {
	if memory == nil {
		panic("cache: memory cache cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Layered{memory: memory, redis: redis, logger: logger}
}

// Get returns the cached flag or (nil, false) on a full miss.
func (l *Layered) Get(ctx context.Context, name string) (*flags.FeatureFlag, bool) {
	if f, ok := l.memory.Get(name); ok {
		observability.FlagCacheHits.Inc()
		return f, true
	}

	if l.redis != nil {
		f, ok, err := l.redis.Get(ctx, name)
		if err != nil {
			l.logger.Warn("redis cache read failed",
				slog.String("flag", name),
				slog.String("error", err.Error()),
			)
		} else if ok {
			observability.FlagCacheHits.Inc()
			l.memory.Set(name, f)
			return f, true
		}
	}

	observability.FlagCacheMisses.Inc()
	return nil, false
}

// Set writes through both layers.
func (l *Layered) Set(ctx context.Context, name string, flag *flags.FeatureFlag) {
	l.memory.Set(name, flag)

	if l.redis != nil {
		if err := l.redis.Set(ctx, name, flag); err != nil {
			l.logger.Warn("redis cache write failed",
				slog.String("flag", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Invalidate drops the flag from both layers, called on every lifecycle
// mutation so readers never serve a stale configuration beyond the TTL.
func (l *Layered) Invalidate(ctx context.Context, name string) {
	l.memory.Del(name)

	if l.redis != nil {
		if err := l.redis.Del(ctx, name); err != nil {
			l.logger.Warn("redis cache invalidation failed",
				slog.String("flag", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Close releases both layers.
func (l *Layered) Close() {
	l.memory.Close()
	if l.redis != nil {
		_ = l.redis.Close()
	}
}
