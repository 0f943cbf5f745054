package config

import "time"

// CacheConfig tunes the flag cache layers.
type CacheConfig struct {
	// MemoryCapacity caps the number of flags kept in the in-memory layer.
	MemoryCapacity int `envconfig:"MEMORY_CAPACITY" default:"1024" validate:"min=1"`

	// MemoryTTL bounds staleness of the in-memory layer.
	MemoryTTL time.Duration `envconfig:"MEMORY_TTL" default:"30s" validate:"min=1s"`

	// RedisTTL bounds staleness of the Redis layer.
	RedisTTL time.Duration `envconfig:"REDIS_TTL" default:"5m" validate:"min=1s"`
}
