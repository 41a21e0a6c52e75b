// Package cache memoizes fitness evaluations. Engines are pure with respect
// to their inputs, so a (engine, grid, model, values) tuple always yields the
// same log-likelihood and can be stored indefinitely; TTLs exist only to
// bound disk and memory use.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized fitness results keyed by evaluation signature.
type Cache interface {
	// Get retrieves a cached value by key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given key and TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value by key.
	Delete(ctx context.Context, key string) error

	// Clear removes all cached values.
	Clear(ctx context.Context) error

	// Stats returns cache statistics.
	Stats() Stats

	// Close releases any resources held by the cache.
	Close() error
}

// Stats contains cache performance counters.
type Stats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Sets       int64     `json:"sets"`
	Deletes    int64     `json:"deletes"`
	Size       int64     `json:"size"`
	MaxSize    int64     `json:"max_size"`
	LastAccess time.Time `json:"last_access"`
}

// Config holds cache configuration.
type Config struct {
	// Type of cache: "memory" or "sqlite".
	Type string `json:"type" yaml:"type"`

	// Maximum cache size in bytes (0 = unlimited).
	MaxSize int64 `json:"max_size" yaml:"max_size"`

	// Default TTL for entries (0 = no expiration).
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`

	// SQLite-backed cache settings.
	SQLite SQLiteConfig `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`

	// In-memory cache settings.
	Memory MemoryConfig `json:"memory,omitempty" yaml:"memory,omitempty"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	// Path to the database file.
	Path string `json:"path" yaml:"path"`

	// Enable WAL mode for concurrent workers sharing one cache file.
	EnableWAL bool `json:"enable_wal" yaml:"enable_wal"`

	// Vacuum interval for database maintenance (0 disables).
	VacuumInterval time.Duration `json:"vacuum_interval" yaml:"vacuum_interval"`

	// Maximum number of connections.
	MaxConnections int `json:"max_connections" yaml:"max_connections"`
}

// MemoryConfig holds in-memory cache settings.
type MemoryConfig struct {
	// Cleanup interval for expired entries.
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// New creates a cache from the configuration. An unrecognized type falls
// back to the in-memory cache.
func New(config Config) (Cache, error) {
	switch config.Type {
	case "sqlite":
		return NewSQLiteCache(config)
	default:
		return NewMemoryCache(config)
	}
}
