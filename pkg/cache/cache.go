// Package cache stores fetched download counts and built trees.
//
// Every backend implements [Cache], a byte-oriented store with per-entry TTL:
//
//   - [NullCache]: stores nothing, for tests and --no-cache
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for several server instances
//   - [MongoCache]: document store with a TTL index
//
// Keys come from a [Keyer] so that every caller agrees on the layout of the
// key space. [ScopedKeyer] prefixes every key, which lets several deployments
// share one Redis or Mongo instance.
package cache

import (
	"context"
	"time"
)

// TTLs for the kinds of entries the pipeline stores.
const (
	// TTLDownloads covers raw registry responses. The registry recomputes
	// weekly downloads about once a day.
	TTLDownloads = 6 * time.Hour

	// TTLTree covers built trees, which are cheap to rebuild from cached
	// downloads.
	TTLTree = time.Hour
)

// Cache is a key/value store with expiring entries.
type Cache interface {
	// Get returns the value for key and whether it was found. A missing or
	// expired entry is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any connection held by the cache.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Clear empties c if it supports clearing and reports whether it did.
func Clear(ctx context.Context, c Cache) (bool, error) {
	cl, ok := c.(Clearer)
	if !ok {
		return false, nil
	}
	return true, cl.Clear(ctx)
}
