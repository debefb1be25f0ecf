// Package cache provides the shared key/value store with TTL that every
// source agent consults before calling out. Keys are namespaced as
// "<source>:<normalized query>".
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is the store contract shared by all agents. Implementations must
// provide linearizable single-key operations; reads never return an entry
// whose TTL has elapsed.
type Cache interface {
	// Get returns the cached value and whether it was a (fresh) hit
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key for ttl. Concurrent puts for the same key
	// are last-write-wins.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Health checks whether the store is usable
	Health(ctx context.Context) error
}

// Key builds the single logical namespace key for a source and query
func Key(source, query string) string {
	return source + ":" + strings.ToUpper(strings.TrimSpace(query))
}
