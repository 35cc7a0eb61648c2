package port

import (
	"context"
	"errors"
	"time"
)

// ErrMiss signals a cache miss in a typed way so callers can tell misses from
// transport errors.
var ErrMiss = errors.New("cache: miss")

// Cache is the minimal key-value contract used by the chat core (profile
// display fields, mostly). Implementations must be concurrency-safe and
// context-aware.
type Cache interface {
	// Get fetches the value for key, returning ErrMiss when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. Zero or negative TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes keys and returns the number actually removed.
	Del(ctx context.Context, keys ...string) (int64, error)
}
