// Package cache defines the cache capability the foundation binds under the
// "cache" key, with a filesystem store (the default) and an in-memory store.
package cache

import (
	"context"
	"time"
)

// NoExpiration stores an item until it is deleted.
const NoExpiration time.Duration = 0

// Store is the cache capability. A configuration value implementing Store is
// bound as the application cache as-is.
type Store interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl of NoExpiration keeps it forever.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Has reports whether key holds an unexpired value.
	Has(ctx context.Context, key string) (bool, error)

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Flush removes everything.
	Flush(ctx context.Context) error
}

// Remember returns the cached value for key, or calls fn, stores its result
// for ttl and returns it. An error from fn is returned without caching.
func Remember(ctx context.Context, s Store, key string, ttl time.Duration, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if value, ok, err := s.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return value, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Set(ctx, key, value, ttl); err != nil {
		return nil, err
	}
	return value, nil
}
