package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often a MemoryStore sweeps expired items.
const DefaultCleanupInterval = 10 * time.Minute

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an in-memory store that sweeps expired entries every
// cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get returns a copy of the value for key. Expired items are misses even
// before the sweep removes them.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Set stores a copy of value. A ttl of zero or less never expires.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Has reports whether key holds an unexpired value.
func (m *MemoryStore) Has(_ context.Context, key string) (bool, error) {
	_, found := m.cache.Get(key)
	return found, nil
}

// Delete removes keys.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.cache.Delete(key)
	}
	return nil
}

// Flush removes every item.
func (m *MemoryStore) Flush(_ context.Context) error {
	m.cache.Flush()
	return nil
}

// Len returns the number of stored items, expired ones included until the
// next sweep.
func (m *MemoryStore) Len() int { return m.cache.ItemCount() }
