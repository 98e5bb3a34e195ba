package cache

import (
	"context"
	"time"

	ttlcache "cohortcast/pkg/cache"
)

// MemoryCache keeps entries in process. It is used when Redis is disabled
// or unreachable.
type MemoryCache struct {
	store *ttlcache.Cache[[]byte]
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{store: ttlcache.New[[]byte](defaultTTL, time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.store.Get(key)
	return value, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.store.SetWithTTL(key, append([]byte(nil), value...), ttl)
	return nil
}

func (m *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	m.store.DeletePrefix(prefix)
	return nil
}

func (m *MemoryCache) Ping(context.Context) error {
	return nil
}

func (m *MemoryCache) Close() error {
	m.store.Stop()
	return nil
}
