package cache

import (
	"context"
	"time"

	"github.com/amaumene/mona/internal/config"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory store; expired entries are purged every ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanup := ttl
	if cleanup <= 0 || cleanup > time.Hour {
		cleanup = time.Hour
	}
	return &MemoryStore{cache: gocache.New(ttl, cleanup)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	value, ok := v.(string)
	return value, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.cache.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	return s.cache.ItemCount(), nil
}

func (s *MemoryStore) Name() string { return config.CacheMemory }

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
