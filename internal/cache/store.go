package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/mona/internal/config"
)

// Store is a string key/value store with per-entry expiry.
// Get reports a miss as ok=false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Len(ctx context.Context) (int, error)
	Name() string
	Close() error
}

// NewStore builds the store selected by CACHE_BACKEND
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		return NewMemoryStore(cfg.CacheTTL), nil
	case config.CacheRedis:
		return NewRedisStore(cfg.RedisURL)
	case config.CacheNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// NopStore never stores anything
type NopStore struct{}

func (NopStore) Get(ctx context.Context, key string) (string, bool, error) { return "", false, nil }

func (NopStore) Set(ctx context.Context, key, value string, ttl time.Duration) error { return nil }

func (NopStore) Len(ctx context.Context) (int, error) { return 0, nil }

func (NopStore) Name() string { return config.CacheNone }

func (NopStore) Close() error { return nil }
