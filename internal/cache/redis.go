package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/mona/internal/config"
	"github.com/go-redis/redis"
)

const keyPrefix = "mona:redirect:"

// RedisStore is a storage engine that writes to redis, shared between replicas
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the redis server at url (redis://[:password@]host:port/db)
func NewRedisStore(url string) (*RedisStore, error) {
	option, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(option)
	if _, err := client.Ping().Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.WithContext(ctx).Get(keyPrefix + key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.WithContext(ctx).Set(keyPrefix+key, value, ttl).Err()
}

// Len counts this service's keys; the database may be shared with other applications
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	keys, err := s.client.WithContext(ctx).Keys(keyPrefix + "*").Result()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *RedisStore) Name() string { return config.CacheRedis }

func (s *RedisStore) Close() error {
	return s.client.Close()
}
