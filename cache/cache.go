package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Scalingo/sclng-repo-health/config"
	"github.com/go-redis/redis/v8"
)

const keyPrefix = "repohealth:"

// Store keep enrichment lookups results for a limited time
type Store interface {
	// Get decode the cached value into dest and report if the key was found
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Close() error
}

// New build the store matching the configuration, a NopStore when the cache is disabled
func New(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		return NopStore{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to reach redis at %s: %w", cfg.Address, err)
	}

	return NewRedisStore(client), nil
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("invalid cached value for %s: %w", key, err)
	}

	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, keyPrefix+key, raw, ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// NopStore never keep anything
type NopStore struct{}

func (NopStore) Get(context.Context, string, interface{}) (bool, error) { return false, nil }

func (NopStore) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (NopStore) Close() error { return nil }
