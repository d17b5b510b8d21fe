package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopkart/fulfillment/internal/infrastructure/carrier"
)

const defaultTokenKey = "carrier:auth:token"

// RedisTokenStore persists the carrier bearer token in Redis so that multiple
// instances share one login session instead of each authenticating on its own.
type RedisTokenStore struct {
	client *redis.Client
	key    string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTokenStore connects to Redis and returns a token store. The
// connection is verified with a short ping so a misconfigured address fails
// at startup rather than on the first shipment.
func NewRedisTokenStore(cfg RedisConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTokenStore{
		client: client,
		key:    defaultTokenKey,
	}, nil
}

// NewRedisTokenStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisTokenStoreWithClient(client *redis.Client, key string) *RedisTokenStore {
	if key == "" {
		key = defaultTokenKey
	}
	return &RedisTokenStore{
		client: client,
		key:    key,
	}
}

// Get fetches the shared token. A missing key returns (nil, nil).
func (s *RedisTokenStore) Get(ctx context.Context) (*carrier.CachedToken, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read carrier token: %w", err)
	}

	var token carrier.CachedToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("failed to decode carrier token: %w", err)
	}
	return &token, nil
}

// PutWithTTL stores the token with an expiry matching its carrier-side
// lifetime, so Redis drops it on its own once it is useless.
func (s *RedisTokenStore) PutWithTTL(ctx context.Context, token carrier.CachedToken, ttl time.Duration) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode carrier token: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store carrier token: %w", err)
	}
	return nil
}

// Clear removes the shared token, forcing the next caller to log in again
func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear carrier token: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

// Ensure RedisTokenStore implements carrier.TokenStore
var _ carrier.TokenStore = (*RedisTokenStore)(nil)
