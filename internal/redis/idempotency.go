package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseStore keeps idempotent responses in Redis.
type ResponseStore struct {
	client *redis.Client
}

// NewResponseStore creates a new ResponseStore.
func NewResponseStore(client *redis.Client) *ResponseStore {
	return &ResponseStore{client: client}
}

// Get returns the stored value, with found false on a cache miss.
func (s *ResponseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores value under key for ttl.
func (s *ResponseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// SetNX stores value under key for ttl only if key is absent.
func (s *ResponseStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// Delete removes key.
func (s *ResponseStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
