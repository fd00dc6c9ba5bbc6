package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultStatePrefix = "bus:state:"
	DefaultTokenPrefix = "bus:token:"
)

// RedisStateStore stores OAuth states in Redis so any replica can complete a
// login started on another.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStateStore creates a state store on client. An empty prefix uses
// DefaultStatePrefix.
func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	if prefix == "" {
		prefix = DefaultStatePrefix
	}
	return &RedisStateStore{client: client, prefix: prefix}
}

func (s *RedisStateStore) StoreState(ctx context.Context, state string, data *State, ttl time.Duration) error {
	data.CreatedAt = time.Now()

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+state, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) GetState(ctx context.Context, state string) (*State, error) {
	raw, err := s.client.GetDel(ctx, s.prefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	var data State
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &data, nil
}

func (s *RedisStateStore) DeleteState(ctx context.Context, state string) error {
	return s.client.Del(ctx, s.prefix+state).Err()
}

// RedisTokenStore stores serialized tokens in Redis.
type RedisTokenStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisTokenStore creates a token store on client. An empty prefix uses
// DefaultTokenPrefix.
func NewRedisTokenStore(client redis.UniversalClient, prefix string) *RedisTokenStore {
	if prefix == "" {
		prefix = DefaultTokenPrefix
	}
	return &RedisTokenStore{client: client, prefix: prefix}
}

func (s *RedisTokenStore) StoreToken(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) GetToken(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	return raw, nil
}

func (s *RedisTokenStore) DeleteToken(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
