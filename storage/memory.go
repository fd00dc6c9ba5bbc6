package storage

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// expiredGrace keeps expired entries around briefly so lookups can report
	// ErrExpired instead of ErrNotFound.
	expiredGrace    = time.Minute
	cleanupInterval = 5 * time.Minute
)

// InMemoryStateStore provides an in-memory implementation of StateStore.
// Suitable for a single process; use RedisStateStore when running replicas.
type InMemoryStateStore struct {
	mu     sync.Mutex
	states *cache.Cache
}

type stateEntry struct {
	data      *State
	expiresAt time.Time
}

// NewInMemoryStateStore creates a new in-memory state store.
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{
		states: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *InMemoryStateStore) StoreState(ctx context.Context, state string, data *State, ttl time.Duration) error {
	data.CreatedAt = time.Now()

	s.states.Set(state, &stateEntry{
		data:      data,
		expiresAt: data.CreatedAt.Add(ttl),
	}, ttl+expiredGrace)

	return nil
}

func (s *InMemoryStateStore) GetState(ctx context.Context, state string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.states.Get(state)
	if !found {
		return nil, ErrNotFound
	}
	s.states.Delete(state) // One-time use

	entry := v.(*stateEntry)
	if time.Now().After(entry.expiresAt) {
		return nil, ErrExpired
	}

	return entry.data, nil
}

func (s *InMemoryStateStore) DeleteState(ctx context.Context, state string) error {
	s.states.Delete(state)
	return nil
}

// InMemoryTokenStore provides an in-memory implementation of TokenStore.
type InMemoryTokenStore struct {
	tokens *cache.Cache
}

type tokenEntry struct {
	data      []byte
	expiresAt time.Time // zero when the token never expires
}

// NewInMemoryTokenStore creates a new in-memory token store.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{
		tokens: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *InMemoryTokenStore) StoreToken(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := &tokenEntry{data: make([]byte, len(data))}
	copy(entry.data, data)

	if ttl <= 0 {
		s.tokens.Set(key, entry, cache.NoExpiration)
		return nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	s.tokens.Set(key, entry, ttl+expiredGrace)
	return nil
}

func (s *InMemoryTokenStore) GetToken(ctx context.Context, key string) ([]byte, error) {
	v, found := s.tokens.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	entry := v.(*tokenEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.tokens.Delete(key)
		return nil, ErrExpired
	}
	return entry.data, nil
}

func (s *InMemoryTokenStore) DeleteToken(ctx context.Context, key string) error {
	if _, found := s.tokens.Get(key); !found {
		return ErrNotFound
	}
	s.tokens.Delete(key)
	return nil
}
