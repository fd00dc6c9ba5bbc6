package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisStateStore(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStateStore(client, "")
	ctx := context.Background()

	err := store.StoreState(ctx, "s1", &State{Provider: "wechat_open", CodeVerifier: "verifier"}, time.Minute)
	if err != nil {
		t.Fatalf("Failed to store state: %v", err)
	}
	if !mr.Exists(DefaultStatePrefix + "s1") {
		t.Fatal("Expected state key to be written with the default prefix")
	}
	if ttl := mr.TTL(DefaultStatePrefix + "s1"); ttl != time.Minute {
		t.Errorf("Expected TTL of one minute, got %v", ttl)
	}

	got, err := store.GetState(ctx, "s1")
	if err != nil {
		t.Fatalf("Failed to get state: %v", err)
	}
	if got.Provider != "wechat_open" || got.CodeVerifier != "verifier" {
		t.Errorf("Unexpected state: %+v", got)
	}

	if _, err := store.GetState(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on reuse, got: %v", err)
	}
}

func TestRedisStateStoreExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStateStore(client, "custom:")
	ctx := context.Background()

	_ = store.StoreState(ctx, "s2", &State{Provider: "qq"}, time.Second)
	mr.FastForward(2 * time.Second)

	if _, err := store.GetState(ctx, "s2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got: %v", err)
	}
}

func TestRedisTokenStore(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisTokenStore(client, "")
	ctx := context.Background()

	if err := store.StoreToken(ctx, "gitee:1", []byte("secret"), 0); err != nil {
		t.Fatalf("Failed to store token: %v", err)
	}
	if ttl := mr.TTL(DefaultTokenPrefix + "gitee:1"); ttl != 0 {
		t.Errorf("Expected no TTL, got %v", ttl)
	}

	got, err := store.GetToken(ctx, "gitee:1")
	if err != nil {
		t.Fatalf("Failed to get token: %v", err)
	}
	if string(got) != "secret" {
		t.Errorf("Unexpected token: %s", got)
	}

	if err := store.DeleteToken(ctx, "gitee:1"); err != nil {
		t.Fatalf("Failed to delete token: %v", err)
	}
	if err := store.DeleteToken(ctx, "gitee:1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}
