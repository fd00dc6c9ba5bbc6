package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestStateStoreOneTimeUse(t *testing.T) {
	store := NewInMemoryStateStore()
	ctx := context.Background()

	if err := store.StoreState(ctx, "abc", &State{Provider: "github", CodeVerifier: "v"}, time.Minute); err != nil {
		t.Fatalf("Failed to store state: %v", err)
	}

	got, err := store.GetState(ctx, "abc")
	if err != nil {
		t.Fatalf("Failed to get state: %v", err)
	}
	if got.Provider != "github" || got.CodeVerifier != "v" {
		t.Errorf("Unexpected state data: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	// Second read must fail
	if _, err := store.GetState(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on reuse, got: %v", err)
	}
}

func TestStateStoreExpired(t *testing.T) {
	store := NewInMemoryStateStore()
	ctx := context.Background()

	if err := store.StoreState(ctx, "old", &State{Provider: "gitee"}, time.Millisecond); err != nil {
		t.Fatalf("Failed to store state: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := store.GetState(ctx, "old"); !errors.Is(err, ErrExpired) {
		t.Errorf("Expected ErrExpired, got: %v", err)
	}
	if _, err := store.GetState(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected expired state to be removed, got: %v", err)
	}
}

func TestStateStoreDelete(t *testing.T) {
	store := NewInMemoryStateStore()
	ctx := context.Background()

	_ = store.StoreState(ctx, "gone", &State{Provider: "qq"}, time.Minute)
	if err := store.DeleteState(ctx, "gone"); err != nil {
		t.Fatalf("Failed to delete state: %v", err)
	}
	if _, err := store.GetState(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got: %v", err)
	}
}

func TestTokenStore(t *testing.T) {
	store := NewInMemoryTokenStore()
	ctx := context.Background()
	key := TokenKey("github", "42")

	if key != "github:42" {
		t.Errorf("Unexpected token key: %s", key)
	}

	data := []byte(`{"access_token":"t"}`)
	if err := store.StoreToken(ctx, key, data, 0); err != nil {
		t.Fatalf("Failed to store token: %v", err)
	}
	data[0] = 'x' // caller mutation must not leak into the store

	got, err := store.GetToken(ctx, key)
	if err != nil {
		t.Fatalf("Failed to get token: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"access_token":"t"}`)) {
		t.Errorf("Unexpected token bytes: %s", got)
	}

	if err := store.DeleteToken(ctx, key); err != nil {
		t.Fatalf("Failed to delete token: %v", err)
	}
	if err := store.DeleteToken(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got: %v", err)
	}
	if _, err := store.GetToken(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestTokenStoreTTL(t *testing.T) {
	store := NewInMemoryTokenStore()
	ctx := context.Background()

	_ = store.StoreToken(ctx, "k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, err := store.GetToken(ctx, "k"); !errors.Is(err, ErrExpired) {
		t.Errorf("Expected ErrExpired, got: %v", err)
	}
	if _, err := store.GetToken(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected expired token to be removed, got: %v", err)
	}
	if _, err := store.GetToken(ctx, "never-stored"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing key, got: %v", err)
	}
}

func TestTokenStoreWithoutTTLKeepsToken(t *testing.T) {
	store := NewInMemoryTokenStore()
	ctx := context.Background()

	_ = store.StoreToken(ctx, "k", []byte("v"), 0)
	time.Sleep(5 * time.Millisecond)

	got, err := store.GetToken(ctx, "k")
	if err != nil {
		t.Fatalf("Failed to get token: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Expected v, got %q", got)
	}
}
