// Package storage provides the ephemeral stores used during a social login.
// A StateStore holds the CSRF state (and PKCE verifier) between the authorize
// redirect and the callback; a TokenStore optionally keeps the tokens issued by a
// provider so they can be refreshed or revoked later.
//
// In-memory implementations suit a single process; the Redis implementations
// share state across replicas.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity is not found in storage.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a state or token has expired.
	ErrExpired = errors.New("expired")
)

// StateStore defines the interface for storing OAuth flow state (ephemeral).
// Used to prevent CSRF attacks during OAuth2 flows.
type StateStore interface {
	// StoreState stores a state with associated data.
	StoreState(ctx context.Context, state string, data *State, ttl time.Duration) error

	// GetState retrieves and deletes the state (one-time use).
	GetState(ctx context.Context, state string) (*State, error)

	// DeleteState explicitly deletes a state.
	DeleteState(ctx context.Context, state string) error
}

// TokenStore defines the interface for storing serialized provider tokens.
// A ttl of zero or less keeps the token until it is deleted.
type TokenStore interface {
	// StoreToken stores the token bytes under key.
	StoreToken(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// GetToken retrieves the token bytes stored under key.
	GetToken(ctx context.Context, key string) ([]byte, error)

	// DeleteToken removes the token stored under key.
	DeleteToken(ctx context.Context, key string) error
}

// State represents state stored during an OAuth flow.
type State struct {
	Provider     string         `json:"provider"`                // Provider name
	RedirectURL  string         `json:"redirect_url,omitempty"`  // Post-auth redirect
	CodeVerifier string         `json:"code_verifier,omitempty"` // PKCE verifier
	Metadata     map[string]any `json:"metadata,omitempty"`      // Additional state data
	CreatedAt    time.Time      `json:"created_at"`
}

// TokenKey builds the storage key for a user's token at a provider.
func TokenKey(provider, uuid string) string {
	return provider + ":" + uuid
}
