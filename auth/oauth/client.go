package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meysam81/go-bus/storage"
	"golang.org/x/oauth2"
)

// DefaultStateTTL is how long an issued state stays valid.
const DefaultStateTTL = 3 * time.Minute

// ErrNoTokenStore is returned by token operations when the client has no TokenStore.
var ErrNoTokenStore = errors.New("token store is not configured")

// Client handles social-login flows across the registered providers.
type Client struct {
	providers        map[string]Provider
	stateStore       storage.StateStore
	tokenStore       storage.TokenStore
	stateTTL         time.Duration
	tokenTTL         time.Duration
	ignoreCheckState bool
}

// Config configures the login client.
type Config struct {
	Providers  []Provider
	StateStore storage.StateStore
	TokenStore storage.TokenStore // Optional: persist tokens after login
	StateTTL   time.Duration      // Optional: defaults to DefaultStateTTL
	TokenTTL   time.Duration      // Optional: zero keeps tokens until deleted

	// IgnoreCheckState skips the CSRF state check on callback. Only for
	// integrations that cannot round-trip the state; it disables CSRF protection.
	IgnoreCheckState bool
}

// NewClient creates a new login client.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	if cfg.StateStore == nil && !cfg.IgnoreCheckState {
		return nil, errors.New("state store is required")
	}

	providers := make(map[string]Provider, len(cfg.Providers))
	for i, p := range cfg.Providers {
		if p == nil {
			return nil, fmt.Errorf("provider %d is nil", i)
		}
		name := p.Name()
		if name == "" {
			return nil, fmt.Errorf("provider %d has an empty name", i)
		}
		if _, dup := providers[name]; dup {
			return nil, fmt.Errorf("provider %q is registered twice", name)
		}
		providers[name] = p
	}

	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}

	return &Client{
		providers:        providers,
		stateStore:       cfg.StateStore,
		tokenStore:       cfg.TokenStore,
		stateTTL:         ttl,
		tokenTTL:         cfg.TokenTTL,
		ignoreCheckState: cfg.IgnoreCheckState,
	}, nil
}

// AuthorizeOptions carries optional per-request values for Authorize.
type AuthorizeOptions struct {
	State       string         // Optional: generated when empty
	RedirectURL string         // Optional: post-login redirect kept with the state
	Metadata    map[string]any // Optional: additional state data
}

// Authorize generates the provider's authorization URL and records the state.
func (c *Client) Authorize(ctx context.Context, provider string, opts AuthorizeOptions) (string, error) {
	p, exists := c.providers[provider]
	if !exists {
		return "", ErrProviderNotFound.WithProvider(provider)
	}

	state := opts.State
	if state == "" {
		state = generateState()
	}
	verifier := oauth2.GenerateVerifier()

	if c.stateStore != nil {
		data := &storage.State{
			Provider:     provider,
			RedirectURL:  opts.RedirectURL,
			CodeVerifier: verifier,
			Metadata:     opts.Metadata,
		}
		if err := c.stateStore.StoreState(ctx, state, data, c.stateTTL); err != nil {
			return "", fmt.Errorf("failed to store state: %w", err)
		}
	}

	return p.Authorize(AuthorizeRequest{State: state, CodeVerifier: verifier}), nil
}

// LoginResult represents the result of a completed login.
type LoginResult struct {
	User        *Property
	RedirectURL string
	Metadata    map[string]any
}

// Login completes the flow for a callback: it validates the code and state,
// exchanges the code for a token and fetches the user's profile.
func (c *Client) Login(ctx context.Context, provider string, cb *Callback) (*LoginResult, error) {
	p, exists := c.providers[provider]
	if !exists {
		return nil, ErrProviderNotFound.WithProvider(provider)
	}

	if cb == nil || cb.GetCode() == "" {
		return nil, ErrIllegalCode.WithProvider(provider)
	}

	result := &LoginResult{}
	if !c.ignoreCheckState {
		stateData, err := c.checkState(ctx, provider, cb.State)
		if err != nil {
			return nil, err
		}
		if cb.CodeVerifier == "" {
			cb.CodeVerifier = stateData.CodeVerifier
		}
		result.RedirectURL = stateData.RedirectURL
		result.Metadata = stateData.Metadata
	}

	token, err := p.GetAccessToken(ctx, cb)
	if err != nil {
		return nil, err
	}
	if token.IssuedAt.IsZero() {
		token.IssuedAt = time.Now()
	}

	user, err := p.GetUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	user.Source = provider
	if user.Token == nil {
		user.Token = token
	}

	if c.tokenStore != nil && user.UUID != "" {
		if err := c.saveToken(ctx, provider, user.UUID, user.Token); err != nil {
			return nil, err
		}
	}

	result.User = user
	return result, nil
}

// Refresh exchanges the token's refresh token for a new one.
func (c *Client) Refresh(ctx context.Context, provider string, token *AccToken) (*AccToken, error) {
	p, exists := c.providers[provider]
	if !exists {
		return nil, ErrProviderNotFound.WithProvider(provider)
	}
	r, ok := p.(Refresher)
	if !ok {
		return nil, ErrUnsupported.WithProvider(provider)
	}
	fresh, err := r.Refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	if fresh.IssuedAt.IsZero() {
		fresh.IssuedAt = time.Now()
	}
	return fresh, nil
}

// RefreshStored refreshes a persisted token and stores the result.
func (c *Client) RefreshStored(ctx context.Context, provider, uuid string) (*AccToken, error) {
	token, err := c.LoadToken(ctx, provider, uuid)
	if err != nil {
		return nil, err
	}
	fresh, err := c.Refresh(ctx, provider, token)
	if err != nil {
		return nil, err
	}
	if err := c.saveToken(ctx, provider, uuid, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Revoke revokes the authorization behind token.
func (c *Client) Revoke(ctx context.Context, provider string, token *AccToken) error {
	p, exists := c.providers[provider]
	if !exists {
		return ErrProviderNotFound.WithProvider(provider)
	}
	r, ok := p.(Revoker)
	if !ok {
		return ErrUnsupported.WithProvider(provider)
	}
	return r.Revoke(ctx, token)
}

// Logout revokes a persisted token when the provider supports it and removes
// it from the token store.
func (c *Client) Logout(ctx context.Context, provider, uuid string) error {
	token, err := c.LoadToken(ctx, provider, uuid)
	if err != nil {
		return err
	}
	if err := c.Revoke(ctx, provider, token); err != nil && !errors.Is(err, ErrUnsupported) {
		return err
	}
	return c.tokenStore.DeleteToken(ctx, storage.TokenKey(provider, uuid))
}

// LoadToken reads back a token persisted by Login.
func (c *Client) LoadToken(ctx context.Context, provider, uuid string) (*AccToken, error) {
	if c.tokenStore == nil {
		return nil, ErrNoTokenStore
	}
	raw, err := c.tokenStore.GetToken(ctx, storage.TokenKey(provider, uuid))
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	var token AccToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

// GetProvider returns a registered provider by name.
func (c *Client) GetProvider(name string) (Provider, error) {
	provider, exists := c.providers[name]
	if !exists {
		return nil, ErrProviderNotFound.WithProvider(name)
	}
	return provider, nil
}

// ListProviders returns all registered provider names in sorted order.
func (c *Client) ListProviders() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Client) checkState(ctx context.Context, provider, state string) (*storage.State, error) {
	if state == "" {
		return nil, ErrIllegalState.WithProvider(provider)
	}
	data, err := c.stateStore.GetState(ctx, state)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrExpired) {
			return nil, ErrIllegalState.WithProvider(provider)
		}
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	if data.Provider != provider {
		return nil, ErrIllegalState.WithProvider(provider)
	}
	return data, nil
}

func (c *Client) saveToken(ctx context.Context, provider, uuid string, token *AccToken) error {
	if c.tokenStore == nil {
		return nil
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := c.tokenStore.StoreToken(ctx, storage.TokenKey(provider, uuid), raw, c.tokenTTL); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// generateState returns a random state without dashes.
func generateState() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
