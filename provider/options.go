package provider

import (
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

type options struct {
	httpClient *http.Client
	scopes     []string
	now        func() time.Time
}

// Option configures a provider.
type Option func(*options)

// WithHTTPClient sets the HTTP client used for every call to the provider.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithScopes overrides the provider's default scopes.
func WithScopes(scopes ...string) Option {
	return func(o *options) {
		o.scopes = scopes
	}
}

// WithClock sets the time source used for request timestamps and signatures.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// scopesOr returns the configured scopes, falling back to def.
func (o *options) scopesOr(cfgScopes []string, def ...string) []string {
	if len(o.scopes) > 0 {
		return o.scopes
	}
	if len(cfgScopes) > 0 {
		return cfgScopes
	}
	return def
}
