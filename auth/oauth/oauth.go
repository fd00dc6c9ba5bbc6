// Package oauth provides the shared OAuth2 social-login workflow: authorize,
// exchange the callback code for a token, fetch the user profile, and optionally
// refresh or revoke the token.
//
// Concrete providers live in the provider package. This package holds the
// normalized DTOs (AccToken, Property), the error type every provider reports
// through, and Client, which threads the CSRF state through the round trip.
package oauth

import (
	"context"
)

// Provider defines the interface for an OAuth2 identity provider.
type Provider interface {
	// Name returns the provider's unique name (e.g., "github", "wechat_open").
	Name() string

	// Authorize builds the provider's authorization URL. The URL always embeds
	// req.State verbatim together with the application's client identifier.
	Authorize(req AuthorizeRequest) string

	// GetAccessToken exchanges the callback's authorization code for a token.
	GetAccessToken(ctx context.Context, cb *Callback) (*AccToken, error)

	// GetUserInfo fetches the user's profile with a token returned by GetAccessToken.
	GetUserInfo(ctx context.Context, token *AccToken) (*Property, error)
}

// Refresher is implemented by providers that can refresh an access token.
type Refresher interface {
	Refresh(ctx context.Context, token *AccToken) (*AccToken, error)
}

// Revoker is implemented by providers that can revoke an authorization.
type Revoker interface {
	Revoke(ctx context.Context, token *AccToken) error
}

// AuthorizeRequest carries the per-attempt values embedded in the authorization URL.
type AuthorizeRequest struct {
	State string

	// CodeVerifier is the PKCE verifier generated for this attempt. Providers that
	// support PKCE derive the S256 challenge from it; others ignore it.
	CodeVerifier string
}

// Callback holds the parameters a provider sends back to the redirect URI.
type Callback struct {
	Code              string `json:"code,omitempty"`
	AuthCode          string `json:"auth_code,omitempty"`          // Alipay
	AuthorizationCode string `json:"authorization_code,omitempty"` // Huawei
	State             string `json:"state,omitempty"`
	CodeVerifier      string `json:"-"` // restored from the state store
}

// GetCode returns the authorization code regardless of which field the provider used.
func (c *Callback) GetCode() string {
	switch {
	case c.Code != "":
		return c.Code
	case c.AuthCode != "":
		return c.AuthCode
	default:
		return c.AuthorizationCode
	}
}
