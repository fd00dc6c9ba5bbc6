package provider

import (
	"context"
	"fmt"

	"github.com/meysam81/go-bus/auth/oauth"
)

// NewAuth0Provider creates an Auth0 OIDC provider for the tenant in cfg.Domain.
func NewAuth0Provider(ctx context.Context, cfg oauth.AppConfig, opts ...Option) (*BaseOIDCProvider, error) {
	issuerURL := fmt.Sprintf("https://%s/", cfg.Domain)

	scopes := []string{
		"openid",
		"profile",
		"email",
	}

	return NewOIDCProvider(ctx, oauth.SourceAuth0, issuerURL, cfg, scopes, opts...)
}
