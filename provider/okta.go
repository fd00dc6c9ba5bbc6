package provider

import (
	"context"
	"fmt"

	"github.com/meysam81/go-bus/auth/oauth"
)

// NewOktaProvider creates an Okta OIDC provider for the tenant in cfg.Domain.
// cfg.AuthServerID selects a custom authorization server ("default" otherwise).
func NewOktaProvider(ctx context.Context, cfg oauth.AppConfig, opts ...Option) (*BaseOIDCProvider, error) {
	server := cfg.AuthServerID
	if server == "" {
		server = "default"
	}
	issuerURL := fmt.Sprintf("https://%s/oauth2/%s", cfg.Domain, server)

	scopes := []string{
		"openid",
		"profile",
		"email",
		"offline_access",
	}

	return NewOIDCProvider(ctx, oauth.SourceOkta, issuerURL, cfg, scopes, opts...)
}
