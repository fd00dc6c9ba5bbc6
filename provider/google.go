package provider

import (
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	googleRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

// NewGoogleProvider creates a Google OAuth2 provider. Offline access is
// requested so the token can be refreshed.
func NewGoogleProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       o.scopesOr(cfg.Scopes, oidc.ScopeOpenID, "profile", "email"),
	}

	p := NewOAuth2Provider(oauth.SourceGoogle, oauth2Config, googleUserInfoURL, extractClaims).apply(o)
	p.pkce = true
	p.authParams = []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	p.revokeFunc = p.revokeRFC7009(googleRevokeURL, false)
	return p
}
