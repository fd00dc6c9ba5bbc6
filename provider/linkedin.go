package provider

import (
	"strings"

	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const (
	// linkedinUserInfoURL is the LinkedIn API endpoint for retrieving user information via OIDC.
	linkedinUserInfoURL = "https://api.linkedin.com/v2/userinfo"
)

// NewLinkedInProvider creates a "Sign In with LinkedIn using OpenID Connect" provider.
func NewLinkedInProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     linkedin.Endpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "openid", "profile", "email"),
	}

	extractFunc := func(data object) *oauth.Property {
		user := extractClaims(data)

		// LinkedIn doesn't have a standard username field
		if given, family := data.String("given_name"), data.String("family_name"); given != "" && family != "" {
			user.Username = strings.ToLower(given) + "." + strings.ToLower(family)
		}
		return user
	}

	return NewOAuth2Provider(oauth.SourceLinkedIn, oauth2Config, linkedinUserInfoURL, extractFunc).apply(o)
}
