package provider

import (
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/amazon"
)

const amazonUserInfoURL = "https://api.amazon.com/user/profile"

// NewAmazonProvider creates a Login with Amazon provider. PKCE is always used.
func NewAmazonProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     amazon.Endpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "profile"),
	}

	extractFunc := func(data object) *oauth.Property {
		return &oauth.Property{
			UUID:     data.String("user_id"),
			Username: data.String("name"),
			Nickname: data.String("name"),
			Email:    data.String("email"),
			Location: data.String("postal_code"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceAmazon, oauth2Config, amazonUserInfoURL, extractFunc).apply(o)
	p.pkce = true
	return p
}
