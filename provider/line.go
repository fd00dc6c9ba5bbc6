package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const (
	lineUserInfoURL = "https://api.line.me/v2/profile"
	lineRevokeURL   = "https://api.line.me/oauth2/v2.1/revoke"
)

var lineEndpoint = oauth2.Endpoint{
	AuthURL:   "https://access.line.me/oauth2/v2.1/authorize",
	TokenURL:  "https://api.line.me/oauth2/v2.1/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// NewLineProvider creates a LINE Login v2.1 provider.
func NewLineProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     lineEndpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "profile", "openid", "email"),
	}

	extractFunc := func(data object) *oauth.Property {
		return &oauth.Property{
			UUID:     data.String("userId"),
			Username: data.String("displayName"),
			Nickname: data.String("displayName"),
			Avatar:   data.String("pictureUrl"),
			Remark:   data.String("statusMessage"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceLine, oauth2Config, lineUserInfoURL, extractFunc).apply(o)
	p.pkce = true
	p.revokeFunc = func(ctx context.Context, token *oauth.AccToken) error {
		_, err := p.postForm(ctx, lineRevokeURL, url.Values{
			"access_token":  {token.AccessToken},
			"client_id":     {cfg.ClientID},
			"client_secret": {cfg.ClientSecret},
		}, nil)
		return err
	}
	return p
}
