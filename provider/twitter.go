package provider

import (
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const (
	twitterUserInfoURL = "https://api.twitter.com/2/users/me"
	twitterRevokeURL   = "https://api.twitter.com/2/oauth2/revoke"
)

var twitterEndpoint = oauth2.Endpoint{
	AuthURL:   "https://twitter.com/i/oauth2/authorize",
	TokenURL:  "https://api.twitter.com/2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// NewTwitterProvider creates an X (Twitter) OAuth 2.0 provider. X requires
// PKCE; the "offline.access" scope makes the token refreshable.
func NewTwitterProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     twitterEndpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "users.read", "tweet.read", "offline.access"),
	}

	extractFunc := func(data object) *oauth.Property {
		user := data.Object("data")
		return &oauth.Property{
			UUID:     user.String("id"),
			Username: user.String("username"),
			Nickname: user.String("name"),
			Avatar:   user.String("profile_image_url"),
			Blog:     user.String("url"),
			Location: user.String("location"),
			Remark:   user.String("description"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceTwitter, oauth2Config, twitterUserInfoURL, extractFunc).apply(o)
	p.pkce = true
	p.userInfoQuery = url.Values{"user.fields": {"id,name,username,profile_image_url,url,location,description"}}
	p.revokeFunc = p.revokeRFC7009(twitterRevokeURL, true)
	return p
}
