package provider

import (
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const giteeUserInfoURL = "https://gitee.com/api/v5/user"

var giteeEndpoint = oauth2.Endpoint{
	AuthURL:   "https://gitee.com/oauth/authorize",
	TokenURL:  "https://gitee.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// NewGiteeProvider creates a Gitee (gitee.com) OAuth2 provider.
func NewGiteeProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     giteeEndpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "user_info"),
	}

	extractFunc := func(data object) *oauth.Property {
		return &oauth.Property{
			UUID:     data.String("id"),
			Username: data.String("login"),
			Nickname: data.String("name"),
			Avatar:   data.String("avatar_url"),
			Blog:     data.String("blog"),
			Email:    data.String("email"),
			Remark:   data.String("bio"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceGitee, oauth2Config, giteeUserInfoURL, extractFunc).apply(o)
	p.tokenParam = "access_token"
	return p
}
