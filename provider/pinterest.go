package provider

import (
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const pinterestUserInfoURL = "https://api.pinterest.com/v5/user_account"

var pinterestEndpoint = oauth2.Endpoint{
	AuthURL:   "https://www.pinterest.com/oauth/",
	TokenURL:  "https://api.pinterest.com/v5/oauth/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

func NewPinterestProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     pinterestEndpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "user_accounts:read"),
	}

	extractFunc := func(data object) *oauth.Property {
		return &oauth.Property{
			UUID:     data.First("id", "username"),
			Username: data.String("username"),
			Nickname: data.First("business_name", "username"),
			Avatar:   data.String("profile_image"),
			Blog:     data.String("website_url"),
			Remark:   data.String("about"),
			Gender:   oauth.GenderUnknown,
		}
	}

	return NewOAuth2Provider(oauth.SourcePinterest, oauth2Config, pinterestUserInfoURL, extractFunc).apply(o)
}
