package provider

import (
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const facebookUserInfoURL = "https://graph.facebook.com/v18.0/me"

var facebookEndpoint = oauth2.Endpoint{
	AuthURL:   "https://www.facebook.com/v18.0/dialog/oauth",
	TokenURL:  "https://graph.facebook.com/v18.0/oauth/access_token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// NewFacebookProvider creates a Facebook Login provider. Facebook requires an
// https redirect URI and has no refresh grant.
func NewFacebookProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     facebookEndpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "public_profile", "email"),
	}

	extractFunc := func(data object) *oauth.Property {
		return &oauth.Property{
			UUID:     data.String("id"),
			Username: data.String("name"),
			Nickname: data.String("name"),
			Avatar:   data.Path("picture", "data").String("url"),
			Location: data.Object("location").String("name"),
			Email:    data.String("email"),
			Gender:   oauth.ParseGender(data.String("gender")),
		}
	}

	p := NewOAuth2Provider(oauth.SourceFacebook, oauth2Config, facebookUserInfoURL, extractFunc).apply(o)
	p.tokenParam = "access_token"
	p.userInfoQuery = url.Values{"fields": {"id,name,email,gender,location,picture.width(400)"}}
	p.refreshable = false
	return p
}
