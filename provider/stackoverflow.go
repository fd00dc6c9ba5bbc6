package provider

import (
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const stackOverflowUserInfoURL = "https://api.stackexchange.com/2.3/me"

var stackOverflowEndpoint = oauth2.Endpoint{
	AuthURL:   "https://stackoverflow.com/oauth",
	TokenURL:  "https://stackoverflow.com/oauth/access_token/json",
	AuthStyle: oauth2.AuthStyleInParams,
}

// NewStackOverflowProvider creates a Stack Exchange provider scoped to
// stackoverflow.com. cfg.StackOverflowKey is the Stack Apps request key.
func NewStackOverflowProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     stackOverflowEndpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "private_info"),
	}

	extractFunc := func(data object) *oauth.Property {
		items := data.Array("items")
		if len(items) == 0 {
			return &oauth.Property{Gender: oauth.GenderUnknown}
		}
		user, _ := items[0].(map[string]any)
		u := object(user)
		return &oauth.Property{
			UUID:     u.String("user_id"),
			Username: u.String("display_name"),
			Nickname: u.String("display_name"),
			Avatar:   u.String("profile_image"),
			Blog:     u.String("website_url"),
			Location: u.String("location"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceStackOverflow, oauth2Config, stackOverflowUserInfoURL, extractFunc).apply(o)
	p.tokenParam = "access_token"
	p.userInfoQuery = url.Values{"site": {"stackoverflow"}, "key": {cfg.StackOverflowKey}}
	p.refreshable = false
	p.check = func(data object) error {
		if data.Has("error_id") {
			return oauth.NewError(p.name, data.First("error_name", "error_id"), data.String("error_message"))
		}
		return checkResponse(p.name, data)
	}
	return p
}
