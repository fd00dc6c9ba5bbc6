package provider

import (
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/slack"
)

const (
	slackUserInfoURL = "https://slack.com/api/users.identity"
)

func NewSlackProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     slack.Endpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "identity.basic", "identity.email", "identity.avatar"),
	}

	extractFunc := func(data object) *oauth.Property {
		// Slack returns nested user object
		user := data.Object("user")
		return &oauth.Property{
			UUID:     user.String("id"),
			Username: user.String("name"),
			Nickname: user.String("name"),
			Email:    user.String("email"),
			Avatar:   user.First("image_512", "image_192"),
			Company:  data.Object("team").String("name"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceSlack, oauth2Config, slackUserInfoURL, extractFunc).apply(o)
	p.refreshable = false
	return p
}
