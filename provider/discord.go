package provider

import (
	"fmt"

	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const (
	discordUserInfoURL = "https://discord.com/api/users/@me"
	discordRevokeURL   = "https://discord.com/api/oauth2/token/revoke"
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/api/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

func NewDiscordProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     discordEndpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "identify", "email"),
	}

	extractFunc := func(data object) *oauth.Property {
		user := &oauth.Property{
			UUID:     data.String("id"),
			Username: data.String("username"),
			Email:    data.String("email"),
			Location: data.String("locale"),
			Gender:   oauth.GenderUnknown,
		}

		// Discord global_name is the display name
		user.Nickname = data.First("global_name", "username")

		if avatar := data.String("avatar"); avatar != "" && user.UUID != "" {
			user.Avatar = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", user.UUID, avatar)
		}
		return user
	}

	p := NewOAuth2Provider(oauth.SourceDiscord, oauth2Config, discordUserInfoURL, extractFunc).apply(o)
	p.revokeFunc = p.revokeRFC7009(discordRevokeURL, false)
	return p
}
