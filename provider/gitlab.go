package provider

import (
	"strings"

	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const gitlabBaseURL = "https://gitlab.com"

// NewGitLabProvider creates a GitLab OAuth2 provider. cfg.Domain selects a
// self-managed instance (e.g. "gitlab.example.com"); gitlab.com is the default.
func NewGitLabProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)

	base := gitlabBaseURL
	if cfg.Domain != "" {
		base = "https://" + strings.TrimSuffix(strings.TrimPrefix(cfg.Domain, "https://"), "/")
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/oauth/authorize",
			TokenURL:  base + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: o.scopesOr(cfg.Scopes, "read_user"),
	}

	extractFunc := func(data object) *oauth.Property {
		return &oauth.Property{
			UUID:     data.String("id"),
			Username: data.String("username"),
			Nickname: data.String("name"),
			Avatar:   data.String("avatar_url"),
			Blog:     data.String("web_url"),
			Company:  data.String("organization"),
			Location: data.String("location"),
			Email:    data.String("email"),
			Remark:   data.String("bio"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceGitLab, oauth2Config, base+"/api/v4/user", extractFunc).apply(o)
	p.revokeFunc = p.revokeRFC7009(base+"/oauth/revoke", false)
	return p
}
