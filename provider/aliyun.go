package provider

import (
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const (
	aliyunUserInfoURL = "https://oauth.aliyun.com/v1/userinfo"
	aliyunRevokeURL   = "https://oauth.aliyun.com/v1/revoke"
)

var aliyunEndpoint = oauth2.Endpoint{
	AuthURL:   "https://signin.aliyun.com/oauth2/v1/auth",
	TokenURL:  "https://oauth.aliyun.com/v1/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// NewAliyunProvider creates an Alibaba Cloud RAM OAuth provider.
func NewAliyunProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     aliyunEndpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "openid", "aliuid", "profile"),
	}

	extractFunc := func(data object) *oauth.Property {
		return &oauth.Property{
			UUID:     data.String("sub"),
			Username: data.String("login_name"),
			Nickname: data.First("name", "login_name"),
			Remark:   data.String("aid"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceAliyun, oauth2Config, aliyunUserInfoURL, extractFunc).apply(o)
	p.pkce = true
	p.revokeFunc = p.revokeRFC7009(aliyunRevokeURL, false)
	return p
}
