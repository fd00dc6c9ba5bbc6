package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var csdnEndpoint = Endpoint{
	AuthorizeURL:   "https://api.csdn.net/oauth2/authorize",
	AccessTokenURL: "https://api.csdn.net/oauth2/access_token",
	UserInfoURL:    "https://api.csdn.net/user/getinfo",
}

type CSDNProvider struct {
	*RestProvider
}

func NewCSDNProvider(cfg oauth.AppConfig, opts ...Option) *CSDNProvider {
	return &CSDNProvider{newRestProvider(oauth.SourceCSDN, cfg, csdnEndpoint, newOptions(opts))}
}

func (p *CSDNProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode()), nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *CSDNProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	data, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{"access_token": {token.AccessToken}}, nil)
	if err != nil {
		return nil, err
	}

	return &oauth.Property{
		UUID:     data.String("username"),
		Username: data.String("username"),
		Nickname: data.String("username"),
		Blog:     data.String("website"),
		Remark:   data.String("description"),
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}
