package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var oschinaEndpoint = Endpoint{
	AuthorizeURL:   "https://www.oschina.net/action/oauth2/authorize",
	AccessTokenURL: "https://www.oschina.net/action/openapi/token",
	UserInfoURL:    "https://www.oschina.net/action/openapi/user",
}

type OSChinaProvider struct {
	*RestProvider
}

func NewOSChinaProvider(cfg oauth.AppConfig, opts ...Option) *OSChinaProvider {
	return &OSChinaProvider{newRestProvider(oauth.SourceOSChina, cfg, oschinaEndpoint, newOptions(opts))}
}

func (p *OSChinaProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	params := p.accessTokenParams(cb.GetCode())
	params.Set("dataType", "json")

	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, params, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *OSChinaProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	data, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{
		"access_token": {token.AccessToken},
		"dataType":     {"json"},
	}, nil)
	if err != nil {
		return nil, err
	}

	return &oauth.Property{
		UUID:     data.String("id"),
		Username: data.String("name"),
		Nickname: data.String("name"),
		Avatar:   data.String("avatar"),
		Blog:     data.String("url"),
		Location: data.String("location"),
		Email:    data.String("email"),
		Gender:   oauth.ParseGender(data.String("gender")),
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}
