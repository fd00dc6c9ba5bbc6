package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var meituanEndpoint = Endpoint{
	AuthorizeURL:   "https://openapi.waimai.meituan.com/oauth/authorize",
	AccessTokenURL: "https://openapi.waimai.meituan.com/oauth/access_token",
	UserInfoURL:    "https://openapi.waimai.meituan.com/oauth/userinfo",
	RefreshURL:     "https://openapi.waimai.meituan.com/oauth/refresh_token",
}

type MeituanProvider struct {
	*RestProvider
}

func NewMeituanProvider(cfg oauth.AppConfig, opts ...Option) *MeituanProvider {
	return &MeituanProvider{newRestProvider(oauth.SourceMeituan, cfg, meituanEndpoint, newOptions(opts))}
}

func (p *MeituanProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"response_type": {"code"},
		"app_id":        {p.cfg.ClientID},
		"redirect_uri":  {p.cfg.RedirectURI},
		"state":         {req.State},
	})
}

func (p *MeituanProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, url.Values{
		"app_id":     {p.cfg.ClientID},
		"secret":     {p.cfg.ClientSecret},
		"code":       {cb.GetCode()},
		"grant_type": {"authorization_code"},
	}, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *MeituanProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	data, err := p.postForm(ctx, p.endpoint.UserInfoURL, url.Values{
		"app_id":       {p.cfg.ClientID},
		"secret":       {p.cfg.ClientSecret},
		"access_token": {token.AccessToken},
	}, nil)
	if err != nil {
		return nil, err
	}

	return &oauth.Property{
		UUID:     data.String("openid"),
		Username: data.String("nickname"),
		Nickname: data.String("nickname"),
		Avatar:   data.String("avatar"),
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}

func (p *MeituanProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.postForm(ctx, p.endpoint.RefreshURL, url.Values{
		"app_id":        {p.cfg.ClientID},
		"secret":        {p.cfg.ClientSecret},
		"refresh_token": {token.RefreshToken},
		"grant_type":    {"refresh_token"},
	}, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}
