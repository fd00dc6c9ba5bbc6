package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

const baiduAvatarURL = "http://himg.bdimg.com/sys/portrait/item/"

var baiduEndpoint = Endpoint{
	AuthorizeURL:   "https://openapi.baidu.com/oauth/2.0/authorize",
	AccessTokenURL: "https://openapi.baidu.com/oauth/2.0/token",
	UserInfoURL:    "https://openapi.baidu.com/rest/2.0/passport/users/getInfo",
	RefreshURL:     "https://openapi.baidu.com/oauth/2.0/token",
	RevokeURL:      "https://openapi.baidu.com/rest/2.0/passport/auth/revokeAuthorization",
}

// BaiduProvider implements Baidu account login.
type BaiduProvider struct {
	*RestProvider
}

func NewBaiduProvider(cfg oauth.AppConfig, opts ...Option) *BaiduProvider {
	return &BaiduProvider{newRestProvider(oauth.SourceBaidu, cfg, baiduEndpoint, newOptions(opts), "basic")}
}

func (p *BaiduProvider) Authorize(req oauth.AuthorizeRequest) string {
	return p.RestProvider.Authorize(req) + "&display=popup"
}

func (p *BaiduProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode()), nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *BaiduProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	data, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{"access_token": {token.AccessToken}}, nil)
	if err != nil {
		return nil, err
	}

	// Baidu reports sex as "1" for male and "0" for female.
	return &oauth.Property{
		UUID:     data.String("userid"),
		Username: data.String("username"),
		Nickname: data.String("username"),
		Avatar:   baiduAvatarURL + data.String("portrait"),
		Remark:   data.String("userdetail"),
		Gender:   oauth.ParseGender(data.String("sex")),
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}

func (p *BaiduProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.postForm(ctx, p.endpoint.RefreshURL, p.refreshTokenParams(token.RefreshToken), nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *BaiduProvider) Revoke(ctx context.Context, token *oauth.AccToken) error {
	if err := p.requireAccessToken(token); err != nil {
		return err
	}
	data, err := p.get(ctx, p.endpoint.RevokeURL, url.Values{"access_token": {token.AccessToken}}, nil)
	if err != nil {
		return err
	}
	if data.Int("result") != 1 {
		return oauth.NewError(p.name, oauth.CodeFailure, "revoke was not confirmed")
	}
	return nil
}
