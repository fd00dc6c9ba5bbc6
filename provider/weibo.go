package provider

import (
	"context"
	"net/http"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var weiboEndpoint = Endpoint{
	AuthorizeURL:   "https://api.weibo.com/oauth2/authorize",
	AccessTokenURL: "https://api.weibo.com/oauth2/access_token",
	UserInfoURL:    "https://api.weibo.com/2/users/show.json",
	RevokeURL:      "https://api.weibo.com/oauth2/revokeoauth2",
}

// WeiboProvider implements Sina Weibo login.
type WeiboProvider struct {
	*RestProvider
}

func NewWeiboProvider(cfg oauth.AppConfig, opts ...Option) *WeiboProvider {
	return &WeiboProvider{newRestProvider(oauth.SourceWeibo, cfg, weiboEndpoint, newOptions(opts))}
}

func (p *WeiboProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode()), nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *WeiboProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}

	header := http.Header{"Authorization": {"OAuth2 " + token.AccessToken}}
	data, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{
		"access_token": {token.AccessToken},
		"uid":          {token.UID},
	}, header)
	if err != nil {
		return nil, err
	}

	return &oauth.Property{
		UUID:     data.First("idstr", "id"),
		Username: data.String("name"),
		Nickname: data.String("screen_name"),
		Avatar:   data.First("avatar_large", "profile_image_url"),
		Blog:     data.String("url"),
		Location: data.String("location"),
		Remark:   data.String("description"),
		Gender:   oauth.ParseGender(data.String("gender")),
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}

// Revoke cancels the user's authorization of the application.
func (p *WeiboProvider) Revoke(ctx context.Context, token *oauth.AccToken) error {
	if err := p.requireAccessToken(token); err != nil {
		return err
	}
	data, err := p.get(ctx, p.endpoint.RevokeURL, url.Values{"access_token": {token.AccessToken}}, nil)
	if err != nil {
		return err
	}
	if data.String("result") != "true" {
		return oauth.NewError(p.name, oauth.CodeFailure, "revoke was not confirmed")
	}
	return nil
}
