package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var renrenEndpoint = Endpoint{
	AuthorizeURL:   "https://graph.renren.com/oauth/authorize",
	AccessTokenURL: "https://graph.renren.com/oauth/token",
	UserInfoURL:    "https://api.renren.com/v2/user/get",
	RefreshURL:     "https://graph.renren.com/oauth/token",
}

type RenrenProvider struct {
	*RestProvider
}

func NewRenrenProvider(cfg oauth.AppConfig, opts ...Option) *RenrenProvider {
	return &RenrenProvider{newRestProvider(oauth.SourceRenren, cfg, renrenEndpoint, newOptions(opts))}
}

func (p *RenrenProvider) Authorize(req oauth.AuthorizeRequest) string {
	return p.RestProvider.Authorize(req) + "&display=page"
}

func (p *RenrenProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode()), nil)
	if err != nil {
		return nil, err
	}
	token, err := tokenFromObject(p.name, data)
	if err != nil {
		return nil, err
	}
	token.UID = data.Object("user").String("id")
	return token, nil
}

func (p *RenrenProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	resp, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{
		"access_token": {token.AccessToken},
		"userId":       {token.UID},
	}, nil)
	if err != nil {
		return nil, err
	}
	data := resp.Object("response")
	basic := data.Object("basicInformation")

	var company string
	for _, w := range data.Array("work") {
		if m, ok := w.(map[string]any); ok {
			company = object(m).String("name")
			break
		}
	}

	return &oauth.Property{
		UUID:     data.String("id"),
		Username: data.String("name"),
		Nickname: data.String("name"),
		Avatar:   renrenAvatar(data.Array("avatar")),
		Company:  company,
		Location: basic.Object("homeTown").String("province"),
		Gender:   oauth.ParseGender(basic.String("sex")),
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}, nil
}

func (p *RenrenProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.postForm(ctx, p.endpoint.RefreshURL, p.refreshTokenParams(token.RefreshToken), nil)
	if err != nil {
		return nil, err
	}
	refreshed, err := tokenFromObject(p.name, data)
	if err != nil {
		return nil, err
	}
	refreshed.UID = token.UID
	return refreshed, nil
}

// renrenAvatar picks the large avatar when present, else the first one.
func renrenAvatar(avatars []any) string {
	var first string
	for _, a := range avatars {
		m, ok := a.(map[string]any)
		if !ok {
			continue
		}
		o := object(m)
		if first == "" {
			first = o.String("url")
		}
		if o.String("size") == "large" {
			return o.String("url")
		}
	}
	return first
}
