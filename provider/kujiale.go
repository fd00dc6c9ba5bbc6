package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var kujialeEndpoint = Endpoint{
	AuthorizeURL:   "https://oauth.kujiale.com/oauth2/show",
	AccessTokenURL: "https://oauth.kujiale.com/oauth2/auth/token",
	UserInfoURL:    "https://oauth.kujiale.com/oauth2/openapi/user",
	RefreshURL:     "https://oauth.kujiale.com/oauth2/auth/token/refresh",
}

const kujialeOpenIDURL = "https://oauth.kujiale.com/oauth2/auth/user"

// KujialeProvider implements Kujiale login. Responses use the compact
// c (code), m (message) and d (data) envelope.
type KujialeProvider struct {
	*RestProvider
}

func NewKujialeProvider(cfg oauth.AppConfig, opts ...Option) *KujialeProvider {
	p := &KujialeProvider{newRestProvider(oauth.SourceKujiale, cfg, kujialeEndpoint, newOptions(opts), "get_user_info")}
	p.check = checkCodeField(p.name, "c", "m")
	return p
}

func (p *KujialeProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	resp, err := p.postForm(ctx, withQuery(p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode())), nil, nil)
	if err != nil {
		return nil, err
	}
	return kujialeToken(p.name, resp)
}

func (p *KujialeProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	if token.OpenID == "" {
		resp, err := p.get(ctx, kujialeOpenIDURL, url.Values{"access_token": {token.AccessToken}}, nil)
		if err != nil {
			return nil, err
		}
		token.OpenID = resp.String("d")
	}

	resp, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{
		"access_token": {token.AccessToken},
		"open_id":      {token.OpenID},
	}, nil)
	if err != nil {
		return nil, err
	}
	data := resp.Object("d")

	return &oauth.Property{
		UUID:     data.First("openId", "open_id"),
		Username: data.String("userName"),
		Nickname: data.String("userName"),
		Avatar:   data.String("avatar"),
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}, nil
}

func (p *KujialeProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	resp, err := p.postForm(ctx, withQuery(p.endpoint.RefreshURL, url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"refresh_token": {token.RefreshToken},
		"grant_type":    {"refresh_token"},
	}), nil, nil)
	if err != nil {
		return nil, err
	}
	refreshed, err := kujialeToken(p.name, resp)
	if err != nil {
		return nil, err
	}
	refreshed.OpenID = token.OpenID
	return refreshed, nil
}

func kujialeToken(name string, resp object) (*oauth.AccToken, error) {
	d := resp.Object("d")
	return issued(name, resp, &oauth.AccToken{
		AccessToken:  d.String("accessToken"),
		RefreshToken: d.String("refreshToken"),
		ExpireIn:     d.Int("expiresIn"),
		Raw:          d,
	})
}
