package provider

import (
	"context"
	"net/http"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var feishuEndpoint = Endpoint{
	AuthorizeURL:   "https://open.feishu.cn/open-apis/authen/v1/index",
	AccessTokenURL: "https://open.feishu.cn/open-apis/authen/v1/access_token",
	UserInfoURL:    "https://open.feishu.cn/open-apis/authen/v1/user_info",
	RefreshURL:     "https://open.feishu.cn/open-apis/authen/v1/refresh_access_token",
}

const feishuAppTokenURL = "https://open.feishu.cn/open-apis/auth/v3/app_access_token/internal"

// FeishuProvider implements Feishu (Lark) login. Every user token call is
// authorized by an app access token obtained first.
type FeishuProvider struct {
	*RestProvider
}

func NewFeishuProvider(cfg oauth.AppConfig, opts ...Option) *FeishuProvider {
	p := &FeishuProvider{newRestProvider(oauth.SourceFeishu, cfg, feishuEndpoint, newOptions(opts))}
	p.check = checkCodeField(p.name, "code", "msg")
	return p
}

func (p *FeishuProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"app_id":       {p.cfg.ClientID},
		"redirect_uri": {p.cfg.RedirectURI},
		"state":        {req.State},
	})
}

func (p *FeishuProvider) appAccessToken(ctx context.Context) (string, error) {
	data, err := p.postJSON(ctx, feishuAppTokenURL, map[string]string{
		"app_id":     p.cfg.ClientID,
		"app_secret": p.cfg.ClientSecret,
	}, nil)
	if err != nil {
		return "", err
	}
	appToken := data.String("app_access_token")
	if appToken == "" {
		return "", oauth.NewError(p.name, oauth.CodeFailure, "app token response has no app_access_token")
	}
	return appToken, nil
}

func (p *FeishuProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	appToken, err := p.appAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := p.postJSON(ctx, p.endpoint.AccessTokenURL, map[string]string{
		"app_access_token": appToken,
		"grant_type":       "authorization_code",
		"code":             cb.GetCode(),
	}, nil)
	if err != nil {
		return nil, err
	}
	return feishuToken(p.name, resp)
}

func (p *FeishuProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	resp, err := p.get(ctx, p.endpoint.UserInfoURL, nil, http.Header{"Authorization": {"Bearer " + token.AccessToken}})
	if err != nil {
		return nil, err
	}
	data := resp.Object("data")

	return &oauth.Property{
		UUID:     data.First("union_id", "open_id"),
		Username: data.String("name"),
		Nickname: data.First("en_name", "name"),
		Avatar:   data.String("avatar_url"),
		Email:    data.String("email"),
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}, nil
}

func (p *FeishuProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	appToken, err := p.appAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := p.postJSON(ctx, p.endpoint.RefreshURL, map[string]string{
		"app_access_token": appToken,
		"grant_type":       "refresh_token",
		"refresh_token":    token.RefreshToken,
	}, nil)
	if err != nil {
		return nil, err
	}
	return feishuToken(p.name, resp)
}

func feishuToken(name string, resp object) (*oauth.AccToken, error) {
	data := resp.Object("data")
	token, err := issued(name, resp, tokenFields(data))
	if err != nil {
		return nil, err
	}
	token.OpenID = data.String("open_id")
	token.UnionID = data.String("union_id")
	token.UserID = data.String("user_id")
	return token, nil
}
