package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/meysam81/go-bus/auth/oauth"
)

const (
	wechatAccessTokenURL = "https://api.weixin.qq.com/sns/oauth2/access_token"
	wechatUserInfoURL    = "https://api.weixin.qq.com/sns/userinfo"
	wechatRefreshURL     = "https://api.weixin.qq.com/sns/oauth2/refresh_token"
)

// WeChatProvider implements WeChat login for both the open platform (website
// QR code) and official accounts. They share the sns token and profile APIs.
type WeChatProvider struct {
	*RestProvider
}

// NewWeChatOpenProvider creates the website QR code login provider.
func NewWeChatOpenProvider(cfg oauth.AppConfig, opts ...Option) *WeChatProvider {
	return newWeChatProvider(oauth.SourceWeChatOpen, "https://open.weixin.qq.com/connect/qrconnect", "snsapi_login", cfg, opts)
}

// NewWeChatMPProvider creates the official account (in-app browser) provider.
func NewWeChatMPProvider(cfg oauth.AppConfig, opts ...Option) *WeChatProvider {
	return newWeChatProvider(oauth.SourceWeChatMP, "https://open.weixin.qq.com/connect/oauth2/authorize", "snsapi_userinfo", cfg, opts)
}

func newWeChatProvider(name, authorizeURL, scope string, cfg oauth.AppConfig, opts []Option) *WeChatProvider {
	endpoint := Endpoint{
		AuthorizeURL:   authorizeURL,
		AccessTokenURL: wechatAccessTokenURL,
		UserInfoURL:    wechatUserInfoURL,
		RefreshURL:     wechatRefreshURL,
	}
	return &WeChatProvider{newRestProvider(name, cfg, endpoint, newOptions(opts), scope)}
}

func (p *WeChatProvider) Authorize(req oauth.AuthorizeRequest) string {
	q := url.Values{
		"appid":         {p.cfg.ClientID},
		"redirect_uri":  {p.cfg.RedirectURI},
		"response_type": {"code"},
		"scope":         {strings.Join(p.scopes, ",")},
		"state":         {req.State},
	}
	return withQuery(p.endpoint.AuthorizeURL, q) + "#wechat_redirect"
}

func (p *WeChatProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.get(ctx, p.endpoint.AccessTokenURL, url.Values{
		"appid":      {p.cfg.ClientID},
		"secret":     {p.cfg.ClientSecret},
		"code":       {cb.GetCode()},
		"grant_type": {"authorization_code"},
	}, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *WeChatProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	data, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{
		"access_token": {token.AccessToken},
		"openid":       {token.OpenID},
		"lang":         {"zh_CN"},
	}, nil)
	if err != nil {
		return nil, err
	}

	if unionID := data.String("unionid"); unionID != "" {
		token.UnionID = unionID
	}
	location := strings.TrimSpace(strings.Join([]string{
		data.String("country"), data.String("province"), data.String("city"),
	}, " "))

	return &oauth.Property{
		UUID:     data.First("openid"),
		Username: data.String("nickname"),
		Nickname: data.String("nickname"),
		Avatar:   data.String("headimgurl"),
		Location: location,
		Gender:   genderFromNumber(data.String("sex")),
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}

func (p *WeChatProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.get(ctx, p.endpoint.RefreshURL, url.Values{
		"appid":         {p.cfg.ClientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
	}, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}
