package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var wechatEnterpriseEndpoint = Endpoint{
	AuthorizeURL:   "https://open.work.weixin.qq.com/wwopen/sso/qrConnect",
	AccessTokenURL: "https://qyapi.weixin.qq.com/cgi-bin/gettoken",
	UserInfoURL:    "https://qyapi.weixin.qq.com/cgi-bin/user/getuserinfo",
}

const wechatEnterpriseUserURL = "https://qyapi.weixin.qq.com/cgi-bin/user/get"

// WeChatEnterpriseProvider implements WeCom (WeChat Work) QR code login.
// ClientID is the corp id and AgentID the application agent.
type WeChatEnterpriseProvider struct {
	*RestProvider
}

func NewWeChatEnterpriseProvider(cfg oauth.AppConfig, opts ...Option) *WeChatEnterpriseProvider {
	return &WeChatEnterpriseProvider{newRestProvider(oauth.SourceWeChatEnterprise, cfg, wechatEnterpriseEndpoint, newOptions(opts))}
}

func (p *WeChatEnterpriseProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"appid":        {p.cfg.ClientID},
		"agentid":      {p.cfg.AgentID},
		"redirect_uri": {p.cfg.RedirectURI},
		"state":        {req.State},
	})
}

// GetAccessToken fetches the corp access token and keeps the user's code for
// the member lookup.
func (p *WeChatEnterpriseProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.get(ctx, p.endpoint.AccessTokenURL, url.Values{
		"corpid":     {p.cfg.ClientID},
		"corpsecret": {p.cfg.ClientSecret},
	}, nil)
	if err != nil {
		return nil, err
	}
	token, err := tokenFromObject(p.name, data)
	if err != nil {
		return nil, err
	}
	token.Code = cb.GetCode()
	return token, nil
}

func (p *WeChatEnterpriseProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}

	who, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{
		"access_token": {token.AccessToken},
		"code":         {token.Code},
	}, nil)
	if err != nil {
		return nil, err
	}
	userID := who.String("UserId")
	if userID == "" {
		return nil, oauth.NewError(p.name, oauth.CodeFailure, "user is not a member of the enterprise")
	}
	token.UserID = userID

	data, err := p.get(ctx, wechatEnterpriseUserURL, url.Values{
		"access_token": {token.AccessToken},
		"userid":       {userID},
	}, nil)
	if err != nil {
		return nil, err
	}

	return &oauth.Property{
		UUID:     userID,
		Username: data.String("name"),
		Nickname: data.String("alias"),
		Avatar:   data.String("avatar"),
		Location: data.String("address"),
		Email:    data.String("email"),
		Remark:   data.String("position"),
		Gender:   genderFromNumber(data.String("gender")),
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}
