package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var qqEndpoint = Endpoint{
	AuthorizeURL:   "https://graph.qq.com/oauth2.0/authorize",
	AccessTokenURL: "https://graph.qq.com/oauth2.0/token",
	UserInfoURL:    "https://graph.qq.com/user/get_user_info",
	RefreshURL:     "https://graph.qq.com/oauth2.0/token",
}

const qqOpenIDURL = "https://graph.qq.com/oauth2.0/me"

// QQProvider implements QQ Connect login. The token endpoint answers with a
// form-encoded body and the open id lookup with JSONP; both are handled by
// the response decoder.
type QQProvider struct {
	*RestProvider
}

func NewQQProvider(cfg oauth.AppConfig, opts ...Option) *QQProvider {
	p := &QQProvider{newRestProvider(oauth.SourceQQ, cfg, qqEndpoint, newOptions(opts), "get_user_info")}
	p.check = checkCodeField(p.name, "ret", "msg")
	return p
}

func (p *QQProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.get(ctx, p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode()), nil)
	if err != nil {
		return nil, err
	}
	token, err := tokenFromObject(p.name, data)
	if err != nil {
		return nil, err
	}
	if err := p.fillOpenID(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (p *QQProvider) fillOpenID(ctx context.Context, token *oauth.AccToken) error {
	q := url.Values{"access_token": {token.AccessToken}}
	if p.cfg.UnionID {
		q.Set("unionid", "1")
	}
	data, err := p.get(ctx, qqOpenIDURL, q, nil)
	if err != nil {
		return err
	}
	token.OpenID = data.String("openid")
	token.UnionID = data.String("unionid")
	return nil
}

func (p *QQProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	if token.OpenID == "" {
		if err := p.fillOpenID(ctx, token); err != nil {
			return nil, err
		}
	}

	data, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{
		"access_token":       {token.AccessToken},
		"oauth_consumer_key": {p.cfg.ClientID},
		"openid":             {token.OpenID},
	}, nil)
	if err != nil {
		return nil, err
	}

	uuid := token.OpenID
	if p.cfg.UnionID && token.UnionID != "" {
		uuid = token.UnionID
	}

	location := data.String("province")
	if city := data.String("city"); city != "" {
		location += "-" + city
	}

	return &oauth.Property{
		UUID:     uuid,
		Username: data.String("nickname"),
		Nickname: data.String("nickname"),
		Avatar:   data.First("figureurl_qq_2", "figureurl_qq_1"),
		Location: location,
		Gender:   oauth.ParseGender(data.String("gender")),
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}

func (p *QQProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.get(ctx, p.endpoint.RefreshURL, p.refreshTokenParams(token.RefreshToken), nil)
	if err != nil {
		return nil, err
	}
	refreshed, err := tokenFromObject(p.name, data)
	if err != nil {
		return nil, err
	}
	refreshed.OpenID = token.OpenID
	refreshed.UnionID = token.UnionID
	return refreshed, nil
}
