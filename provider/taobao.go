package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var taobaoEndpoint = Endpoint{
	AuthorizeURL:   "https://oauth.taobao.com/authorize",
	AccessTokenURL: "https://oauth.taobao.com/token",
}

// TaobaoProvider implements Taobao login. The token response already carries
// the user's id and nick, so GetUserInfo makes no call.
type TaobaoProvider struct {
	*RestProvider
}

func NewTaobaoProvider(cfg oauth.AppConfig, opts ...Option) *TaobaoProvider {
	return &TaobaoProvider{newRestProvider(oauth.SourceTaobao, cfg, taobaoEndpoint, newOptions(opts))}
}

func (p *TaobaoProvider) Authorize(req oauth.AuthorizeRequest) string {
	return p.RestProvider.Authorize(req) + "&view=web"
}

func (p *TaobaoProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode()), nil)
	if err != nil {
		return nil, err
	}
	token, err := tokenFromObject(p.name, data)
	if err != nil {
		return nil, err
	}
	token.UID = data.String("taobao_user_id")
	token.OpenID = data.String("taobao_open_uid")
	token.RefreshTokenExpireIn = data.Int("re_expires_in")
	return token, nil
}

func (p *TaobaoProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	raw := object(token.Raw)
	nick := raw.String("taobao_user_nick")
	if unescaped, err := url.QueryUnescape(nick); err == nil {
		nick = unescaped
	}

	return &oauth.Property{
		UUID:     token.UID,
		Username: nick,
		Nickname: nick,
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      raw,
	}, nil
}
