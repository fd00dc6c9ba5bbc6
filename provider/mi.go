package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var miEndpoint = Endpoint{
	AuthorizeURL:   "https://account.xiaomi.com/oauth2/authorize",
	AccessTokenURL: "https://account.xiaomi.com/oauth2/token",
	UserInfoURL:    "https://open.account.xiaomi.com/user/profile",
	RefreshURL:     "https://account.xiaomi.com/oauth2/token",
}

const miEmailURL = "https://open.account.xiaomi.com/user/phoneAndEmail"

// MiProvider implements Xiaomi account login. Token responses carry a
// "&&&START&&&" prefix which the decoder strips.
type MiProvider struct {
	*RestProvider
}

func NewMiProvider(cfg oauth.AppConfig, opts ...Option) *MiProvider {
	p := &MiProvider{newRestProvider(oauth.SourceMi, cfg, miEndpoint, newOptions(opts), "user/profile", "user/openIdV2")}
	p.check = func(o object) error {
		if err := checkResponse(p.name, o); err != nil {
			return err
		}
		if o.Has("result") && o.String("result") != "ok" {
			return oauth.NewError(p.name, o.String("code"), o.First("description", "result"))
		}
		return nil
	}
	return p
}

func (p *MiProvider) Authorize(req oauth.AuthorizeRequest) string {
	return p.RestProvider.Authorize(req) + "&skip_confirm=false"
}

func (p *MiProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.get(ctx, p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode()), nil)
	if err != nil {
		return nil, err
	}
	return miToken(p.name, data)
}

func (p *MiProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	q := url.Values{"clientId": {p.cfg.ClientID}, "token": {token.AccessToken}}
	resp, err := p.get(ctx, p.endpoint.UserInfoURL, q, nil)
	if err != nil {
		return nil, err
	}
	data := resp.Object("data")

	user := &oauth.Property{
		UUID:     token.OpenID,
		Username: data.String("miliaoNick"),
		Nickname: data.String("miliaoNick"),
		Avatar:   data.String("miliaoIcon"),
		Email:    data.String("mail"),
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}
	if unionID := data.String("unionId"); unionID != "" {
		token.UnionID = unionID
	}

	// The email is optional and needs a separate scope.
	if contact, err := p.get(ctx, miEmailURL, q, nil); err == nil {
		if email := contact.Object("data").String("email"); email != "" {
			user.Email = email
		}
	}
	return user, nil
}

func (p *MiProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.get(ctx, p.endpoint.RefreshURL, p.refreshTokenParams(token.RefreshToken), nil)
	if err != nil {
		return nil, err
	}
	return miToken(p.name, data)
}

func miToken(name string, data object) (*oauth.AccToken, error) {
	token, err := tokenFromObject(name, data)
	if err != nil {
		return nil, err
	}
	token.OpenID = data.First("openId", "openid")
	token.MacKey = data.String("mac_key")
	token.MacAlgorithm = data.String("mac_algorithm")
	return token, nil
}
