package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

const alipayTimeLayout = "2006-01-02 15:04:05"

var alipayEndpoint = Endpoint{
	AuthorizeURL:   "https://openauth.alipay.com/oauth2/publicAppAuthorize.htm",
	AccessTokenURL: "https://openapi.alipay.com/gateway.do",
	UserInfoURL:    "https://openapi.alipay.com/gateway.do",
	RefreshURL:     "https://openapi.alipay.com/gateway.do",
}

// AlipayProvider implements Alipay login through the open platform gateway.
// ClientSecret holds the application's RSA private key (PKCS#8, PEM or bare
// base64) used to sign every gateway call.
type AlipayProvider struct {
	*RestProvider
}

func NewAlipayProvider(cfg oauth.AppConfig, opts ...Option) *AlipayProvider {
	p := &AlipayProvider{newRestProvider(oauth.SourceAlipay, cfg, alipayEndpoint, newOptions(opts), "auth_user")}
	p.check = func(o object) error { return checkAlipay(p.name, o) }
	return p
}

func (p *AlipayProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"app_id":       {p.cfg.ClientID},
		"scope":        {"auth_user"},
		"redirect_uri": {p.cfg.RedirectURI},
		"state":        {req.State},
	})
}

func (p *AlipayProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	resp, err := p.call(ctx, "alipay.system.oauth.token", url.Values{
		"grant_type": {"authorization_code"},
		"code":       {cb.GetCode()},
	})
	if err != nil {
		return nil, err
	}
	return alipayToken(p.name, resp)
}

func (p *AlipayProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	resp, err := p.call(ctx, "alipay.user.info.share", url.Values{"auth_token": {token.AccessToken}})
	if err != nil {
		return nil, err
	}

	data := resp.Object("alipay_user_info_share_response")
	location := data.String("province")
	if city := data.String("city"); city != "" {
		location += " " + city
	}

	return &oauth.Property{
		UUID:     data.First("user_id", "open_id"),
		Username: data.First("user_name", "nick_name"),
		Nickname: data.String("nick_name"),
		Avatar:   data.String("avatar"),
		Location: location,
		Gender:   oauth.ParseGender(data.String("gender")),
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}, nil
}

func (p *AlipayProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	resp, err := p.call(ctx, "alipay.system.oauth.token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
	})
	if err != nil {
		return nil, err
	}
	return alipayToken(p.name, resp)
}

// call signs and posts a gateway method with the common request parameters.
func (p *AlipayProvider) call(ctx context.Context, method string, params url.Values) (object, error) {
	form := url.Values{
		"app_id":    {p.cfg.ClientID},
		"method":    {method},
		"charset":   {"utf-8"},
		"sign_type": {"RSA2"},
		"timestamp": {p.opts.now().Format(alipayTimeLayout)},
		"version":   {"1.0"},
		"format":    {"JSON"},
	}
	for k, vs := range params {
		form[k] = vs
	}

	sign, err := alipaySign(p.cfg.ClientSecret, alipayContent(form))
	if err != nil {
		return nil, p.fail(err)
	}
	form.Set("sign", sign)

	return p.postForm(ctx, p.endpoint.AccessTokenURL, form, nil)
}

func alipayToken(name string, resp object) (*oauth.AccToken, error) {
	data := resp.Object("alipay_system_oauth_token_response")
	return issued(name, resp, &oauth.AccToken{
		AccessToken:          data.String("access_token"),
		RefreshToken:         data.String("refresh_token"),
		ExpireIn:             data.Int("expires_in"),
		RefreshTokenExpireIn: data.Int("re_expires_in"),
		UID:                  data.String("user_id"),
		OpenID:               data.String("open_id"),
		Raw:                  data,
	})
}

// checkAlipay reports gateway errors, which arrive either as error_response
// or as a method response whose code is not 10000.
func checkAlipay(name string, o object) error {
	if o.Has("error_response") {
		e := o.Object("error_response")
		return oauth.NewError(name, e.First("sub_code", "code"), e.First("sub_msg", "msg"))
	}
	for key, v := range o {
		if key == "sign" {
			continue
		}
		inner, ok := v.(map[string]any)
		if !ok {
			continue
		}
		r := object(inner)
		if code := r.String("code"); code != "" && code != "10000" {
			return oauth.NewError(name, r.First("sub_code", "code"), r.First("sub_msg", "msg"))
		}
	}
	return nil
}
