package provider

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var jdEndpoint = Endpoint{
	AuthorizeURL:   "https://open-oauth.jd.com/oauth2/to_login",
	AccessTokenURL: "https://open-oauth.jd.com/oauth2/access_token",
	UserInfoURL:    "https://api.jd.com/routerjson",
	RefreshURL:     "https://open-oauth.jd.com/oauth2/refresh_token",
}

const (
	jdUserMethod  = "jingdong.user.getUserInfoByOpenId"
	jdTimeLayout  = "2006-01-02 15:04:05"
	jdUserRespKey = "jingdong_user_getUserInfoByOpenId_response"
)

// JDProvider implements JD.com login. Profile lookups go through the signed
// router API.
type JDProvider struct {
	*RestProvider
}

func NewJDProvider(cfg oauth.AppConfig, opts ...Option) *JDProvider {
	p := &JDProvider{newRestProvider(oauth.SourceJD, cfg, jdEndpoint, newOptions(opts), "snsapi_base")}
	p.check = func(o object) error { return checkJD(p.name, o) }
	return p
}

func (p *JDProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"app_key":       {p.cfg.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {p.cfg.RedirectURI},
		"scope":         {"snsapi_base"},
		"state":         {req.State},
	})
}

func (p *JDProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, url.Values{
		"app_key":    {p.cfg.ClientID},
		"app_secret": {p.cfg.ClientSecret},
		"grant_type": {"authorization_code"},
		"code":       {cb.GetCode()},
	}, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *JDProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}

	paramJSON, _ := json.Marshal(map[string]string{"openId": token.OpenID})
	params := map[string]string{
		"access_token":      token.AccessToken,
		"app_key":           p.cfg.ClientID,
		"method":            jdUserMethod,
		"360buy_param_json": string(paramJSON),
		"timestamp":         p.opts.now().Format(jdTimeLayout),
		"v":                 "2.0",
	}
	params["sign"] = jdSign(p.cfg.ClientSecret, params)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	resp, err := p.postForm(ctx, p.endpoint.UserInfoURL, form, nil)
	if err != nil {
		return nil, err
	}
	data := resp.Path(jdUserRespKey, "getuserinfobyappidandopenid_result", "data")
	// older gateway versions spell these nickName and gendar
	nickname := data.First("nickname", "nickName")

	return &oauth.Property{
		UUID:     token.OpenID,
		Username: nickname,
		Nickname: nickname,
		Avatar:   data.String("imageUrl"),
		Gender:   genderFromNumber(data.First("gender", "gendar")),
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}, nil
}

func (p *JDProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.postForm(ctx, p.endpoint.RefreshURL, url.Values{
		"app_key":       {p.cfg.ClientID},
		"app_secret":    {p.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
	}, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

// checkJD reports OAuth errors, which JD signals with a "msg" field, and
// router errors wrapped in error_response.
func checkJD(name string, o object) error {
	if err := checkResponse(name, o); err != nil {
		return err
	}
	if o.Has("error_response") {
		e := o.Object("error_response")
		return oauth.NewError(name, e.String("code"), e.First("zh_desc", "en_desc"))
	}
	if o.Has("msg") && !o.Has("access_token") {
		return oauth.NewError(name, o.String("code"), o.String("msg"))
	}
	return nil
}
