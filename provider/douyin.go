package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/meysam81/go-bus/auth/oauth"
)

var douyinEndpoint = Endpoint{
	AuthorizeURL:   "https://open.douyin.com/platform/oauth/connect",
	AccessTokenURL: "https://open.douyin.com/oauth/access_token/",
	UserInfoURL:    "https://open.douyin.com/oauth/userinfo/",
	RefreshURL:     "https://open.douyin.com/oauth/refresh_token/",
}

// DouyinProvider implements Douyin (TikTok China) login. Errors are reported
// inside the "data" envelope.
type DouyinProvider struct {
	*RestProvider
}

func NewDouyinProvider(cfg oauth.AppConfig, opts ...Option) *DouyinProvider {
	p := &DouyinProvider{newRestProvider(oauth.SourceDouyin, cfg, douyinEndpoint, newOptions(opts), "user_info")}
	p.check = checkDataEnvelope(p.name)
	return p
}

func (p *DouyinProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"client_key":    {p.cfg.ClientID},
		"response_type": {"code"},
		"scope":         {strings.Join(p.scopes, ",")},
		"redirect_uri":  {p.cfg.RedirectURI},
		"state":         {req.State},
	})
}

func (p *DouyinProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	resp, err := p.get(ctx, p.endpoint.AccessTokenURL, url.Values{
		"client_key":    {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"code":          {cb.GetCode()},
		"grant_type":    {"authorization_code"},
	}, nil)
	if err != nil {
		return nil, err
	}
	return issued(p.name, resp, tokenFields(resp.Object("data")))
}

func (p *DouyinProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	resp, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{
		"access_token": {token.AccessToken},
		"open_id":      {token.OpenID},
	}, nil)
	if err != nil {
		return nil, err
	}

	data := resp.Object("data")
	if unionID := data.String("union_id"); unionID != "" {
		token.UnionID = unionID
	}
	return &oauth.Property{
		UUID:     data.String("open_id"),
		Username: data.String("nickname"),
		Nickname: data.String("nickname"),
		Avatar:   data.String("avatar"),
		Location: data.String("province") + data.String("city"),
		Remark:   data.String("description"),
		Gender:   genderFromNumber(data.String("gender")),
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}, nil
}

func (p *DouyinProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	resp, err := p.get(ctx, p.endpoint.RefreshURL, url.Values{
		"client_key":    {p.cfg.ClientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
	}, nil)
	if err != nil {
		return nil, err
	}
	return issued(p.name, resp, tokenFields(resp.Object("data")))
}

// checkDataEnvelope handles the ByteDance response layout where a non-zero
// data.error_code marks a failure.
func checkDataEnvelope(name string) func(object) error {
	return func(o object) error {
		if err := checkResponse(name, o); err != nil {
			return err
		}
		data := o.Object("data")
		if code := data.String("error_code"); code != "" && code != "0" {
			return oauth.NewError(name, code, data.First("description", "message"))
		}
		return nil
	}
}
