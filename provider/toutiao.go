package provider

import (
	"context"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var toutiaoEndpoint = Endpoint{
	AuthorizeURL:   "https://open.snssdk.com/auth/authorize",
	AccessTokenURL: "https://open.snssdk.com/auth/token",
	UserInfoURL:    "https://open.snssdk.com/data/user_profile",
}

const toutiaoAnonymous = 14

type ToutiaoProvider struct {
	*RestProvider
}

func NewToutiaoProvider(cfg oauth.AppConfig, opts ...Option) *ToutiaoProvider {
	p := &ToutiaoProvider{newRestProvider(oauth.SourceToutiao, cfg, toutiaoEndpoint, newOptions(opts))}
	p.check = checkDataEnvelope(p.name)
	return p
}

func (p *ToutiaoProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"response_type": {"code"},
		"auth_only":     {"1"},
		"display":       {"0"},
		"client_key":    {p.cfg.ClientID},
		"redirect_uri":  {p.cfg.RedirectURI},
		"state":         {req.State},
	})
}

func (p *ToutiaoProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	resp, err := p.get(ctx, p.endpoint.AccessTokenURL, url.Values{
		"code":          {cb.GetCode()},
		"client_key":    {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"grant_type":    {"authorization_code"},
	}, nil)
	if err != nil {
		return nil, err
	}
	return issued(p.name, resp, tokenFields(resp.Object("data")))
}

func (p *ToutiaoProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	resp, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{
		"access_token": {token.AccessToken},
		"client_key":   {p.cfg.ClientID},
	}, nil)
	if err != nil {
		return nil, err
	}

	data := resp.Object("data")
	// Anonymous users have no screen name.
	name := data.String("screen_name")
	if data.Int("uid_type") == toutiaoAnonymous || name == "" {
		name = "匿名用户"
	}

	return &oauth.Property{
		UUID:     data.String("uid"),
		Username: name,
		Nickname: name,
		Avatar:   data.String("avatar_url"),
		Remark:   data.String("description"),
		Gender:   genderFromNumber(data.String("gender")),
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}, nil
}
