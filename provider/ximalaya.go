package provider

import (
	"context"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/meysam81/go-bus/auth/oauth"
)

var ximalayaEndpoint = Endpoint{
	AuthorizeURL:   "https://api.ximalaya.com/oauth2/js/authorize",
	AccessTokenURL: "https://api.ximalaya.com/oauth2/v2/access_token",
	UserInfoURL:    "https://api.ximalaya.com/profile/user_info",
	RefreshURL:     "https://api.ximalaya.com/oauth2/v2/access_token",
}

// ximalayaWebClient is the client_os_type of browser applications.
const ximalayaWebClient = "3"

// XimalayaProvider implements Ximalaya login. Profile calls are signed with
// the app secret.
type XimalayaProvider struct {
	*RestProvider
}

func NewXimalayaProvider(cfg oauth.AppConfig, opts ...Option) *XimalayaProvider {
	p := &XimalayaProvider{newRestProvider(oauth.SourceXimalaya, cfg, ximalayaEndpoint, newOptions(opts))}
	p.check = func(o object) error {
		if err := checkResponse(p.name, o); err != nil {
			return err
		}
		if o.Has("error_no") {
			return oauth.NewError(p.name, o.String("error_no"), o.First("error_desc", "error_code"))
		}
		return nil
	}
	return p
}

func (p *XimalayaProvider) osType() string {
	if p.cfg.ClientOSType != 0 {
		return strconv.Itoa(p.cfg.ClientOSType)
	}
	return ximalayaWebClient
}

func (p *XimalayaProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"response_type":  {"code"},
		"client_id":      {p.cfg.ClientID},
		"redirect_uri":   {p.cfg.RedirectURI},
		"state":          {req.State},
		"client_os_type": {p.osType()},
		"device_id":      {p.cfg.DeviceID},
	})
}

func (p *XimalayaProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	params := p.accessTokenParams(cb.GetCode())
	params.Set("device_id", p.cfg.DeviceID)

	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, params, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *XimalayaProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}

	params := map[string]string{
		"app_key":        p.cfg.ClientID,
		"client_os_type": p.osType(),
		"device_id":      p.cfg.DeviceID,
		"uid":            token.UID,
		"access_token":   token.AccessToken,
		"nonce":          uuid.NewString(),
		"timestamp":      strconv.FormatInt(p.opts.now().UnixMilli(), 10),
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("sig", ximalayaSignature(params, p.cfg.ClientSecret))

	data, err := p.get(ctx, p.endpoint.UserInfoURL, q, nil)
	if err != nil {
		return nil, err
	}

	return &oauth.Property{
		UUID:     data.First("id", "uid"),
		Username: data.String("nickname"),
		Nickname: data.String("nickname"),
		Avatar:   data.String("avatar_url"),
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}

func (p *XimalayaProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	params := p.refreshTokenParams(token.RefreshToken)
	params.Set("device_id", p.cfg.DeviceID)

	data, err := p.postForm(ctx, p.endpoint.RefreshURL, params, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}
