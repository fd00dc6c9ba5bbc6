package provider

import (
	"context"
	"net/url"
	"strconv"

	"github.com/meysam81/go-bus/auth/oauth"
)

var huaweiEndpoint = Endpoint{
	AuthorizeURL:   "https://oauth-login.cloud.huawei.com/oauth2/v3/authorize",
	AccessTokenURL: "https://oauth-login.cloud.huawei.com/oauth2/v3/token",
	UserInfoURL:    "https://api.vmall.com/rest.php",
	RefreshURL:     "https://oauth-login.cloud.huawei.com/oauth2/v3/token",
}

// HuaweiProvider implements HUAWEI ID login. The callback carries the code
// as "authorization_code".
type HuaweiProvider struct {
	*RestProvider
}

func NewHuaweiProvider(cfg oauth.AppConfig, opts ...Option) *HuaweiProvider {
	return &HuaweiProvider{newRestProvider(oauth.SourceHuawei, cfg, huaweiEndpoint, newOptions(opts), "openid", "profile")}
}

func (p *HuaweiProvider) Authorize(req oauth.AuthorizeRequest) string {
	return p.RestProvider.Authorize(req) + "&access_type=offline"
}

func (p *HuaweiProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode()), nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *HuaweiProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	data, err := p.postForm(ctx, p.endpoint.UserInfoURL, url.Values{
		"nsp_ts":       {strconv.FormatInt(p.opts.now().Unix(), 10)},
		"access_token": {token.AccessToken},
		"nsp_fmt":      {"JSON"},
		"nsp_svc":      {"OpenUP.User.getInfo"},
	}, nil)
	if err != nil {
		return nil, err
	}

	gender := oauth.GenderUnknown
	if data.Has("gender") {
		gender = oauth.GenderFromHuawei(data.Int("gender"))
	}

	return &oauth.Property{
		UUID:     data.String("userID"),
		Username: data.String("userName"),
		Nickname: data.String("userName"),
		Avatar:   data.String("headPictureURL"),
		Gender:   gender,
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}

func (p *HuaweiProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.postForm(ctx, p.endpoint.RefreshURL, p.refreshTokenParams(token.RefreshToken), nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}
