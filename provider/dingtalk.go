package provider

import (
	"context"
	"net/url"
	"strconv"

	"github.com/meysam81/go-bus/auth/oauth"
)

var dingTalkEndpoint = Endpoint{
	AuthorizeURL: "https://oapi.dingtalk.com/connect/qrconnect",
	UserInfoURL:  "https://oapi.dingtalk.com/sns/getuserinfo_bycode",
}

// DingTalkProvider implements DingTalk QR-code login. DingTalk has no user
// access token: the callback code is exchanged for the profile directly with
// a request signed by the app secret.
type DingTalkProvider struct {
	*RestProvider
}

func NewDingTalkProvider(cfg oauth.AppConfig, opts ...Option) *DingTalkProvider {
	return &DingTalkProvider{newRestProvider(oauth.SourceDingTalk, cfg, dingTalkEndpoint, newOptions(opts), "snsapi_login")}
}

func (p *DingTalkProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"response_type": {"code"},
		"appid":         {p.cfg.ClientID},
		"scope":         {"snsapi_login"},
		"redirect_uri":  {p.cfg.RedirectURI},
		"state":         {req.State},
	})
}

// GetAccessToken keeps the code for GetUserInfo; no call is made.
func (p *DingTalkProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	return &oauth.AccToken{AccessCode: cb.GetCode()}, nil
}

func (p *DingTalkProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if token == nil || token.AccessCode == "" {
		return nil, oauth.ErrIllegalToken.WithProvider(p.name)
	}

	timestamp := strconv.FormatInt(p.opts.now().UnixMilli(), 10)
	// The signature is already URL encoded and must not be escaped again.
	rawURL := p.endpoint.UserInfoURL +
		"?signature=" + dingTalkSignature(p.cfg.ClientSecret, timestamp) +
		"&timestamp=" + timestamp +
		"&accessKey=" + url.QueryEscape(p.cfg.ClientID)

	data, err := p.postJSON(ctx, rawURL, map[string]string{"tmp_auth_code": token.AccessCode}, nil)
	if err != nil {
		return nil, err
	}

	info := data.Object("user_info")
	token.OpenID = info.String("openid")
	token.UnionID = info.String("unionid")

	return &oauth.Property{
		UUID:     token.UnionID,
		Username: info.String("nick"),
		Nickname: info.String("nick"),
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}
