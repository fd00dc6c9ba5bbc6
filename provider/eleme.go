package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/meysam81/go-bus/auth/oauth"
)

var elemeEndpoint = Endpoint{
	AuthorizeURL:   "https://open-api.shop.ele.me/authorize",
	AccessTokenURL: "https://open-api.shop.ele.me/token",
	UserInfoURL:    "https://open-api.shop.ele.me/api/v1/",
	RefreshURL:     "https://open-api.shop.ele.me/token",
}

const elemeUserAction = "eleme.user.getUser"

// ElemeProvider implements Ele.me merchant login. Token calls use HTTP basic
// auth and profile lookups go through the signed JSON-RPC gateway.
type ElemeProvider struct {
	*RestProvider
}

func NewElemeProvider(cfg oauth.AppConfig, opts ...Option) *ElemeProvider {
	return &ElemeProvider{newRestProvider(oauth.SourceEleme, cfg, elemeEndpoint, newOptions(opts), "all")}
}

func (p *ElemeProvider) basicAuth() http.Header {
	return http.Header{"Authorization": {"Basic " + basicCredentials(p.cfg.ClientID, p.cfg.ClientSecret)}}
}

func (p *ElemeProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, url.Values{
		"client_id":    {p.cfg.ClientID},
		"redirect_uri": {p.cfg.RedirectURI},
		"code":         {cb.GetCode()},
		"grant_type":   {"authorization_code"},
	}, p.basicAuth())
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *ElemeProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}

	now := p.opts.now()
	timestamp := now.Unix()
	requestID := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	params := map[string]any{}

	body := map[string]any{
		"nop":    "1.0.0",
		"id":     requestID,
		"action": elemeUserAction,
		"token":  token.AccessToken,
		"metas": map[string]any{
			"app_key":   p.cfg.ClientID,
			"timestamp": timestamp,
		},
		"params":    params,
		"signature": elemeSignature(p.cfg.ClientID, p.cfg.ClientSecret, timestamp, elemeUserAction, token.AccessToken, params),
	}
	header := http.Header{"X-Eleme-Requestid": {requestID + "|" + strconv.FormatInt(now.UnixMilli(), 10)}}

	resp, err := p.postJSON(ctx, p.endpoint.UserInfoURL, body, header)
	if err != nil {
		return nil, err
	}
	data := resp.Object("result")

	return &oauth.Property{
		UUID:     data.String("userId"),
		Username: data.String("userName"),
		Nickname: data.String("userName"),
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}, nil
}

func (p *ElemeProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.postForm(ctx, p.endpoint.RefreshURL, url.Values{
		"refresh_token": {token.RefreshToken},
		"grant_type":    {"refresh_token"},
	}, p.basicAuth())
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}
