package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/meysam81/go-bus/auth/oauth"
)

const maxResponseBytes = 1 << 20

// caller performs provider HTTP calls and normalizes their failures.
type caller struct {
	name   string
	client *http.Client
	check  func(object) error
}

func (c *caller) get(ctx context.Context, rawURL string, query url.Values, header http.Header) (object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, withQuery(rawURL, query), nil)
	if err != nil {
		return nil, c.fail(err)
	}
	copyHeader(req.Header, header)
	return c.do(req)
}

func (c *caller) postForm(ctx context.Context, rawURL string, form url.Values, header http.Header) (object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, c.fail(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	copyHeader(req.Header, header)
	return c.do(req)
}

func (c *caller) postJSON(ctx context.Context, rawURL string, body any, header http.Header) (object, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, c.fail(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(raw))
	if err != nil {
		return nil, c.fail(err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	copyHeader(req.Header, header)
	return c.do(req)
}

func (c *caller) do(req *http.Request) (object, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.fail(err)
	}

	o, decodeErr := decodeObject(body)
	if decodeErr == nil {
		if err := c.check(o); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, oauth.NewError(c.name, strconv.Itoa(resp.StatusCode), truncate(string(body), 256))
	}
	if decodeErr != nil {
		return nil, c.fail(decodeErr)
	}
	return o, nil
}

func (c *caller) fail(err error) error {
	return &oauth.Error{Code: oauth.CodeFailure, Message: err.Error(), Provider: c.name, Err: err}
}

func withQuery(rawURL string, query url.Values) string {
	if len(query) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + query.Encode()
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Endpoint holds the URLs of a non-standard platform.
type Endpoint struct {
	AuthorizeURL   string
	AccessTokenURL string
	UserInfoURL    string
	RefreshURL     string
	RevokeURL      string
}

// RestProvider is the base for platforms whose token or profile APIs deviate
// from RFC 6749 (signed requests, JSONP bodies, codes in query strings). Each
// concrete provider embeds it and implements GetAccessToken and GetUserInfo.
type RestProvider struct {
	caller
	cfg      oauth.AppConfig
	endpoint Endpoint
	scopes   []string
	opts     *options
}

func newRestProvider(name string, cfg oauth.AppConfig, endpoint Endpoint, o *options, defaultScopes ...string) *RestProvider {
	p := &RestProvider{
		caller:   caller{name: name, client: o.httpClient},
		cfg:      cfg,
		endpoint: endpoint,
		scopes:   o.scopesOr(cfg.Scopes, defaultScopes...),
		opts:     o,
	}
	p.check = func(obj object) error { return checkResponse(name, obj) }
	return p
}

// Name returns the provider's registered name.
func (p *RestProvider) Name() string {
	return p.name
}

// Authorize builds the standard authorization URL. Platforms with different
// parameter names override it.
func (p *RestProvider) Authorize(req oauth.AuthorizeRequest) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {p.cfg.ClientID},
		"redirect_uri":  {p.cfg.RedirectURI},
		"state":         {req.State},
	}
	if len(p.scopes) > 0 {
		q.Set("scope", strings.Join(p.scopes, " "))
	}
	return withQuery(p.endpoint.AuthorizeURL, q)
}

// accessTokenParams are the standard code exchange parameters.
func (p *RestProvider) accessTokenParams(code string) url.Values {
	return url.Values{
		"code":          {code},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {p.cfg.RedirectURI},
	}
}

// refreshTokenParams are the standard refresh parameters.
func (p *RestProvider) refreshTokenParams(refreshToken string) url.Values {
	return url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
		"redirect_uri":  {p.cfg.RedirectURI},
	}
}

// requireRefreshToken guards refresh calls.
func (p *RestProvider) requireRefreshToken(token *oauth.AccToken) error {
	if token == nil || token.RefreshToken == "" {
		return oauth.ErrIllegalToken.WithProvider(p.name)
	}
	return nil
}

// requireAccessToken guards user info and revoke calls.
func (p *RestProvider) requireAccessToken(token *oauth.AccToken) error {
	if token == nil || token.AccessToken == "" {
		return oauth.ErrIllegalToken.WithProvider(p.name)
	}
	return nil
}

// issued rejects a token response that carries no access token. Several
// platforms answer failures with status 200 and an envelope none of the
// checkers know, so resp is the whole decoded body for the error message.
func issued(name string, resp object, token *oauth.AccToken) (*oauth.AccToken, error) {
	if token.AccessToken == "" {
		raw, _ := json.Marshal(resp)
		return nil, oauth.NewError(name, oauth.CodeFailure, "token response has no access_token: "+truncate(string(raw), 256))
	}
	return token, nil
}

// tokenFromObject maps the common token response fields of o.
func tokenFromObject(name string, o object) (*oauth.AccToken, error) {
	return issued(name, o, tokenFields(o))
}

func tokenFields(o object) *oauth.AccToken {
	return &oauth.AccToken{
		AccessToken:          o.String("access_token"),
		RefreshToken:         o.String("refresh_token"),
		ExpireIn:             o.Int("expires_in"),
		RefreshTokenExpireIn: o.Int("refresh_expires_in"),
		TokenType:            o.String("token_type"),
		Scope:                o.String("scope"),
		UID:                  o.String("uid"),
		OpenID:               o.First("openid", "open_id"),
		UnionID:              o.String("unionid"),
		IDToken:              o.String("id_token"),
		Raw:                  o,
	}
}
