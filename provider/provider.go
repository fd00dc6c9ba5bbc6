// Package provider contains concrete implementations of social-login providers
// for the oauth.Client workflow.
//
// This package provides three kinds of provider implementations:
//
//  1. OAuth2Provider: platforms that follow RFC 6749 closely enough for
//     golang.org/x/oauth2 to perform the code exchange and refresh. User info is
//     fetched from a provider-specific endpoint. Examples: GitHub, Gitee, Google,
//     Discord, Slack.
//
//  2. BaseOIDCProvider: OpenID Connect issuers with discovery and ID token
//     verification. Examples: Apple, Auth0, any generic OIDC issuer.
//
//  3. RestProvider: platforms whose token or profile APIs deviate from the RFC
//     (signed requests, JSONP bodies, app tokens). Examples: WeChat, QQ,
//     DingTalk, Alipay, JD.
//
// # Usage
//
// Build a provider by name from its application credentials:
//
//	p, err := provider.New(ctx, "github", oauth.AppConfig{
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	    RedirectURI:  "https://myapp.com/auth/github/callback",
//	})
//
// or call the provider-specific constructor directly:
//
//	github := provider.NewGitHubProvider(cfg)
//
// All providers implement oauth.Provider, making them interchangeable in the
// login client:
//
//	client, err := oauth.NewClient(oauth.Config{
//	    Providers:  []oauth.Provider{github, wechat},
//	    StateStore: storage.NewInMemoryStateStore(),
//	})
//
// Every provider reports remote failures as *oauth.Error carrying the
// platform's own error code.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

// OAuth2Provider provides a base implementation for OAuth2-only providers (non-OIDC).
//
// OAuth2Provider handles:
//   - OAuth2 authorization code flow, optionally with PKCE (S256)
//   - Token exchange and refresh through golang.org/x/oauth2
//   - Mapping of RFC 6749 error responses to *oauth.Error
//   - HTTP requests to the provider's user info endpoint
//   - Custom user info extraction via provider-specific logic
//
// The extractFunc parameter allows each provider to define custom logic for
// parsing their specific user info response format into a standardized Property.
//
// This type should not be instantiated directly. Use NewOAuth2Provider or the
// provider-specific constructors (e.g., NewGitHubProvider) instead.
type OAuth2Provider struct {
	caller
	oauth2Config *oauth2.Config
	userInfoURL  string
	extractFunc  func(object) *oauth.Property

	// pkce adds a S256 code challenge to the authorization URL and the verifier
	// to the exchange.
	pkce       bool
	authParams []oauth2.AuthCodeOption

	// tokenParam sends the access token as this query parameter instead of a
	// bearer header when fetching user info.
	tokenParam    string
	userInfoQuery url.Values
	userInfoHdr   http.Header

	refreshable bool
	revokeFunc  func(ctx context.Context, token *oauth.AccToken) error
}

// NewOAuth2Provider creates a new OAuth2-only provider.
//
// Parameters:
//   - name: Registered provider name (e.g., "github", "discord")
//   - oauth2Config: Fully configured OAuth2 config with endpoints, client credentials,
//     redirect URL, and scopes
//   - userInfoURL: The provider's user info endpoint URL (e.g., "https://api.github.com/user")
//   - extractFunc: Custom function to parse the provider's user info response into
//     a standardized Property
//
// The extractFunc receives the decoded JSON response (numbers kept as json.Number)
// and should return a populated Property. Source, Token and Raw are filled in
// by the caller.
//
// Example:
//
//	extractFunc := func(data object) *oauth.Property {
//	    return &oauth.Property{
//	        UUID:     data.String("id"),
//	        Username: data.String("login"),
//	    }
//	}
//	provider := NewOAuth2Provider("github", oauth2Config, userInfoURL, extractFunc)
func NewOAuth2Provider(name string, oauth2Config *oauth2.Config, userInfoURL string, extractFunc func(object) *oauth.Property) *OAuth2Provider {
	p := &OAuth2Provider{
		caller:       caller{name: name, client: &http.Client{Timeout: defaultTimeout}},
		oauth2Config: oauth2Config,
		userInfoURL:  userInfoURL,
		extractFunc:  extractFunc,
		refreshable:  true,
	}
	p.check = func(o object) error { return checkResponse(name, o) }
	return p
}

// apply copies shared options onto the provider.
func (p *OAuth2Provider) apply(o *options) *OAuth2Provider {
	if o.httpClient != nil {
		p.client = o.httpClient
	}
	return p
}

// Name returns the provider's registered name.
func (p *OAuth2Provider) Name() string {
	return p.name
}

// GetOAuth2Config returns the OAuth2 configuration used for authorization flows.
func (p *OAuth2Provider) GetOAuth2Config() *oauth2.Config {
	return p.oauth2Config
}

// Authorize returns the provider's authorization URL for req.
func (p *OAuth2Provider) Authorize(req oauth.AuthorizeRequest) string {
	opts := append([]oauth2.AuthCodeOption{}, p.authParams...)
	if p.pkce && req.CodeVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(req.CodeVerifier))
	}
	return p.oauth2Config.AuthCodeURL(req.State, opts...)
}

// GetAccessToken exchanges the callback code for a token.
//
// Error responses are mapped to *oauth.Error with the provider's error code,
// e.g. "bad_verification_code" for GitHub or "invalid_grant" for RFC 6749
// compliant providers.
func (p *OAuth2Provider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	var opts []oauth2.AuthCodeOption
	if p.pkce && cb.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(cb.CodeVerifier))
	}

	token, err := p.oauth2Config.Exchange(p.context(ctx), cb.GetCode(), opts...)
	if err != nil {
		return nil, p.mapError(err)
	}
	return toAccToken(token), nil
}

// GetUserInfo retrieves user information from the provider's user info endpoint.
//
// This method performs the following steps:
//  1. Creates an authenticated HTTP client using the access token
//  2. Sends a GET request to the provider's user info endpoint
//  3. Checks the response for provider error markers
//  4. Calls the provider-specific extractFunc to convert the response to Property
func (p *OAuth2Provider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if token == nil || token.AccessToken == "" {
		return nil, oauth.ErrIllegalToken.WithProvider(p.name)
	}

	query := url.Values{}
	for k, v := range p.userInfoQuery {
		query[k] = v
	}

	client := p.client
	if p.tokenParam != "" {
		query.Set(p.tokenParam, token.AccessToken)
	} else {
		client = p.oauth2Config.Client(p.context(ctx), &oauth2.Token{
			AccessToken: token.AccessToken,
			TokenType:   "Bearer",
		})
	}

	c := caller{name: p.name, client: client, check: p.check}
	data, err := c.get(ctx, p.userInfoURL, query, p.userInfoHdr)
	if err != nil {
		return nil, err
	}

	user := p.extractFunc(data)
	user.Source = p.name
	user.Token = token
	if user.Raw == nil {
		user.Raw = data
	}
	return user, nil
}

// Refresh exchanges the refresh token for a new access token.
func (p *OAuth2Provider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if !p.refreshable {
		return nil, oauth.ErrUnsupported.WithProvider(p.name)
	}
	if token == nil || token.RefreshToken == "" {
		return nil, oauth.ErrIllegalToken.WithProvider(p.name)
	}

	src := p.oauth2Config.TokenSource(p.context(ctx), &oauth2.Token{RefreshToken: token.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		return nil, p.mapError(err)
	}
	return toAccToken(fresh), nil
}

// Revoke revokes the token when the provider exposes a revocation endpoint.
func (p *OAuth2Provider) Revoke(ctx context.Context, token *oauth.AccToken) error {
	if p.revokeFunc == nil {
		return oauth.ErrUnsupported.WithProvider(p.name)
	}
	if token == nil || token.AccessToken == "" {
		return oauth.ErrIllegalToken.WithProvider(p.name)
	}
	return p.revokeFunc(ctx, token)
}

// revokeRFC7009 returns a revoke func posting the token to revokeURL. With
// basicAuth the client credentials travel in the Authorization header,
// otherwise in the form.
func (p *OAuth2Provider) revokeRFC7009(revokeURL string, basicAuth bool) func(context.Context, *oauth.AccToken) error {
	return func(ctx context.Context, token *oauth.AccToken) error {
		form := url.Values{
			"token":           {token.AccessToken},
			"token_type_hint": {"access_token"},
			"client_id":       {p.oauth2Config.ClientID},
		}
		header := http.Header{}
		if basicAuth {
			header.Set("Authorization", "Basic "+basicCredentials(p.oauth2Config.ClientID, p.oauth2Config.ClientSecret))
		} else {
			form.Set("client_secret", p.oauth2Config.ClientSecret)
		}
		_, err := p.postForm(ctx, revokeURL, form, header)
		return err
	}
}

// context injects the provider's HTTP client for golang.org/x/oauth2.
func (p *OAuth2Provider) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}

// mapError converts golang.org/x/oauth2 failures into *oauth.Error.
func (p *OAuth2Provider) mapError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return p.fail(err)
	}

	code, msg := re.ErrorCode, re.ErrorDescription
	if code == "" {
		if o, derr := decodeObject(re.Body); derr == nil {
			if cerr := p.check(o); cerr != nil {
				return cerr
			}
		}
		code = oauth.CodeFailure
		if re.Response != nil {
			code = strconv.Itoa(re.Response.StatusCode)
		}
	}
	if msg == "" {
		msg = truncate(string(re.Body), 256)
	}
	return &oauth.Error{Code: code, Message: msg, Provider: p.name, Err: err}
}

// toAccToken converts an oauth2.Token into the normalized token.
func toAccToken(t *oauth2.Token) *oauth.AccToken {
	at := &oauth.AccToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Scope:        stringify(t.Extra("scope")),
		IDToken:      stringify(t.Extra("id_token")),
		OpenID:       stringify(t.Extra("open_id")),
		UserID:       stringify(t.Extra("user_id")),
		IssuedAt:     time.Now(),
	}
	if !t.Expiry.IsZero() {
		at.ExpireIn = int(time.Until(t.Expiry).Round(time.Second).Seconds())
	}
	return at
}

// BaseOIDCProvider provides a base implementation for standard OIDC providers.
//
// It embeds OAuth2Provider for the authorization code flow and adds:
//   - OIDC discovery (automatic endpoint configuration)
//   - ID token verification using the provider's signing keys
//   - Standard claim extraction from ID tokens
//   - Token revocation when the issuer advertises a revocation_endpoint
//
// User information is extracted from the verified ID token. When the token
// response carries no ID token, the issuer's userinfo endpoint is used instead.
//
// This type should not be instantiated directly. Use NewOIDCProvider or the
// provider-specific constructors (e.g., NewAppleProvider) instead.
type BaseOIDCProvider struct {
	*OAuth2Provider
	oidcProvider *oidc.Provider
	oidcVerifier *oidc.IDTokenVerifier
}

// NewOIDCProvider creates a new OIDC provider with standard configuration.
//
// This constructor performs OIDC discovery against the issuer URL to automatically
// configure endpoints for authorization, token exchange, and key retrieval. The
// issuer URL should be the base URL of the OIDC provider (e.g., "https://accounts.google.com").
//
// Returns an error if OIDC discovery fails, typically due to network issues or
// an invalid issuer URL.
//
// Example:
//
//	provider, err := NewOIDCProvider(
//	    ctx,
//	    "oidc",
//	    "https://identity.example.com",
//	    oauth.AppConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://myapp.com/cb"},
//	    []string{"openid", "email", "profile"},
//	)
func NewOIDCProvider(ctx context.Context, name, issuerURL string, cfg oauth.AppConfig, scopes []string, opts ...Option) (*BaseOIDCProvider, error) {
	o := newOptions(opts)

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, o.httpClient), issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     provider.Endpoint(),
		Scopes:       o.scopesOr(cfg.Scopes, scopes...),
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	base := NewOAuth2Provider(name, oauth2Config, provider.UserInfoEndpoint(), extractClaims).apply(o)
	base.pkce = true

	var meta struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&meta); err == nil && meta.RevocationEndpoint != "" {
		base.revokeFunc = base.revokeRFC7009(meta.RevocationEndpoint, true)
	}

	return &BaseOIDCProvider{
		OAuth2Provider: base,
		oidcProvider:   provider,
		oidcVerifier:   verifier,
	}, nil
}

// GetOIDCProvider returns the underlying OIDC provider instance.
func (p *BaseOIDCProvider) GetOIDCProvider() *oidc.Provider {
	return p.oidcProvider
}

// GetUserInfo extracts and verifies user information.
//
// The following standard OIDC claims are extracted when present:
//   - sub (subject): Unique user identifier
//   - email: User's email address
//   - name: User's full name
//   - picture: URL to user's profile picture
//   - preferred_username: User's preferred username
//   - gender: User's gender
//
// All raw claims are preserved in Property.Raw for provider-specific use.
func (p *BaseOIDCProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if token == nil || (token.IDToken == "" && token.AccessToken == "") {
		return nil, oauth.ErrIllegalToken.WithProvider(p.name)
	}

	ctx = oidc.ClientContext(ctx, p.client)

	var claims map[string]any
	if token.IDToken != "" {
		idToken, err := p.oidcVerifier.Verify(ctx, token.IDToken)
		if err != nil {
			return nil, &oauth.Error{Code: oauth.CodeIllegalToken, Message: "failed to verify ID token", Provider: p.name, Err: err}
		}
		if err := idToken.Claims(&claims); err != nil {
			return nil, p.fail(fmt.Errorf("failed to parse claims: %w", err))
		}
	} else {
		info, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.AccessToken}))
		if err != nil {
			return nil, p.fail(fmt.Errorf("failed to fetch user info: %w", err))
		}
		if err := info.Claims(&claims); err != nil {
			return nil, p.fail(fmt.Errorf("failed to parse claims: %w", err))
		}
	}

	user := p.extractFunc(object(claims))
	user.Source = p.name
	user.Token = token
	user.Raw = claims
	return user, nil
}

// extractClaims maps standard OIDC claims.
func extractClaims(c object) *oauth.Property {
	return &oauth.Property{
		UUID:     c.String("sub"),
		Username: c.First("preferred_username", "email", "sub"),
		Nickname: c.First("name", "nickname"),
		Avatar:   c.String("picture"),
		Email:    c.String("email"),
		Location: c.String("locale"),
		Gender:   oauth.ParseGender(c.String("gender")),
	}
}
