package provider

import (
	"context"
	"net/http"
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
)

var teambitionEndpoint = Endpoint{
	AuthorizeURL:   "https://account.teambition.com/oauth2/authorize",
	AccessTokenURL: "https://account.teambition.com/oauth2/access_token",
	UserInfoURL:    "https://api.teambition.com/users/me",
	RefreshURL:     "https://account.teambition.com/oauth2/refresh_token",
}

type TeambitionProvider struct {
	*RestProvider
}

func NewTeambitionProvider(cfg oauth.AppConfig, opts ...Option) *TeambitionProvider {
	return &TeambitionProvider{newRestProvider(oauth.SourceTeambition, cfg, teambitionEndpoint, newOptions(opts))}
}

func (p *TeambitionProvider) Authorize(req oauth.AuthorizeRequest) string {
	return withQuery(p.endpoint.AuthorizeURL, url.Values{
		"client_id":    {p.cfg.ClientID},
		"redirect_uri": {p.cfg.RedirectURI},
		"state":        {req.State},
	})
}

func (p *TeambitionProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.postForm(ctx, p.endpoint.AccessTokenURL, url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"code":          {cb.GetCode()},
		"grant_type":    {"code"},
	}, nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *TeambitionProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	data, err := p.get(ctx, p.endpoint.UserInfoURL, nil, http.Header{"Authorization": {"OAuth2 " + token.AccessToken}})
	if err != nil {
		return nil, err
	}

	token.UID = data.String("_id")
	return &oauth.Property{
		UUID:     token.UID,
		Username: data.String("name"),
		Nickname: data.String("name"),
		Avatar:   data.String("avatarUrl"),
		Blog:     data.String("website"),
		Location: data.String("location"),
		Email:    data.String("email"),
		Remark:   data.String("title"),
		Gender:   oauth.GenderUnknown,
		Source:   p.name,
		Token:    token,
		Raw:      data,
	}, nil
}

// Refresh exchanges the refresh token; Teambition keys it by the user id
// learned from GetUserInfo.
func (p *TeambitionProvider) Refresh(ctx context.Context, token *oauth.AccToken) (*oauth.AccToken, error) {
	if err := p.requireRefreshToken(token); err != nil {
		return nil, err
	}
	data, err := p.postForm(ctx, p.endpoint.RefreshURL, url.Values{
		"_userId":       {token.UID},
		"refresh_token": {token.RefreshToken},
	}, nil)
	if err != nil {
		return nil, err
	}
	refreshed, err := tokenFromObject(p.name, data)
	if err != nil {
		return nil, err
	}
	refreshed.UID = token.UID
	return refreshed, nil
}
