package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/meysam81/go-bus/auth/oauth"
)

// CodingProvider implements login for coding.net team domains. Tencent Cloud
// Developer (dev.tencent.com) runs the same API and shares this type.
type CodingProvider struct {
	*RestProvider
	site string
}

// NewCodingProvider creates a provider for https://{cfg.CodingGroupName}.coding.net.
func NewCodingProvider(cfg oauth.AppConfig, opts ...Option) *CodingProvider {
	site := fmt.Sprintf("https://%s.coding.net", cfg.CodingGroupName)
	return newCodingProvider(oauth.SourceCoding, site, cfg, opts)
}

// NewTencentCloudProvider creates a provider for Tencent Cloud Developer.
func NewTencentCloudProvider(cfg oauth.AppConfig, opts ...Option) *CodingProvider {
	return newCodingProvider(oauth.SourceTencentCloud, "https://dev.tencent.com", cfg, opts)
}

func newCodingProvider(name, site string, cfg oauth.AppConfig, opts []Option) *CodingProvider {
	endpoint := Endpoint{
		AuthorizeURL:   site + "/oauth_authorize.html",
		AccessTokenURL: site + "/api/oauth/access_token",
		UserInfoURL:    site + "/api/account/current_user",
	}
	p := &CodingProvider{
		RestProvider: newRestProvider(name, cfg, endpoint, newOptions(opts), "user"),
		site:         site,
	}
	p.check = checkCodeField(name, "code", "msg")
	return p
}

func (p *CodingProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	data, err := p.get(ctx, p.endpoint.AccessTokenURL, p.accessTokenParams(cb.GetCode()), nil)
	if err != nil {
		return nil, err
	}
	return tokenFromObject(p.name, data)
}

func (p *CodingProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	if err := p.requireAccessToken(token); err != nil {
		return nil, err
	}
	resp, err := p.get(ctx, p.endpoint.UserInfoURL, url.Values{"access_token": {token.AccessToken}}, nil)
	if err != nil {
		return nil, err
	}

	data := resp.Object("data")
	avatar := data.String("avatar")
	if strings.HasPrefix(avatar, "/") {
		avatar = p.site + avatar
	}

	// Coding reports sex as 0 for male and 1 for female.
	gender := oauth.GenderUnknown
	switch data.String("sex") {
	case "0":
		gender = oauth.GenderMale
	case "1":
		gender = oauth.GenderFemale
	}

	return &oauth.Property{
		UUID:     data.String("id"),
		Username: data.String("name"),
		Nickname: data.String("name"),
		Avatar:   avatar,
		Blog:     p.site + data.String("path"),
		Company:  data.String("company"),
		Location: data.String("location"),
		Email:    data.String("email"),
		Remark:   data.String("slogan"),
		Gender:   gender,
		Source:   p.name,
		Token:    token,
		Raw:      resp,
	}, nil
}
