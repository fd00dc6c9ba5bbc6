package provider

import (
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const microsoftUserInfoURL = "https://graph.microsoft.com/v1.0/me"

// NewMicrosoftProvider creates a Microsoft identity platform provider. The
// profile comes from Microsoft Graph; cfg.Tenant defaults to "common".
func NewMicrosoftProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)

	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}

	// Use Microsoft's Azure AD endpoint
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     microsoft.AzureADEndpoint(tenant),
		Scopes:       o.scopesOr(cfg.Scopes, "User.Read", "offline_access"),
	}

	extractFunc := func(data object) *oauth.Property {
		return &oauth.Property{
			UUID:     data.String("id"),
			Username: data.String("userPrincipalName"),
			Nickname: data.String("displayName"),
			Location: data.String("officeLocation"),
			Email:    data.String("mail"),
			Remark:   data.String("jobTitle"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceMicrosoft, oauth2Config, microsoftUserInfoURL, extractFunc).apply(o)
	p.pkce = true
	return p
}
