package provider

import (
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	// githubUserInfoURL is the GitHub API endpoint for retrieving authenticated user information.
	githubUserInfoURL = "https://api.github.com/user"
)

// NewGitHubProvider creates a GitHub OAuth2 provider for GitHub authentication.
//
// GitHub does not support OIDC, so user information is retrieved from GitHub's
// REST API rather than from ID tokens.
//
// GitHub provider features:
//   - OAuth2 authorization code flow
//   - Access to user profile via GitHub API
//   - Returns GitHub username (login), name, avatar, blog, company and email
//
// Setup instructions:
//  1. Go to GitHub Settings > Developer settings > OAuth Apps (github.com/settings/developers)
//  2. Click "New OAuth App" or use an existing application
//  3. Set the Authorization callback URL to your redirect URL
//  4. Copy the Client ID and generate a Client Secret
//
// The provider will request the following scopes by default:
//   - user:email: Access to user's email addresses
//   - read:user: Access to user's profile information
//
// GitHub answers a bad code with HTTP 200 and an "error" field, e.g.
// "bad_verification_code"; it is reported as the *oauth.Error code. Tokens of
// OAuth Apps do not expire, so Refresh is only useful for GitHub Apps with
// expiring user tokens.
func NewGitHubProvider(cfg oauth.AppConfig, opts ...Option) *OAuth2Provider {
	o := newOptions(opts)
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     github.Endpoint,
		Scopes:       o.scopesOr(cfg.Scopes, "user:email", "read:user"),
	}

	extractFunc := func(data object) *oauth.Property {
		// GitHub uses "id" as the unique identifier
		return &oauth.Property{
			UUID:     data.String("id"),
			Username: data.String("login"),
			Nickname: data.String("name"),
			Avatar:   data.String("avatar_url"),
			Blog:     data.String("blog"),
			Company:  data.String("company"),
			Location: data.String("location"),
			Email:    data.String("email"),
			Remark:   data.String("bio"),
			Gender:   oauth.GenderUnknown,
		}
	}

	p := NewOAuth2Provider(oauth.SourceGitHub, oauth2Config, githubUserInfoURL, extractFunc).apply(o)
	p.userInfoHdr = map[string][]string{"Accept": {"application/vnd.github+json"}}
	return p
}
