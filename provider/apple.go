package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/meysam81/go-bus/auth/oauth"
	"golang.org/x/oauth2"
)

const (
	// appleIssuerURL is the OIDC issuer URL for Apple Sign In.
	appleIssuerURL = "https://appleid.apple.com"

	// appleSecretTTL is how long a generated client secret stays valid. Apple
	// accepts at most six months.
	appleSecretTTL = 24 * time.Hour * 180
)

// appleEndpoint defines the OAuth2 endpoints for Apple Sign In.
var appleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://appleid.apple.com/auth/authorize",
	TokenURL:  "https://appleid.apple.com/auth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// NewAppleProvider creates an Apple Sign In OIDC provider for Apple authentication.
//
// Apple provider features:
//   - Full OIDC support with ID token verification
//   - Privacy-focused authentication with email relay option
//   - Standard scopes: openid, email, name
//   - The client secret is generated and signed here from the private key
//
// Setup instructions:
//  1. Enroll in the Apple Developer Program (developer.apple.com)
//  2. Create an App ID with "Sign in with Apple" capability enabled
//  3. Create a Services ID for your web application
//  4. Configure the return URLs (redirect URIs) for your service
//  5. Create a private key for Sign in with Apple
//
// Parameters are taken from cfg:
//   - ClientID: Services ID (not App ID) from Apple Developer
//   - ClientSecret: the .p8 private key (PEM) downloaded from Apple
//   - TeamID, KeyID: identify the team and the key that signs the client secret
//   - RedirectURI: Return URL registered in your Services ID configuration
//
// Important notes:
//   - User name is only provided during the initial authorization, not on subsequent logins
//   - Users can choose to hide their email, in which case Apple provides a relay email
//   - Requesting name or email forces response_mode=form_post, so the callback
//     arrives as a POST
func NewAppleProvider(ctx context.Context, cfg oauth.AppConfig, opts ...Option) (*BaseOIDCProvider, error) {
	if cfg.TeamID == "" || cfg.KeyID == "" {
		return nil, oauth.ErrParameterIncomplete.WithProvider(oauth.SourceApple)
	}

	o := newOptions(opts)
	secret, err := AppleClientSecret(cfg.TeamID, cfg.ClientID, cfg.KeyID, []byte(cfg.ClientSecret), o.now(), appleSecretTTL)
	if err != nil {
		return nil, err
	}

	signed := cfg
	signed.ClientSecret = secret

	scopes := []string{
		"openid",
		"email",
		"name",
	}

	provider, err := NewOIDCProvider(ctx, oauth.SourceApple, appleIssuerURL, signed, scopes, opts...)
	if err != nil {
		return nil, err
	}

	// Override with Apple's endpoint
	provider.oauth2Config.Endpoint = appleEndpoint
	provider.authParams = []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("response_mode", "form_post")}

	return provider, nil
}

// AppleClientSecret builds the ES256-signed JWT Apple expects as client_secret.
func AppleClientSecret(teamID, clientID, keyID string, privateKeyPEM []byte, now time.Time, ttl time.Duration) (string, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("failed to parse apple private key: %w", err)
	}
	if ttl <= 0 {
		return "", errors.New("client secret ttl must be positive")
	}

	claims := jwt.RegisteredClaims{
		Issuer:    teamID,
		Subject:   clientID,
		Audience:  jwt.ClaimStrings{appleIssuerURL},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = keyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign apple client secret: %w", err)
	}
	return signed, nil
}
