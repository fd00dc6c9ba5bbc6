package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/meysam81/go-bus/auth/oauth"
	"github.com/meysam81/go-bus/storage"
)

type fakeFlow struct {
	authorizeOpts oauth.AuthorizeOptions
	loginErr      error
	redirectURL   string
	logoutErr     error
	loggedOut     []string
}

func (f *fakeFlow) Authorize(ctx context.Context, provider string, opts oauth.AuthorizeOptions) (string, error) {
	if provider != "github" {
		return "", oauth.ErrProviderNotFound.WithProvider(provider)
	}
	f.authorizeOpts = opts
	return "https://github.com/login/oauth/authorize?state=abc", nil
}

func (f *fakeFlow) Login(ctx context.Context, provider string, cb *oauth.Callback) (*oauth.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if cb.GetCode() == "" {
		return nil, oauth.ErrIllegalCode.WithProvider(provider)
	}
	return &oauth.LoginResult{
		User: &oauth.Property{
			UUID:     "583231",
			Username: "octocat",
			Email:    "octocat@github.com",
			Source:   provider,
			Token:    &oauth.AccToken{AccessToken: "gho_secret"},
		},
		RedirectURL: f.redirectURL,
	}, nil
}

func (f *fakeFlow) Logout(ctx context.Context, provider, uuid string) error {
	f.loggedOut = append(f.loggedOut, provider+":"+uuid)
	return f.logoutErr
}

func newTestLoginHandler(t *testing.T, flow *fakeFlow) http.Handler {
	t.Helper()
	h, err := NewLoginHandler(LoginConfig{
		Flow:  flow,
		Store: sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef")),
	})
	if err != nil {
		t.Fatalf("Failed to create login handler: %v", err)
	}
	return h.Routes()
}

// login runs a callback and returns the session cookie it set.
func login(t *testing.T, handler http.Handler) *http.Cookie {
	t.Helper()
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("GET", "/github/callback?code=c0de&state=abc", nil))
	if rw.Code != http.StatusOK && rw.Code != http.StatusFound {
		t.Fatalf("Callback returned status %d: %s", rw.Code, rw.Body.String())
	}
	for _, c := range rw.Result().Cookies() {
		if c.Name == DefaultSessionName {
			return c
		}
	}
	t.Fatal("Callback did not set a session cookie")
	return nil
}

func TestNewLoginHandler_Validation(t *testing.T) {
	if _, err := NewLoginHandler(LoginConfig{Store: sessions.NewCookieStore([]byte("k"))}); err == nil {
		t.Error("Expected error without flow")
	}
	if _, err := NewLoginHandler(LoginConfig{Flow: &fakeFlow{}}); err == nil {
		t.Error("Expected error without session store")
	}
}

func TestLoginHandler_Authorize(t *testing.T) {
	flow := &fakeFlow{}
	handler := newTestLoginHandler(t, flow)

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("GET", "/github/authorize?redirect=/home", nil))

	if rw.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", rw.Code)
	}
	if loc := rw.Header().Get("Location"); loc != "https://github.com/login/oauth/authorize?state=abc" {
		t.Errorf("Unexpected Location %q", loc)
	}
	if flow.authorizeOpts.RedirectURL != "/home" {
		t.Errorf("Expected redirect /home to be kept, got %q", flow.authorizeOpts.RedirectURL)
	}
}

func TestLoginHandler_AuthorizeUnknownProvider(t *testing.T) {
	handler := newTestLoginHandler(t, &fakeFlow{})

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("GET", "/myspace/authorize", nil))

	if rw.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rw.Code)
	}
	var msg oauth.Message
	if err := json.NewDecoder(rw.Body).Decode(&msg); err != nil {
		t.Fatalf("Failed to decode message: %v", err)
	}
	if msg.ErrCode != oauth.CodeProviderNotFound {
		t.Errorf("Expected errcode %q, got %q", oauth.CodeProviderNotFound, msg.ErrCode)
	}
}

func TestLoginHandler_CallbackWritesMessage(t *testing.T) {
	handler := newTestLoginHandler(t, &fakeFlow{})

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("GET", "/github/callback?code=c0de&state=abc", nil))

	if rw.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rw.Code)
	}
	var msg oauth.Message
	if err := json.NewDecoder(rw.Body).Decode(&msg); err != nil {
		t.Fatalf("Failed to decode message: %v", err)
	}
	if !msg.Success() {
		t.Fatalf("Expected success, got %+v", msg)
	}
	if msg.Data.UUID != "583231" {
		t.Errorf("Expected uuid 583231, got %q", msg.Data.UUID)
	}
	if msg.Data.Token != nil {
		t.Error("Expected token to be withheld from the response")
	}
}

func TestLoginHandler_CallbackRedirects(t *testing.T) {
	handler := newTestLoginHandler(t, &fakeFlow{redirectURL: "/dashboard"})

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("GET", "/github/callback?code=c0de&state=abc", nil))

	if rw.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", rw.Code)
	}
	if loc := rw.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Expected Location /dashboard, got %q", loc)
	}
}

// stubProvider issues a fixed token and profile for any code.
type stubProvider struct{}

func (stubProvider) Name() string { return "github" }

func (stubProvider) Authorize(req oauth.AuthorizeRequest) string {
	return "https://github.com/login/oauth/authorize?state=" + url.QueryEscape(req.State)
}

func (stubProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	return &oauth.AccToken{AccessToken: "gho_" + cb.GetCode()}, nil
}

func (stubProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	return &oauth.Property{UUID: "583231", Username: "octocat"}, nil
}

func TestLoginHandler_ExternalRedirectIsDropped(t *testing.T) {
	tests := []struct {
		name     string
		redirect string
		allowed  []string
		want     string
	}{
		{"absolute url", "https://evil.example.net/phish", nil, ""},
		{"scheme relative", "//evil.example.net/phish", nil, ""},
		{"backslash", "/\\evil.example.net/phish", nil, ""},
		{"javascript", "javascript:alert(1)", nil, ""},
		{"relative path", "/dashboard?tab=repos", nil, "/dashboard?tab=repos"},
		{"allowed host", "https://app.example.com/home", []string{"app.example.com"}, "https://app.example.com/home"},
		{"other host with allow-list", "https://evil.example.net/phish", []string{"app.example.com"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := oauth.NewClient(oauth.Config{
				Providers:  []oauth.Provider{stubProvider{}},
				StateStore: storage.NewInMemoryStateStore(),
			})
			if err != nil {
				t.Fatalf("Failed to create client: %v", err)
			}
			h, err := NewLoginHandler(LoginConfig{
				Flow:                 client,
				Store:                sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef")),
				AllowedRedirectHosts: tt.allowed,
			})
			if err != nil {
				t.Fatalf("Failed to create login handler: %v", err)
			}
			handler := h.Routes()

			rw := httptest.NewRecorder()
			handler.ServeHTTP(rw, httptest.NewRequest("GET", "/github/authorize?redirect="+url.QueryEscape(tt.redirect), nil))
			if rw.Code != http.StatusFound {
				t.Fatalf("Expected status 302, got %d", rw.Code)
			}
			loc, err := url.Parse(rw.Header().Get("Location"))
			if err != nil {
				t.Fatalf("Failed to parse Location: %v", err)
			}
			state := loc.Query().Get("state")
			if state == "" {
				t.Fatal("Expected a state in the authorization URL")
			}

			rw = httptest.NewRecorder()
			handler.ServeHTTP(rw, httptest.NewRequest("GET", "/github/callback?code=c0de&state="+url.QueryEscape(state), nil))

			if tt.want == "" {
				if rw.Code != http.StatusOK {
					t.Fatalf("Expected status 200, got %d", rw.Code)
				}
				if got := rw.Header().Get("Location"); got != "" {
					t.Errorf("Expected no Location, got %q", got)
				}
				return
			}
			if rw.Code != http.StatusFound {
				t.Fatalf("Expected status 302, got %d", rw.Code)
			}
			if got := rw.Header().Get("Location"); got != tt.want {
				t.Errorf("Expected Location %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoginHandler_CallbackDropsExternalRedirectFromFlow(t *testing.T) {
	handler := newTestLoginHandler(t, &fakeFlow{redirectURL: "https://evil.example.net/phish"})

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("GET", "/github/callback?code=c0de&state=abc", nil))

	if rw.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rw.Code)
	}
	if got := rw.Header().Get("Location"); got != "" {
		t.Errorf("Expected no Location, got %q", got)
	}
}

func TestLoginHandler_CallbackErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		errcode string
	}{
		{"illegal state", oauth.ErrIllegalState.WithProvider("github"), http.StatusBadRequest, oauth.CodeIllegalState},
		{"provider error", oauth.NewError("github", "bad_verification_code", "expired"), http.StatusBadGateway, "bad_verification_code"},
		{"internal error", errors.New("redis down"), http.StatusInternalServerError, oauth.CodeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestLoginHandler(t, &fakeFlow{loginErr: tt.err})

			rw := httptest.NewRecorder()
			handler.ServeHTTP(rw, httptest.NewRequest("GET", "/github/callback?code=c0de&state=abc", nil))

			if rw.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rw.Code)
			}
			var msg oauth.Message
			if err := json.NewDecoder(rw.Body).Decode(&msg); err != nil {
				t.Fatalf("Failed to decode message: %v", err)
			}
			if msg.ErrCode != tt.errcode {
				t.Errorf("Expected errcode %q, got %q", tt.errcode, msg.ErrCode)
			}
		})
	}
}

func TestLoginHandler_Me(t *testing.T) {
	handler := newTestLoginHandler(t, &fakeFlow{})
	cookie := login(t, handler)

	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(cookie)
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rw.Code)
	}
	var got Login
	if err := json.NewDecoder(rw.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode login: %v", err)
	}
	if got.Provider != "github" || got.UUID != "583231" || got.Username != "octocat" {
		t.Errorf("Unexpected login %+v", got)
	}

	// Without the cookie
	rw = httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("GET", "/me", nil))
	if rw.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rw.Code)
	}
}

func TestLoginHandler_Logout(t *testing.T) {
	flow := &fakeFlow{}
	handler := newTestLoginHandler(t, flow)
	cookie := login(t, handler)

	// Wrong provider
	req := httptest.NewRequest("POST", "/gitee/logout", nil)
	req.AddCookie(cookie)
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", rw.Code)
	}

	req = httptest.NewRequest("POST", "/github/logout", nil)
	req.AddCookie(cookie)
	rw = httptest.NewRecorder()
	handler.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rw.Code)
	}
	if len(flow.loggedOut) != 1 || flow.loggedOut[0] != "github:583231" {
		t.Errorf("Unexpected logout calls: %v", flow.loggedOut)
	}

	var cleared bool
	for _, c := range rw.Result().Cookies() {
		if c.Name == DefaultSessionName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("Expected session cookie to be cleared")
	}
}

func TestLoginHandler_LogoutWithoutStoredToken(t *testing.T) {
	flow := &fakeFlow{logoutErr: oauth.ErrNoTokenStore}
	handler := newTestLoginHandler(t, flow)
	cookie := login(t, handler)

	req := httptest.NewRequest("POST", "/github/logout", nil)
	req.AddCookie(cookie)
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rw.Code)
	}
}

func TestLoginHandler_LogoutRequiresSession(t *testing.T) {
	handler := newTestLoginHandler(t, &fakeFlow{})

	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, httptest.NewRequest("POST", "/github/logout", nil))
	if rw.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rw.Code)
	}
}

func TestGetLogin(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if _, ok := GetLogin(req); ok {
		t.Error("Expected no login in a bare request")
	}

	want := &Login{Provider: "github", UUID: "1"}
	req = req.WithContext(context.WithValue(req.Context(), LoginKey, want))
	got, ok := GetLogin(req)
	if !ok || got != want {
		t.Errorf("GetLogin() = %v, %v", got, ok)
	}
}
