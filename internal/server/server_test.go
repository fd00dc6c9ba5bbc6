package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/meysam81/go-bus/audit"
	"github.com/meysam81/go-bus/auth/oauth"
	"github.com/meysam81/go-bus/gitlab"
	"github.com/meysam81/go-bus/imaging/jpeg"
	"github.com/meysam81/go-bus/internal/config"
	"github.com/meysam81/go-bus/secret"
	"github.com/meysam81/go-bus/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiToken = "test-api-token"

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Authorize(req oauth.AuthorizeRequest) string {
	return "https://idp.example.com/authorize?" + url.Values{"state": {req.State}}.Encode()
}

func (stubProvider) GetAccessToken(ctx context.Context, cb *oauth.Callback) (*oauth.AccToken, error) {
	return &oauth.AccToken{AccessToken: "AT"}, nil
}

func (stubProvider) GetUserInfo(ctx context.Context, token *oauth.AccToken) (*oauth.Property, error) {
	return &oauth.Property{UUID: "7", Username: "stub-user"}, nil
}

func newLoginFlow(t *testing.T) *audit.ClientWrapper {
	t.Helper()
	client, err := oauth.NewClient(oauth.Config{
		Providers:  []oauth.Provider{stubProvider{}},
		StateStore: storage.NewInMemoryStateStore(),
		TokenStore: storage.NewInMemoryTokenStore(),
	})
	require.NoError(t, err)
	return audit.NewClientWrapper(client, audit.Discard(), nil)
}

func newTestServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	cfg := config.ServerConfig{
		Host:     "127.0.0.1",
		Port:     0,
		APIToken: secret.New(apiToken),
	}
	srv, err := New(cfg, deps)
	require.NoError(t, err)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target string, body []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearer() http.Header {
	return http.Header{"Authorization": {"Bearer " + apiToken}}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, Deps{})
	rec := do(t, h, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_RequiresToken(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := do(t, h, http.MethodPost, "/api/v1/jpeg/inspect", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/jpeg/inspect", nil, http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_DisabledWithoutToken(t *testing.T) {
	srv, err := New(config.ServerConfig{}, Deps{})
	require.NoError(t, err)
	rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/jpeg/inspect", nil, bearer())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_LoginNeedsSessions(t *testing.T) {
	_, err := New(config.ServerConfig{}, Deps{Login: newLoginFlow(t)})
	assert.Error(t, err)
}

func TestLoginRoundTrip(t *testing.T) {
	h := newTestServer(t, Deps{
		Login:    newLoginFlow(t),
		Sessions: sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef")),
	})

	rec := do(t, h, http.MethodGet, "/auth/stub/authorize", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	rec = do(t, h, http.MethodGet, "/auth/stub/callback?code=c&state="+url.QueryEscape(state), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msg oauth.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, oauth.CodeSuccess, msg.ErrCode)
	require.NotNil(t, msg.Data)
	assert.Equal(t, "stub-user", msg.Data.Username)
	cookie := rec.Header().Get("Set-Cookie")
	require.NotEmpty(t, cookie)

	rec = do(t, h, http.MethodGet, "/auth/me", nil, http.Header{"Cookie": {strings.Split(cookie, ";")[0]}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"uuid":"7"`)

	rec = do(t, h, http.MethodGet, "/api/v1/providers", nil, bearer())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"providers":["stub"]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/v1/tokens/stub/7/refresh", nil, bearer())
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/v1/tokens/stub/7", nil, bearer())
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/v1/tokens/stub/7", nil, bearer())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGitLabProxy(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/api/v4/projects/group%2Fproject/releases":
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			w.Header().Set("X-Total", "5")
			w.Header().Set("X-Next-Page", "3")
			_, _ = w.Write([]byte(`[{"tag_name":"v1.0.0","name":"One"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"404 Project Not Found"}`))
		}
	}))
	t.Cleanup(backend.Close)

	client, err := gitlab.NewClient("tok", gitlab.WithBaseURL(backend.URL+"/api/v4"))
	require.NoError(t, err)
	h := newTestServer(t, Deps{GitLab: client})

	rec := do(t, h, http.MethodGet, "/api/v1/gitlab/projects/group%2Fproject/releases?page=2", nil, bearer())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-Total"))
	assert.Equal(t, "3", rec.Header().Get("X-Next-Page"))
	assert.Contains(t, rec.Body.String(), `"tag_name":"v1.0.0"`)

	rec = do(t, h, http.MethodGet, "/api/v1/gitlab/projects/missing/environments", nil, bearer())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/gitlab/projects/group%2Fproject/releases?per_page=x", nil, bearer())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func jpegLS16() []byte {
	return []byte{
		0xFF, 0xD8,
		0xFF, 0xF7, 0x00, 0x0B, 16, 0, 4, 0, 4, 1, 1, 0x11, 0,
		0xFF, 0xDA, 0x00, 0x08, 1, 1, 0x00, 0, 0, 0,
		0x12, 0x34,
		0xFF, 0xD9,
	}
}

func TestJPEGEndpoints(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := do(t, h, http.MethodPost, "/api/v1/jpeg/inspect", jpegLS16(), bearer())
	require.Equal(t, http.StatusOK, rec.Code)
	var info jpeg.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, jpeg.UIDJPEGLSLossless, info.TransferSyntaxUID)

	rec = do(t, h, http.MethodPost, "/api/v1/jpeg/inspect", []byte("not a jpeg"), bearer())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/jpeg/patch?mode=jai2iso", jpegLS16(), bearer())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MAXVAL=65535 T1=258 T2=1027 T3=4356 RESET=64", rec.Header().Get("X-Coding-Param"))
	assert.Len(t, rec.Body.Bytes(), len(jpegLS16())+15)

	rec = do(t, h, http.MethodPost, "/api/v1/jpeg/patch?mode=bogus", jpegLS16(), bearer())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type countingListener struct {
	gitlab.NopListener
	pushes int
}

func (l *countingListener) OnPush(context.Context, *gitlab.PushEvent) error {
	l.pushes++
	return nil
}

func TestGitLabHook(t *testing.T) {
	hooks := gitlab.NewWebHookManager("hook-secret", nil)
	counter := &countingListener{}
	hooks.AddListener(counter)
	hooks.AddListener(NewLogListener(nil))
	h := newTestServer(t, Deps{Hooks: hooks})

	body := []byte(`{"object_kind":"push","ref":"refs/heads/main","project":{"path_with_namespace":"group/project"}}`)
	rec := do(t, h, http.MethodPost, "/hooks/gitlab", body, http.Header{
		"X-Gitlab-Event": {gitlab.PushHookEvent},
		"X-Gitlab-Token": {"hook-secret"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, counter.pushes)

	rec = do(t, h, http.MethodPost, "/hooks/gitlab", body, http.Header{
		"X-Gitlab-Event": {gitlab.PushHookEvent},
		"X-Gitlab-Token": {"wrong"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, counter.pushes)
}

func TestOAuthStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing token", storage.ErrNotFound, http.StatusNotFound},
		{"expired token", fmt.Errorf("load: %w", storage.ErrExpired), http.StatusNotFound},
		{"unknown provider", oauth.ErrProviderNotFound.WithProvider("myspace"), http.StatusNotFound},
		{"unsupported", oauth.ErrUnsupported.WithProvider("github"), http.StatusNotImplemented},
		{"illegal token", oauth.ErrIllegalToken.WithProvider("gitee"), http.StatusUnauthorized},
		{"no token store", fmt.Errorf("refresh: %w", oauth.ErrNoTokenStore), http.StatusInternalServerError},
		{"provider failure", oauth.NewError("github", "bad_refresh_token", "revoked"), http.StatusBadGateway},
		{"transport", errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, oauthStatus(tt.err))
		})
	}
}
