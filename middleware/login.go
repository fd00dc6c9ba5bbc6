package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/meysam81/go-bus/auth/oauth"
	"github.com/meysam81/go-bus/storage"
)

// DefaultSessionName is the cookie name used when LoginConfig.SessionName is empty.
const DefaultSessionName = "bus_session"

const (
	sessionUUID     = "uuid"
	sessionProvider = "provider"
	sessionUsername = "username"
	sessionEmail    = "email"
	sessionAvatar   = "avatar"
)

// LoginFlow is the part of the login client the handler drives. Both
// *oauth.Client and *audit.ClientWrapper implement it.
type LoginFlow interface {
	Authorize(ctx context.Context, provider string, opts oauth.AuthorizeOptions) (string, error)
	Login(ctx context.Context, provider string, cb *oauth.Callback) (*oauth.LoginResult, error)
	Logout(ctx context.Context, provider, uuid string) error
}

// Login is the identity kept in the session cookie after a successful login.
type Login struct {
	Provider string `json:"provider"`
	UUID     string `json:"uuid"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// LoginConfig configures the login handler.
type LoginConfig struct {
	Flow         LoginFlow
	Store        sessions.Store
	SessionName  string       // Optional: defaults to DefaultSessionName
	ErrorHandler ErrorHandler // Optional: used by RequireLogin, defaults to DefaultErrorHandler

	// AllowedRedirectHosts lists the hosts an absolute post-login redirect
	// may point at. Without it only same-site paths such as /home are kept.
	AllowedRedirectHosts []string
}

// LoginHandler serves the authorize, callback and logout endpoints of every
// provider known to the flow and keeps the logged-in identity in a session.
type LoginHandler struct {
	flow         LoginFlow
	store        sessions.Store
	name         string
	errorHandler ErrorHandler
	allowedHosts map[string]bool
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(cfg LoginConfig) (*LoginHandler, error) {
	if cfg.Flow == nil {
		return nil, errors.New("login flow is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}

	name := cfg.SessionName
	if name == "" {
		name = DefaultSessionName
	}
	errorHandler := cfg.ErrorHandler
	if errorHandler == nil {
		errorHandler = DefaultErrorHandler
	}

	allowed := make(map[string]bool, len(cfg.AllowedRedirectHosts))
	for _, host := range cfg.AllowedRedirectHosts {
		allowed[strings.ToLower(host)] = true
	}

	return &LoginHandler{
		flow:         cfg.Flow,
		store:        cfg.Store,
		name:         name,
		errorHandler: errorHandler,
		allowedHosts: allowed,
	}, nil
}

// Routes returns a handler serving
//
//	GET  /{provider}/authorize
//	GET  /{provider}/callback
//	POST /{provider}/logout
//	GET  /me
func (h *LoginHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{provider}/authorize", h.authorize)
	mux.HandleFunc("GET /{provider}/callback", h.callback)
	mux.HandleFunc("POST /{provider}/logout", h.logout)
	mux.Handle("GET /me", h.RequireLogin(http.HandlerFunc(h.me)))
	return mux
}

func (h *LoginHandler) authorize(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	target, err := h.flow.Authorize(r.Context(), provider, oauth.AuthorizeOptions{
		RedirectURL: h.safeRedirect(r.URL.Query().Get("redirect")),
	})
	if err != nil {
		writeMessage(w, nil, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *LoginHandler) callback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	q := r.URL.Query()
	cb := &oauth.Callback{
		Code:              q.Get("code"),
		AuthCode:          q.Get("auth_code"),
		AuthorizationCode: q.Get("authorization_code"),
		State:             q.Get("state"),
	}

	result, err := h.flow.Login(r.Context(), provider, cb)
	if err != nil {
		writeMessage(w, nil, err)
		return
	}

	sess, _ := h.store.Get(r, h.name)
	user := result.User
	sess.Values[sessionProvider] = provider
	sess.Values[sessionUUID] = user.UUID
	sess.Values[sessionUsername] = user.Username
	sess.Values[sessionEmail] = user.Email
	sess.Values[sessionAvatar] = user.Avatar
	if err := sess.Save(r, w); err != nil {
		writeMessage(w, nil, err)
		return
	}

	if target := h.safeRedirect(result.RedirectURL); target != "" {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	// Tokens stay server side.
	public := *user
	public.Token = nil
	public.Raw = nil
	writeMessage(w, &public, nil)
}

// safeRedirect returns target when it stays on this site or points at an
// allowed host, and "" otherwise.
func (h *LoginHandler) safeRedirect(target string) string {
	if target == "" || strings.ContainsAny(target, "\\\r\n\t") {
		return ""
	}
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	if u.Scheme == "" && u.Host == "" {
		if strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(target, "//") {
			return target
		}
		return ""
	}
	if (u.Scheme == "http" || u.Scheme == "https") && h.allowedHosts[strings.ToLower(u.Hostname())] {
		return target
	}
	return ""
}

func (h *LoginHandler) logout(w http.ResponseWriter, r *http.Request) {
	login, ok := h.sessionLogin(r)
	if !ok {
		h.errorHandler(w, r, ErrUnauthorized)
		return
	}
	if provider := r.PathValue("provider"); provider != login.Provider {
		h.errorHandler(w, r, ErrForbidden)
		return
	}

	err := h.flow.Logout(r.Context(), login.Provider, login.UUID)

	sess, _ := h.store.Get(r, h.name)
	sess.Values = make(map[any]any)
	sess.Options.MaxAge = -1
	if saveErr := sess.Save(r, w); saveErr != nil && err == nil {
		err = saveErr
	}

	// A login without a stored token still ends the session.
	if err != nil && !isMissingToken(err) {
		writeMessage(w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LoginHandler) me(w http.ResponseWriter, r *http.Request) {
	login, _ := GetLogin(r)
	writeJSON(w, http.StatusOK, login)
}

// RequireLogin rejects requests without a logged-in session. On success the
// *Login and the user ID are added to the request context.
func (h *LoginHandler) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		login, ok := h.sessionLogin(r)
		if !ok {
			h.errorHandler(w, r, ErrUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), LoginKey, login)
		ctx = WithUserID(ctx, login.UUID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *LoginHandler) sessionLogin(r *http.Request) (*Login, bool) {
	sess, err := h.store.Get(r, h.name)
	if err != nil || sess.IsNew {
		return nil, false
	}
	uuid, _ := sess.Values[sessionUUID].(string)
	provider, _ := sess.Values[sessionProvider].(string)
	if uuid == "" || provider == "" {
		return nil, false
	}
	login := &Login{Provider: provider, UUID: uuid}
	login.Username, _ = sess.Values[sessionUsername].(string)
	login.Email, _ = sess.Values[sessionEmail].(string)
	login.Avatar, _ = sess.Values[sessionAvatar].(string)
	return login, true
}

// GetLogin retrieves the session identity set by RequireLogin.
func GetLogin(r *http.Request) (*Login, bool) {
	login, ok := r.Context().Value(LoginKey).(*Login)
	return login, ok
}

func isMissingToken(err error) bool {
	return errors.Is(err, oauth.ErrNoTokenStore) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrExpired)
}

// writeMessage writes the login outcome as an oauth.Message.
func writeMessage(w http.ResponseWriter, user *oauth.Property, err error) {
	msg := oauth.NewMessage(user, err)
	writeJSON(w, statusFor(msg.ErrCode), msg)
}

func statusFor(code string) int {
	switch code {
	case oauth.CodeSuccess:
		return http.StatusOK
	case oauth.CodeProviderNotFound:
		return http.StatusNotFound
	case oauth.CodeIllegalCode, oauth.CodeIllegalState, oauth.CodeIllegalRedirectURI:
		return http.StatusBadRequest
	case oauth.CodeUnsupported:
		return http.StatusNotImplemented
	case oauth.CodeFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
