// Package middleware provides net/http handlers for social login and for
// guarding routes. It works with any router that accepts an http.Handler.
package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey ContextKey = "user_id"

	// LoginKey is the context key for storing the *Login of the current session.
	LoginKey ContextKey = "login"
)

var (
	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when a credential is present but wrong.
	ErrForbidden = errors.New("forbidden")
)

// ErrorHandler is a function that handles authentication errors.
// The default behavior is to write a 401 or 403 status code.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler is the default error handler.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrForbidden) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// TokenExtractor extracts a credential from HTTP requests.
type TokenExtractor interface {
	Extract(r *http.Request) (string, error)
}

// HeaderExtractor extracts tokens from a request header, optionally prefixed
// by a scheme such as "Bearer".
type HeaderExtractor struct {
	HeaderName string // e.g., "Authorization"
	Scheme     string // e.g., "Bearer"
}

// Extract extracts a token from the configured header.
func (e *HeaderExtractor) Extract(r *http.Request) (string, error) {
	authHeader := r.Header.Get(e.HeaderName)
	if authHeader == "" {
		return "", ErrUnauthorized
	}

	if e.Scheme != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], e.Scheme) {
			return "", ErrUnauthorized
		}
		return parts[1], nil
	}

	return authHeader, nil
}

// MultiExtractor tries multiple extractors in order.
type MultiExtractor struct {
	Extractors []TokenExtractor
}

// Extract tries each extractor until one succeeds.
func (e *MultiExtractor) Extract(r *http.Request) (string, error) {
	for _, extractor := range e.Extractors {
		token, err := extractor.Extract(r)
		if err == nil {
			return token, nil
		}
	}
	return "", ErrUnauthorized
}

// APITokenExtractor reads a bearer token, falling back to the X-API-Token header.
func APITokenExtractor() TokenExtractor {
	return &MultiExtractor{
		Extractors: []TokenExtractor{
			&HeaderExtractor{HeaderName: "Authorization", Scheme: "Bearer"},
			&HeaderExtractor{HeaderName: "X-API-Token"},
		},
	}
}

// RequireToken rejects requests whose extracted token does not equal secret.
// A missing token is unauthorized, a wrong one forbidden. A nil extractor
// uses APITokenExtractor.
func RequireToken(secret string, extractor TokenExtractor, errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if extractor == nil {
		extractor = APITokenExtractor()
	}
	if errorHandler == nil {
		errorHandler = DefaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractor.Extract(r)
			if err != nil {
				errorHandler(w, r, ErrUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				errorHandler(w, r, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID retrieves the user ID from the request context.
func GetUserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(UserIDKey).(string)
	return userID, ok
}

// WithUserID adds a user ID to the request context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
