package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeaderExtractor(t *testing.T) {
	// Test with Bearer scheme
	extractor := &HeaderExtractor{
		HeaderName: "Authorization",
		Scheme:     "Bearer",
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer test-token-123")

	token, err := extractor.Extract(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "test-token-123" {
		t.Errorf("Expected token 'test-token-123', got %s", token)
	}

	// Test missing header
	reqNoHeader := httptest.NewRequest("GET", "/", nil)
	_, err = extractor.Extract(reqNoHeader)
	if err != ErrUnauthorized {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}

	// Test wrong scheme
	reqWrongScheme := httptest.NewRequest("GET", "/", nil)
	reqWrongScheme.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err = extractor.Extract(reqWrongScheme)
	if err != ErrUnauthorized {
		t.Fatalf("Expected ErrUnauthorized for wrong scheme, got %v", err)
	}

	// Test malformed header (no space)
	reqMalformed := httptest.NewRequest("GET", "/", nil)
	reqMalformed.Header.Set("Authorization", "Bearertoken")
	_, err = extractor.Extract(reqMalformed)
	if err != ErrUnauthorized {
		t.Fatalf("Expected ErrUnauthorized for malformed header, got %v", err)
	}

	// Test case-insensitive scheme matching
	reqLowerCase := httptest.NewRequest("GET", "/", nil)
	reqLowerCase.Header.Set("Authorization", "bearer test-token-123")
	token, err = extractor.Extract(reqLowerCase)
	if err != nil {
		t.Fatalf("Expected no error for lowercase scheme, got %v", err)
	}
	if token != "test-token-123" {
		t.Errorf("Expected token 'test-token-123', got %s", token)
	}

	// Test without scheme
	extractorNoScheme := &HeaderExtractor{
		HeaderName: "X-API-Key",
		Scheme:     "",
	}

	reqNoScheme := httptest.NewRequest("GET", "/", nil)
	reqNoScheme.Header.Set("X-API-Key", "api-key-value")
	token, err = extractorNoScheme.Extract(reqNoScheme)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "api-key-value" {
		t.Errorf("Expected token 'api-key-value', got %s", token)
	}
}

func TestAPITokenExtractor(t *testing.T) {
	extractor := APITokenExtractor()

	// Test extraction from bearer token (first extractor)
	reqBearer := httptest.NewRequest("GET", "/", nil)
	reqBearer.Header.Set("Authorization", "Bearer header-token")

	token, err := extractor.Extract(reqBearer)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "header-token" {
		t.Errorf("Expected token 'header-token', got %s", token)
	}

	// Test fallback to X-API-Token
	reqAPI := httptest.NewRequest("GET", "/", nil)
	reqAPI.Header.Set("X-API-Token", "api-token")

	token, err = extractor.Extract(reqAPI)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "api-token" {
		t.Errorf("Expected token 'api-token', got %s", token)
	}

	// Test with both present (should use first one)
	reqBoth := httptest.NewRequest("GET", "/", nil)
	reqBoth.Header.Set("Authorization", "Bearer header-token")
	reqBoth.Header.Set("X-API-Token", "api-token")

	token, err = extractor.Extract(reqBoth)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "header-token" {
		t.Errorf("Expected first extractor's token 'header-token', got %s", token)
	}

	// Test with neither present
	reqNeither := httptest.NewRequest("GET", "/", nil)
	_, err = extractor.Extract(reqNeither)
	if err != ErrUnauthorized {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestRequireToken(t *testing.T) {
	handler := RequireToken("s3cret", nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid token", "s3cret", http.StatusAccepted},
		{"wrong token", "guess", http.StatusForbidden},
		{"missing token", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/providers", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rw := httptest.NewRecorder()
			handler.ServeHTTP(rw, req)
			if rw.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rw.Code)
			}
		})
	}
}

func TestRequireToken_CustomExtractor(t *testing.T) {
	extractor := &HeaderExtractor{HeaderName: "X-Admin-Key"}
	handler := RequireToken("s3cret", extractor, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Admin-Key", "s3cret")
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rw.Code)
	}
}

func TestDefaultErrorHandler(t *testing.T) {
	// Test unauthorized error
	rw := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)

	DefaultErrorHandler(rw, req, ErrUnauthorized)

	if rw.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), "Unauthorized") {
		t.Errorf("Expected body to contain 'Unauthorized', got %s", rw.Body.String())
	}

	// Test forbidden error
	rwForbidden := httptest.NewRecorder()
	DefaultErrorHandler(rwForbidden, req, ErrForbidden)

	if rwForbidden.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", rwForbidden.Code)
	}
	if !strings.Contains(rwForbidden.Body.String(), "Forbidden") {
		t.Errorf("Expected body to contain 'Forbidden', got %s", rwForbidden.Body.String())
	}
}

func TestGetUserID(t *testing.T) {
	// Test with user ID in context
	req := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(req.Context(), UserIDKey, "user123")
	req = req.WithContext(ctx)

	userID, ok := GetUserID(req)
	if !ok {
		t.Fatal("Expected user ID to be found")
	}
	if userID != "user123" {
		t.Errorf("Expected user ID 'user123', got %s", userID)
	}

	// Test without user ID
	reqNoUser := httptest.NewRequest("GET", "/", nil)
	_, ok = GetUserID(reqNoUser)
	if ok {
		t.Error("Expected user ID to not be found")
	}
}

func TestWithUserID(t *testing.T) {
	ctx := context.Background()
	newCtx := WithUserID(ctx, "user456")

	userID, ok := newCtx.Value(UserIDKey).(string)
	if !ok {
		t.Fatal("Expected user ID to be in context")
	}
	if userID != "user456" {
		t.Errorf("Expected user ID 'user456', got %s", userID)
	}
}

