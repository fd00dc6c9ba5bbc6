package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]ClientOption{WithBaseURL(srv.URL + "/api/v4")}, opts...)
	c, err := NewClient("secret-token", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL().String())

	c, err = NewClient("", WithBaseURL("https://gitlab.example.com/api/v4"))
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.com/api/v4/", c.BaseURL().String())

	_, err = NewClient("", WithBaseURL("gitlab.example.com"))
	assert.Error(t, err)
}

func TestTokenType_Text(t *testing.T) {
	for _, want := range []TokenType{PrivateToken, OAuthToken, JobToken} {
		text, err := want.MarshalText()
		require.NoError(t, err)

		var got TokenType
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, want, got)
	}

	var tt TokenType = JobToken
	require.NoError(t, tt.UnmarshalText([]byte("")))
	assert.Equal(t, PrivateToken, tt)
	require.NoError(t, tt.UnmarshalText([]byte(" OAuth ")))
	assert.Equal(t, OAuthToken, tt)
	assert.Error(t, tt.UnmarshalText([]byte("deploy")))
	assert.Equal(t, "TokenType(7)", TokenType(7).String())
}

func TestNewRequest_AuthHeaders(t *testing.T) {
	tests := []struct {
		name      string
		tokenType TokenType
		header    string
		want      string
	}{
		{"private", PrivateToken, "PRIVATE-TOKEN", "tok"},
		{"oauth", OAuthToken, "Authorization", "Bearer tok"},
		{"job", JobToken, "JOB-TOKEN", "tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient("tok", WithTokenType(tt.tokenType), WithUserAgent("bus-test"))
			require.NoError(t, err)

			req, err := c.NewRequest(context.Background(), http.MethodGet, "user", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Header.Get(tt.header))
			assert.Equal(t, "bus-test", req.Header.Get("User-Agent"))
			assert.Equal(t, "application/json", req.Header.Get("Accept"))
			assert.NotEmpty(t, req.Header.Get("X-Request-Id"))
		})
	}
}

func TestNewRequest_NoTokenNoHeader(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "projects", nil)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("PRIVATE-TOKEN"))
}

func TestNewRequest_EscapedPath(t *testing.T) {
	c, err := NewClient("", WithBaseURL("https://gitlab.example.com/api/v4"))
	require.NoError(t, err)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "projects/"+PathEscape("group/sub group/project")+"/releases", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.com/api/v4/projects/group%2Fsub%20group%2Fproject/releases", req.URL.String())
}

func TestNewRequest_FormPlacement(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)
	form := NewForm().WithParam("name", "review").WithParam("per_page", 10)

	get, err := c.NewRequest(context.Background(), http.MethodGet, "environments", form)
	require.NoError(t, err)
	assert.Equal(t, "name=review&per_page=10", get.URL.RawQuery)
	assert.Nil(t, get.Body)

	post, err := c.NewRequest(context.Background(), http.MethodPost, "environments", form)
	require.NoError(t, err)
	assert.Empty(t, post.URL.RawQuery)
	assert.Equal(t, "application/x-www-form-urlencoded", post.Header.Get("Content-Type"))
	require.NoError(t, post.ParseForm())
	assert.Equal(t, "review", post.PostForm.Get("name"))
}

func TestNewRequest_MissingParam(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)

	_, err = c.NewRequest(context.Background(), http.MethodPost, "snippets", NewForm().WithRequiredParam("title", ""))
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestDo_ErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"message string", http.StatusNotFound, `{"message":"404 Project Not Found"}`, ErrNotFound, "404 Project Not Found"},
		{"message map", http.StatusBadRequest, `{"message":{"name":["has already been taken"],"base":["is invalid"]}}`, nil, "{base: is invalid}, {name: has already been taken}"},
		{"message list", http.StatusBadRequest, `{"message":["first","second"]}`, nil, "first, second"},
		{"oauth error", http.StatusUnauthorized, `{"error":"invalid_token","error_description":"Token was revoked"}`, ErrUnauthorized, "invalid_token: Token was revoked"},
		{"plain text", http.StatusForbidden, "nope", ErrForbidden, "nope"},
		{"empty body", http.StatusNotFound, "", ErrNotFound, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.Projects.GetProject(context.Background(), 42)
			require.Error(t, err)

			var errResp *ErrorResponse
			require.True(t, errors.As(err, &errResp))
			assert.Equal(t, tt.status, errResp.StatusCode())
			assert.Equal(t, tt.message, errResp.Message)
			assert.Equal(t, fmt.Sprintf("GET /api/v4/projects/42: %d %s", tt.status, tt.message), err.Error())
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			} else {
				assert.NotErrorIs(t, err, ErrNotFound)
			}
		})
	}
}

func TestDo_Pagination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Total", "45")
		w.Header().Set("X-Total-Pages", "3")
		w.Header().Set("X-Per-Page", "20")
		w.Header().Set("X-Page", "2")
		w.Header().Set("X-Next-Page", "3")
		w.Header().Set("X-Prev-Page", "1")
		fmt.Fprint(w, `[]`)
	})

	_, resp, err := c.Releases.ListReleases(context.Background(), 1, &ListOptions{Page: 2, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 45, resp.TotalItems)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 20, resp.ItemsPerPage)
	assert.Equal(t, 2, resp.CurrentPage)
	assert.Equal(t, 3, resp.NextPage)
	assert.Equal(t, 1, resp.PreviousPage)
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"id":1,"username":"root"}`)
	}, WithRetry(2, time.Millisecond))

	u, _, err := c.Users.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "root", u.Username)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDo_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, err := c.Users.CurrentUser(context.Background())
	var errResp *ErrorResponse
	require.True(t, errors.As(err, &errResp))
	assert.Equal(t, http.StatusBadGateway, errResp.StatusCode())
	assert.EqualValues(t, 1, calls.Load())
}

func TestDo_RateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{}`)
	}, WithRateLimit(rate.Every(time.Hour), 1))

	_, _, err := c.Users.CurrentUser(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err = c.Users.CurrentUser(ctx)
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPathArg(t *testing.T) {
	tests := []struct {
		in      any
		want    string
		wantErr bool
	}{
		{in: 7, want: "7"},
		{in: int64(8), want: "8"},
		{in: "group/project", want: "group%2Fproject"},
		{in: &Project{ID: 9}, want: "9"},
		{in: &User{BasicUser: BasicUser{ID: 10}}, want: "10"},
		{in: "", wantErr: true},
		{in: (*Project)(nil), wantErr: true},
		{in: 1.5, wantErr: true},
	}
	for _, tt := range tests {
		got, err := pathArg(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestGetUserByUsername(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") == "root" {
			fmt.Fprint(w, `[{"id":1,"username":"root","email":"root@example.com"}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	})

	u, _, err := c.Users.GetUserByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "root@example.com", u.Email)

	_, _, err = c.Users.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
