// Package gitlab is a client for the GitLab REST API v4.
//
// Each service wraps one group of resources (environments, events, releases,
// snippets, application settings, ...) and issues one request per method
// against a fixed URL template. List methods accept a page and per-page size;
// Pager methods walk every page.
//
//	client, err := gitlab.NewClient(token, gitlab.WithBaseURL("https://gitlab.example.com/api/v4"))
//	events, _, err := client.Events.ListProjectEvents(ctx, "group/project", nil, nil)
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the API root of gitlab.com.
	DefaultBaseURL = "https://gitlab.com/api/v4/"

	defaultUserAgent = "go-bus-gitlab"
	defaultTimeout   = 30 * time.Second
)

// TokenType selects the header used to authenticate.
type TokenType int

const (
	// PrivateToken is a personal, project or group access token (PRIVATE-TOKEN header).
	PrivateToken TokenType = iota
	// OAuthToken is an OAuth2 access token (Authorization: Bearer).
	OAuthToken
	// JobToken is a CI job token (JOB-TOKEN header).
	JobToken
)

var tokenTypeNames = [...]string{PrivateToken: "private", OAuthToken: "oauth", JobToken: "job"}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "TokenType(" + strconv.Itoa(int(t)) + ")"
}

// UnmarshalText accepts the names printed by String, ignoring case. An empty
// text selects PrivateToken.
func (t *TokenType) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if s == "" {
		*t = PrivateToken
		return nil
	}
	for i, name := range tokenTypeNames {
		if s == name {
			*t = TokenType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown token type %q", text)
}

// MarshalText returns the name printed by String.
func (t TokenType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Client manages communication with the GitLab API.
type Client struct {
	baseURL   *url.URL
	token     string
	tokenType TokenType
	userAgent string
	doer      heimdall.Doer
	limiter   *rate.Limiter
	logger    *zap.Logger

	Deployments   *DeploymentsService
	Environments  *EnvironmentsService
	Events        *EventsService
	MergeRequests *MergeRequestsService
	Projects      *ProjectsService
	Releases      *ReleasesService
	Settings      *SettingsService
	Snippets      *SnippetsService
	Tags          *TagsService
	Users         *UsersService
}

type clientOptions struct {
	baseURL    string
	tokenType  TokenType
	userAgent  string
	timeout    time.Duration
	retryCount int
	backoff    time.Duration
	httpClient heimdall.Doer
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

// WithBaseURL sets the API root, e.g. https://gitlab.example.com/api/v4.
func WithBaseURL(u string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = u
	}
}

// WithTokenType selects how the token is sent. Defaults to PrivateToken.
func WithTokenType(t TokenType) ClientOption {
	return func(o *clientOptions) {
		o.tokenType = t
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(o *clientOptions) {
		o.userAgent = ua
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithRetry retries failed and 5xx requests count times with a constant
// backoff. Requests are not retried by default.
func WithRetry(count int, backoff time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.retryCount = count
		o.backoff = backoff
	}
}

// WithHTTPClient sets the underlying transport. Any heimdall.Doer works,
// including *http.Client.
func WithHTTPClient(d heimdall.Doer) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = d
	}
}

// WithRateLimit limits outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) ClientOption {
	return func(o *clientOptions) {
		o.limiter = rate.NewLimiter(r, burst)
	}
}

// WithLogger logs every request at debug level.
func WithLogger(l *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = l
	}
}

// NewClient returns a client authenticating with token. An empty token sends
// unauthenticated requests, which GitLab allows for public resources.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	o := &clientOptions{
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		backoff:   100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}

	baseURL, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", o.baseURL)
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}

	hopts := []httpclient.Option{
		httpclient.WithHTTPTimeout(o.timeout),
		httpclient.WithRetryCount(o.retryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(heimdall.NewConstantBackoff(o.backoff, o.backoff/2))),
	}
	if o.httpClient != nil {
		hopts = append(hopts, httpclient.WithHTTPClient(o.httpClient))
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:   baseURL,
		token:     token,
		tokenType: o.tokenType,
		userAgent: o.userAgent,
		doer:      httpclient.NewClient(hopts...),
		limiter:   o.limiter,
		logger:    logger.Named("gitlab"),
	}

	c.Deployments = &DeploymentsService{client: c}
	c.Environments = &EnvironmentsService{client: c}
	c.Events = &EventsService{client: c}
	c.MergeRequests = &MergeRequestsService{client: c}
	c.Projects = &ProjectsService{client: c}
	c.Releases = &ReleasesService{client: c}
	c.Settings = &SettingsService{client: c}
	c.Snippets = &SnippetsService{client: c}
	c.Tags = &TagsService{client: c}
	c.Users = &UsersService{client: c}
	return c, nil
}

// BaseURL returns a copy of the API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// NewRequest builds a request for path relative to the base URL. path must
// already be escaped; use PathEscape for ids that may contain slashes. For
// GET and DELETE the form is sent as query parameters, otherwise as a
// URL-encoded body.
func (c *Client) NewRequest(ctx context.Context, method, path string, form *Form) (*http.Request, error) {
	if form != nil {
		if err := form.Err(); err != nil {
			return nil, err
		}
	}

	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	u := *c.baseURL
	u.RawPath = c.baseURL.Path + path
	u.Path = c.baseURL.Path + unescaped

	var body io.Reader
	if form != nil && !form.Empty() {
		switch method {
		case http.MethodGet, http.MethodDelete, http.MethodHead:
			u.RawQuery = form.Encode()
		default:
			body = strings.NewReader(form.Encode())
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	switch c.tokenType {
	case OAuthToken:
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
	case JobToken:
		if c.token != "" {
			req.Header.Set("JOB-TOKEN", c.token)
		}
	default:
		if c.token != "" {
			req.Header.Set("PRIVATE-TOKEN", c.token)
		}
	}
	return req, nil
}

// Do sends req and decodes a successful JSON response into v. When v is an
// io.Writer the raw body is copied into it instead. A non-2xx status returns
// an *ErrorResponse.
func (c *Client) Do(req *http.Request, v any) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", req.Header.Get("X-Request-Id")),
	)

	response := newResponse(resp)
	if err := checkResponse(resp); err != nil {
		return response, err
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return response, nil
	}
	if w, ok := v.(io.Writer); ok {
		_, err = io.Copy(w, resp.Body)
		return response, err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return response, fmt.Errorf("failed to decode response: %w", err)
	}
	return response, nil
}

// call builds and sends a request in one step.
func (c *Client) call(ctx context.Context, method, path string, form *Form, v any) (*Response, error) {
	req, err := c.NewRequest(ctx, method, path, form)
	if err != nil {
		return nil, err
	}
	return c.Do(req, v)
}

// Response wraps the HTTP response with GitLab's pagination headers.
type Response struct {
	*http.Response

	TotalItems   int
	TotalPages   int
	ItemsPerPage int
	CurrentPage  int
	NextPage     int
	PreviousPage int
}

func newResponse(r *http.Response) *Response {
	resp := &Response{Response: r}
	resp.TotalItems = headerInt(r, "X-Total")
	resp.TotalPages = headerInt(r, "X-Total-Pages")
	resp.ItemsPerPage = headerInt(r, "X-Per-Page")
	resp.CurrentPage = headerInt(r, "X-Page")
	resp.NextPage = headerInt(r, "X-Next-Page")
	resp.PreviousPage = headerInt(r, "X-Prev-Page")
	return resp
}

func headerInt(r *http.Response, name string) int {
	n, _ := strconv.Atoi(r.Header.Get(name))
	return n
}

// ListOptions selects a page of a list endpoint. Zero values use GitLab's
// defaults (page 1, 20 items).
type ListOptions struct {
	Page    int
	PerPage int
}

func (o *ListOptions) apply(f *Form) *Form {
	if o == nil {
		return f
	}
	if o.Page > 0 {
		f.WithParam(PageParam, o.Page)
	}
	if o.PerPage > 0 {
		f.WithParam(PerPageParam, o.PerPage)
	}
	return f
}

// PathEscape escapes a project, group or user path so it can be used as a
// single URL segment ("group/project" becomes "group%2Fproject").
func PathEscape(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), "/", "%2F")
}

// pathArg renders an id argument: an integer id, a path, or a value carrying
// an ID such as *Project.
func pathArg(id any) (string, error) {
	switch v := id.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case string:
		if v == "" {
			return "", errors.New("id or path must not be empty")
		}
		return PathEscape(v), nil
	case *Project:
		if v == nil {
			return "", errors.New("project must not be nil")
		}
		return strconv.FormatInt(v.ID, 10), nil
	case *User:
		if v == nil {
			return "", errors.New("user must not be nil")
		}
		return strconv.FormatInt(v.ID, 10), nil
	default:
		return "", fmt.Errorf("unsupported id type %T: use an int, int64, string path, *Project or *User", id)
	}
}
