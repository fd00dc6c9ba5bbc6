package gitlab

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	params url.Values
}

// recordingClient answers every request with body and records what was sent.
func recordingClient(t *testing.T, body string) (*Client, *recordedRequest) {
	t.Helper()
	rec := new(recordedRequest)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		rec.method = r.Method
		rec.path = strings.TrimPrefix(r.URL.EscapedPath(), "/api/v4/")
		rec.params = r.Form
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		fmt.Fprint(w, body)
	})
	return c, rec
}

func TestServices_Requests(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		body   string
		call   func(c *Client) error
		method string
		path   string
		params url.Values
	}{
		{
			name: "list environments",
			body: `[]`,
			call: func(c *Client) error {
				_, _, err := c.Environments.ListEnvironments(ctx, "group/project", &ListEnvironmentsOptions{
					ListOptions: ListOptions{Page: 2, PerPage: 10},
					Search:      "review",
				})
				return err
			},
			method: http.MethodGet,
			path:   "projects/group%2Fproject/environments",
			params: url.Values{"page": {"2"}, "per_page": {"10"}, "search": {"review"}},
		},
		{
			name: "get environment",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Environments.GetEnvironment(ctx, 5, 7)
				return err
			},
			method: http.MethodGet,
			path:   "projects/5/environments/7",
			params: url.Values{},
		},
		{
			name: "create environment",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Environments.CreateEnvironment(ctx, 5, EnvironmentOptions{
					Name:        "review/feature",
					ExternalURL: "https://review.example.com",
					Tier:        TierStaging,
				})
				return err
			},
			method: http.MethodPost,
			path:   "projects/5/environments",
			params: url.Values{"name": {"review/feature"}, "external_url": {"https://review.example.com"}, "tier": {"staging"}},
		},
		{
			name: "update environment",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Environments.UpdateEnvironment(ctx, 5, 7, EnvironmentOptions{ExternalURL: "https://new.example.com"})
				return err
			},
			method: http.MethodPut,
			path:   "projects/5/environments/7",
			params: url.Values{"external_url": {"https://new.example.com"}},
		},
		{
			name: "stop environment",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Environments.StopEnvironment(ctx, 5, 7)
				return err
			},
			method: http.MethodPost,
			path:   "projects/5/environments/7/stop",
			params: url.Values{},
		},
		{
			name: "delete environment",
			call: func(c *Client) error {
				_, err := c.Environments.DeleteEnvironment(ctx, 5, 7)
				return err
			},
			method: http.MethodDelete,
			path:   "projects/5/environments/7",
			params: url.Values{},
		},
		{
			name: "project events",
			body: `[]`,
			call: func(c *Client) error {
				_, _, err := c.Events.ListProjectEvents(ctx, "group/project", &EventFilter{
					Action:     ActionMerged,
					TargetType: TargetMergeRequest,
					After:      day,
					Sort:       SortAsc,
				}, nil)
				return err
			},
			method: http.MethodGet,
			path:   "projects/group%2Fproject/events",
			params: url.Values{"action": {"merged"}, "target_type": {"merge_request"}, "after": {"2024-03-09"}, "sort": {"asc"}},
		},
		{
			name: "user events",
			body: `[]`,
			call: func(c *Client) error {
				_, _, err := c.Events.ListUserEvents(ctx, "jane", &EventFilter{TargetType: TargetIssue}, &ListOptions{PerPage: 50})
				return err
			},
			method: http.MethodGet,
			path:   "users/jane/events",
			params: url.Values{"target_type": {"issue"}, "per_page": {"50"}},
		},
		{
			name: "create release",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Releases.CreateRelease(ctx, 5, ReleaseParams{
					Name:       "First",
					TagName:    "v1.0.0",
					Ref:        "main",
					Milestones: []string{"m1", "m2"},
					ReleasedAt: day,
				})
				return err
			},
			method: http.MethodPost,
			path:   "projects/5/releases",
			params: url.Values{
				"name":         {"First"},
				"tag_name":     {"v1.0.0"},
				"ref":          {"main"},
				"milestones[]": {"m1", "m2"},
				"released_at":  {"2024-03-09T15:00:00Z"},
			},
		},
		{
			name: "update release",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Releases.UpdateRelease(ctx, 5, ReleaseParams{TagName: "release/1.0", Description: "notes"})
				return err
			},
			method: http.MethodPut,
			path:   "projects/5/releases/release%2F1.0",
			params: url.Values{"description": {"notes"}},
		},
		{
			name: "delete release",
			body: `{}`,
			call: func(c *Client) error {
				_, err := c.Releases.DeleteRelease(ctx, 5, "v1.0.0")
				return err
			},
			method: http.MethodDelete,
			path:   "projects/5/releases/v1.0.0",
			params: url.Values{},
		},
		{
			name: "create snippet",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Snippets.CreateSnippet(ctx, SnippetParams{Title: "t", FileName: "main.go", Content: "package main"})
				return err
			},
			method: http.MethodPost,
			path:   "snippets",
			params: url.Values{"title": {"t"}, "file_name": {"main.go"}, "content": {"package main"}, "visibility": {"private"}},
		},
		{
			name: "public snippets",
			body: `[]`,
			call: func(c *Client) error {
				_, _, err := c.Snippets.ListPublicSnippets(ctx, &ListOptions{Page: 3})
				return err
			},
			method: http.MethodGet,
			path:   "snippets/public",
			params: url.Values{"page": {"3"}},
		},
		{
			name: "create tag",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Tags.CreateTag(ctx, 5, "v2.0.0", "main", "annotated")
				return err
			},
			method: http.MethodPost,
			path:   "projects/5/repository/tags",
			params: url.Values{"tag_name": {"v2.0.0"}, "ref": {"main"}, "message": {"annotated"}},
		},
		{
			name: "list tags",
			body: `[]`,
			call: func(c *Client) error {
				_, _, err := c.Tags.ListTags(ctx, 5, &ListTagsOptions{OrderBy: "version", Search: "^v2"})
				return err
			},
			method: http.MethodGet,
			path:   "projects/5/repository/tags",
			params: url.Values{"order_by": {"version"}, "search": {"^v2"}},
		},
		{
			name: "update settings",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Settings.UpdateSettings(ctx, map[string]any{"signup_enabled": false, "default_projects_limit": 10})
				return err
			},
			method: http.MethodPut,
			path:   "application/settings",
			params: url.Values{"signup_enabled": {"false"}, "default_projects_limit": {"10"}},
		},
		{
			name: "project merge requests",
			body: `[]`,
			call: func(c *Client) error {
				_, _, err := c.MergeRequests.ListProjectMergeRequests(ctx, 5, &MergeRequestFilter{
					State:          MergeRequestOpened,
					Labels:         []string{"bug", "ui"},
					AuthorID:       Ptr(int64(3)),
					SimpleView:     true,
					WorkInProgress: Ptr(false),
				}, nil)
				return err
			},
			method: http.MethodGet,
			path:   "projects/5/merge_requests",
			params: url.Values{"state": {"opened"}, "labels": {"bug,ui"}, "view": {"simple"}, "wip": {"no"}},
		},
		{
			name: "merge requests with author",
			body: `[]`,
			call: func(c *Client) error {
				_, _, err := c.MergeRequests.ListMergeRequests(ctx, &MergeRequestFilter{Scope: ScopeAll, AuthorID: Ptr(int64(3))}, nil)
				return err
			},
			method: http.MethodGet,
			path:   "merge_requests",
			params: url.Values{"scope": {"all"}, "author_id": {"3"}},
		},
		{
			name: "list deployments",
			body: `[]`,
			call: func(c *Client) error {
				_, _, err := c.Deployments.ListDeployments(ctx, "group/project", &ListDeploymentsOptions{Environment: "production", Sort: SortDesc})
				return err
			},
			method: http.MethodGet,
			path:   "projects/group%2Fproject/deployments",
			params: url.Values{"environment": {"production"}, "sort": {"desc"}},
		},
		{
			name: "current user",
			body: `{}`,
			call: func(c *Client) error {
				_, _, err := c.Users.CurrentUser(ctx)
				return err
			},
			method: http.MethodGet,
			path:   "user",
			params: url.Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := recordingClient(t, tt.body)
			require.NoError(t, tt.call(c))

			assert.Equal(t, tt.method, rec.method)
			assert.Equal(t, tt.path, rec.path)
			if diff := cmp.Diff(tt.params, rec.params); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServices_RequiredParams(t *testing.T) {
	ctx := context.Background()
	c, rec := recordingClient(t, `{}`)

	_, _, err := c.Environments.CreateEnvironment(ctx, 5, EnvironmentOptions{ExternalURL: "https://x"})
	assert.ErrorIs(t, err, ErrMissingParam)

	_, _, err = c.Releases.CreateRelease(ctx, 5, ReleaseParams{Name: "no tag"})
	assert.ErrorIs(t, err, ErrMissingParam)

	_, _, err = c.Releases.GetRelease(ctx, 5, "")
	assert.ErrorIs(t, err, ErrMissingParam)

	_, _, err = c.Snippets.CreateSnippet(ctx, SnippetParams{Title: "t", FileName: "f"})
	assert.ErrorIs(t, err, ErrMissingParam)

	_, _, err = c.Tags.CreateTag(ctx, 5, "v1", "", "")
	assert.ErrorIs(t, err, ErrMissingParam)

	_, _, err = c.Settings.UpdateSettings(ctx, nil)
	assert.ErrorIs(t, err, ErrMissingParam)

	assert.Empty(t, rec.method, "no request is sent when a parameter is missing")
}

func TestSnippetContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/snippets/12/raw", r.URL.Path)
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))
		fmt.Fprint(w, "echo hello\n")
	})

	var buf bytes.Buffer
	_, err := c.Snippets.SnippetContent(context.Background(), 12, &buf)
	require.NoError(t, err)
	assert.Equal(t, "echo hello\n", buf.String())
}

func TestGetSettings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": 1,
			"created_at": "2024-01-02T03:04:05Z",
			"signup_enabled": true,
			"default_projects_limit": 100000,
			"restricted_visibility_levels": ["public"]
		}`)
	})

	settings, _, err := c.Settings.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), settings.ID)
	require.NotNil(t, settings.CreatedAt)
	assert.Equal(t, 2024, settings.CreatedAt.Year())
	assert.Equal(t, []string{"default_projects_limit", "restricted_visibility_levels", "signup_enabled"}, settings.Names())

	v, ok := settings.Setting("signup_enabled")
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = settings.Setting("id")
	assert.False(t, ok)
}

func TestListProjectEvents_Decodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{
			"id": 3,
			"action_name": "pushed to",
			"target_type": null,
			"author_username": "jane",
			"created_at": "2024-03-09T15:00:00.000Z",
			"push_data": {"commit_count": 2, "ref": "main", "ref_type": "branch"}
		}]`)
	})

	events, _, err := c.Events.ListProjectEvents(context.Background(), 5, nil, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "jane", events[0].AuthorUsername)
	require.NotNil(t, events[0].PushData)
	assert.Equal(t, 2, events[0].PushData.CommitCount)
	assert.Equal(t, "main", events[0].PushData.Ref)
}
