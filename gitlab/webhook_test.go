package gitlab

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	NopListener
	pushes   []*PushEvent
	tags     []*PushEvent
	mrs      []*ObjectEvent
	notes    []*ObjectEvent
	jobs     []*JobEvent
	releases []*ReleaseEvent
	err      error
}

func (l *recordingListener) OnPush(_ context.Context, e *PushEvent) error {
	l.pushes = append(l.pushes, e)
	return l.err
}

func (l *recordingListener) OnTagPush(_ context.Context, e *PushEvent) error {
	l.tags = append(l.tags, e)
	return l.err
}

func (l *recordingListener) OnMergeRequest(_ context.Context, e *ObjectEvent) error {
	l.mrs = append(l.mrs, e)
	return l.err
}

func (l *recordingListener) OnNote(_ context.Context, e *ObjectEvent) error {
	l.notes = append(l.notes, e)
	return l.err
}

func (l *recordingListener) OnJob(_ context.Context, e *JobEvent) error {
	l.jobs = append(l.jobs, e)
	return l.err
}

func (l *recordingListener) OnRelease(_ context.Context, e *ReleaseEvent) error {
	l.releases = append(l.releases, e)
	return l.err
}

const pushPayload = `{
	"object_kind": "push",
	"before": "95790bf891e76fee5e1747ab589903a6a1f80f22",
	"after": "da1560886d4f094c3e6c9ef40349f7d38b5d27d7",
	"ref": "refs/heads/main",
	"user_username": "jsmith",
	"project_id": 15,
	"project": {"id": 15, "path_with_namespace": "mike/diaspora"},
	"commits": [{"id": "b6568db1", "message": "Update Catalan translation", "timestamp": "2011-12-12T14:27:31+02:00"}],
	"total_commits_count": 1
}`

func deliver(t *testing.T, m *WebHookManager, method, event, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/hooks/gitlab", strings.NewReader(body))
	if event != "" {
		req.Header.Set("X-Gitlab-Event", event)
	}
	if token != "" {
		req.Header.Set("X-Gitlab-Token", token)
	}
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)
	return rec
}

func TestWebHookManager_Push(t *testing.T) {
	m := NewWebHookManager("s3cret", nil)
	l := new(recordingListener)
	m.AddListener(l)

	rec := deliver(t, m, http.MethodPost, PushHookEvent, "s3cret", pushPayload)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, l.pushes, 1)
	push := l.pushes[0]
	assert.Equal(t, "refs/heads/main", push.Ref)
	assert.Equal(t, "mike/diaspora", push.Project.PathWithNamespace)
	require.Len(t, push.Commits, 1)
	assert.Equal(t, "Update Catalan translation", push.Commits[0].Message)
	assert.Equal(t, 12, push.Commits[0].Timestamp.UTC().Hour())
	assert.Empty(t, l.tags)
}

func TestWebHookManager_Dispatch(t *testing.T) {
	m := NewWebHookManager("", nil)
	l := new(recordingListener)
	m.AddListener(l)
	ctx := context.Background()

	require.NoError(t, m.HandleEvent(ctx, TagPushHookEvent, "", []byte(`{"object_kind":"tag_push","ref":"refs/tags/v1.0.0"}`)))
	require.NoError(t, m.HandleEvent(ctx, MergeRequestHookEvent, "", []byte(`{
		"object_kind": "merge_request",
		"user": {"username": "root"},
		"object_attributes": {"iid": 1, "action": "open", "source_branch": "feature", "target_branch": "main",
			"created_at": "2013-12-03 17:23:34 UTC"}
	}`)))
	require.NoError(t, m.HandleEvent(ctx, ConfidentialNoteHookEvent, "", []byte(`{"object_kind":"note","object_attributes":{"note":"looks good","noteable_type":"Issue"}}`)))
	require.NoError(t, m.HandleEvent(ctx, JobHookEvent, "", []byte(`{"object_kind":"build","build_id":1977,"build_status":"success","build_name":"test"}`)))
	require.NoError(t, m.HandleEvent(ctx, ReleaseHookEvent, "", []byte(`{"object_kind":"release","action":"create","tag":"v1.1","released_at":"2020-11-02 12:55:12 UTC"}`)))

	require.Len(t, l.tags, 1)
	assert.Equal(t, "refs/tags/v1.0.0", l.tags[0].Ref)

	require.Len(t, l.mrs, 1)
	attrs := l.mrs[0].ObjectAttributes
	assert.Equal(t, "feature", attrs.SourceBranch)
	assert.True(t, attrs.CreatedAt.Equal(time.Date(2013, 12, 3, 17, 23, 34, 0, time.UTC)))

	require.Len(t, l.notes, 1)
	assert.Equal(t, "looks good", l.notes[0].ObjectAttributes.Note)

	require.Len(t, l.jobs, 1)
	assert.Equal(t, "build", l.jobs[0].ObjectKind)
	assert.Equal(t, int64(1977), l.jobs[0].BuildID)

	require.Len(t, l.releases, 1)
	assert.Equal(t, "v1.1", l.releases[0].Tag)
	assert.Equal(t, 2020, l.releases[0].ReleasedAt.Year())
}

func TestWebHookManager_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		method string
		event  string
		token  string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, PushHookEvent, "s3cret", "", http.StatusMethodNotAllowed},
		{"bad token", http.MethodPost, PushHookEvent, "guess", pushPayload, http.StatusUnauthorized},
		{"missing token", http.MethodPost, PushHookEvent, "", pushPayload, http.StatusUnauthorized},
		{"missing event", http.MethodPost, "", "s3cret", pushPayload, http.StatusBadRequest},
		{"unsupported event", http.MethodPost, "System Hook", "s3cret", pushPayload, http.StatusBadRequest},
		{"malformed body", http.MethodPost, PushHookEvent, "s3cret", `{"ref":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWebHookManager("s3cret", nil)
			l := new(recordingListener)
			m.AddListener(l)

			rec := deliver(t, m, tt.method, tt.event, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, l.pushes)
		})
	}
}

func TestWebHookManager_ListenerError(t *testing.T) {
	m := NewWebHookManager("", nil)
	failing := &recordingListener{err: errors.New("downstream unavailable")}
	ok := new(recordingListener)
	m.AddListener(failing)
	m.AddListener(ok)

	rec := deliver(t, m, http.MethodPost, PushHookEvent, "", pushPayload)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, ok.pushes, 1, "later listeners still run")

	err := m.HandleEvent(context.Background(), PushHookEvent, "", []byte(pushPayload))
	assert.ErrorContains(t, err, "downstream unavailable")
}

func TestWebHookManager_RemoveListener(t *testing.T) {
	m := NewWebHookManager("", nil)
	l := new(recordingListener)
	m.AddListener(l)
	m.RemoveListener(l)

	require.NoError(t, m.HandleEvent(context.Background(), PushHookEvent, "", []byte(pushPayload)))
	assert.Empty(t, l.pushes)
}

func TestWebHookManager_AddListenerTwice(t *testing.T) {
	m := NewWebHookManager("", nil)
	l := new(recordingListener)
	m.AddListener(l)
	m.AddListener(l)

	require.NoError(t, m.HandleEvent(context.Background(), PushHookEvent, "", []byte(pushPayload)))
	assert.Len(t, l.pushes, 1)

	m.RemoveListener(l)
	require.NoError(t, m.HandleEvent(context.Background(), PushHookEvent, "", []byte(pushPayload)))
	assert.Len(t, l.pushes, 1)
}

func TestWebHookManager_HandleEventToken(t *testing.T) {
	m := NewWebHookManager("s3cret", nil)
	err := m.HandleEvent(context.Background(), PushHookEvent, "nope", []byte(pushPayload))
	assert.ErrorIs(t, err, ErrInvalidHookToken)

	err = m.HandleEvent(context.Background(), "Deployment Hook", "s3cret", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnsupportedHookEvent)
}
