package gitlab

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// X-Gitlab-Event header values.
const (
	PushHookEvent              = "Push Hook"
	TagPushHookEvent           = "Tag Push Hook"
	IssueHookEvent             = "Issue Hook"
	ConfidentialIssueHookEvent = "Confidential Issue Hook"
	NoteHookEvent              = "Note Hook"
	ConfidentialNoteHookEvent  = "Confidential Note Hook"
	MergeRequestHookEvent      = "Merge Request Hook"
	WikiPageHookEvent          = "Wiki Page Hook"
	PipelineHookEvent          = "Pipeline Hook"
	JobHookEvent               = "Job Hook"
	ReleaseHookEvent           = "Release Hook"
)

const maxWebHookBodyBytes = 25 << 20

var (
	// ErrInvalidHookToken is returned when X-Gitlab-Token does not match the secret.
	ErrInvalidHookToken = errors.New("X-Gitlab-Token mismatch")

	// ErrUnsupportedHookEvent is returned for events the manager does not decode.
	ErrUnsupportedHookEvent = errors.New("unsupported X-Gitlab-Event")
)

// HookProject is the project block included in every hook payload.
type HookProject struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	WebURL            string `json:"web_url"`
	Namespace         string `json:"namespace"`
	PathWithNamespace string `json:"path_with_namespace"`
	DefaultBranch     string `json:"default_branch"`
}

// HookUser is the user block of issue, note, pipeline and merge request hooks.
type HookUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Email     string `json:"email"`
}

// HookCommit is a commit listed in a push hook.
type HookCommit struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	Title     string     `json:"title"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	URL       string     `json:"url"`
	Author    struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"author"`
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}

// PushEvent is sent for branch and tag pushes. ObjectKind is "push" or "tag_push".
type PushEvent struct {
	ObjectKind        string        `json:"object_kind"`
	EventName         string        `json:"event_name"`
	Before            string        `json:"before"`
	After             string        `json:"after"`
	Ref               string        `json:"ref"`
	CheckoutSHA       string        `json:"checkout_sha"`
	UserID            int64         `json:"user_id"`
	UserName          string        `json:"user_name"`
	UserUsername      string        `json:"user_username"`
	UserEmail         string        `json:"user_email"`
	ProjectID         int64         `json:"project_id"`
	Project           *HookProject  `json:"project"`
	Commits           []*HookCommit `json:"commits"`
	TotalCommitsCount int           `json:"total_commits_count"`
}

// ObjectAttributes holds the common fields of the object a hook is about.
// Fields that only some kinds carry are left zero for the others.
type ObjectAttributes struct {
	ID           int64     `json:"id"`
	IID          int64     `json:"iid"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	State        string    `json:"state"`
	Action       string    `json:"action"`
	URL          string    `json:"url"`
	Ref          string    `json:"ref"`
	SHA          string    `json:"sha"`
	Status       string    `json:"status"`
	Note         string    `json:"note"`
	NoteableType string    `json:"noteable_type"`
	SourceBranch string    `json:"source_branch"`
	TargetBranch string    `json:"target_branch"`
	Slug         string    `json:"slug"`
	Duration     float64   `json:"duration"`
	CreatedAt    *HookTime `json:"created_at,omitempty"`
	UpdatedAt    *HookTime `json:"updated_at,omitempty"`
}

// ObjectEvent is sent for issues, notes, merge requests, pipelines and wiki pages.
type ObjectEvent struct {
	ObjectKind       string            `json:"object_kind"`
	EventType        string            `json:"event_type"`
	User             *HookUser         `json:"user"`
	Project          *HookProject      `json:"project"`
	ObjectAttributes *ObjectAttributes `json:"object_attributes"`
	Labels           []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"labels,omitempty"`
}

// JobEvent is sent when a CI job changes status. GitLab reports it with the
// historical object kind "build".
type JobEvent struct {
	ObjectKind    string       `json:"object_kind"`
	Ref           string       `json:"ref"`
	Tag           bool         `json:"tag"`
	SHA           string       `json:"sha"`
	BuildID       int64        `json:"build_id"`
	BuildName     string       `json:"build_name"`
	BuildStage    string       `json:"build_stage"`
	BuildStatus   string       `json:"build_status"`
	BuildDuration float64      `json:"build_duration"`
	PipelineID    int64        `json:"pipeline_id"`
	ProjectID     int64        `json:"project_id"`
	ProjectName   string       `json:"project_name"`
	User          *HookUser    `json:"user"`
	Project       *HookProject `json:"project"`
}

// ReleaseEvent is sent when a release is created or updated.
type ReleaseEvent struct {
	ObjectKind  string       `json:"object_kind"`
	ID          int64        `json:"id"`
	Action      string       `json:"action"`
	Name        string       `json:"name"`
	Tag         string       `json:"tag"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Project     *HookProject `json:"project"`
	ReleasedAt  *HookTime    `json:"released_at,omitempty"`
}

// HookTime parses the timestamp formats GitLab uses in hook payloads, which
// differ from the API ("2024-05-01 08:30:05 UTC").
type HookTime struct {
	time.Time
}

var hookTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
}

// UnmarshalJSON accepts RFC 3339 and GitLab's space-separated form.
func (t *HookTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range hookTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised hook time %q", s)
}

// WebHookListener receives decoded hook events. Embed NopListener to
// implement only some methods.
type WebHookListener interface {
	OnPush(ctx context.Context, e *PushEvent) error
	OnTagPush(ctx context.Context, e *PushEvent) error
	OnIssue(ctx context.Context, e *ObjectEvent) error
	OnNote(ctx context.Context, e *ObjectEvent) error
	OnMergeRequest(ctx context.Context, e *ObjectEvent) error
	OnWikiPage(ctx context.Context, e *ObjectEvent) error
	OnPipeline(ctx context.Context, e *ObjectEvent) error
	OnJob(ctx context.Context, e *JobEvent) error
	OnRelease(ctx context.Context, e *ReleaseEvent) error
}

// NopListener implements WebHookListener and ignores every event.
type NopListener struct{}

func (NopListener) OnPush(context.Context, *PushEvent) error           { return nil }
func (NopListener) OnTagPush(context.Context, *PushEvent) error        { return nil }
func (NopListener) OnIssue(context.Context, *ObjectEvent) error        { return nil }
func (NopListener) OnNote(context.Context, *ObjectEvent) error         { return nil }
func (NopListener) OnMergeRequest(context.Context, *ObjectEvent) error { return nil }
func (NopListener) OnWikiPage(context.Context, *ObjectEvent) error     { return nil }
func (NopListener) OnPipeline(context.Context, *ObjectEvent) error     { return nil }
func (NopListener) OnJob(context.Context, *JobEvent) error             { return nil }
func (NopListener) OnRelease(context.Context, *ReleaseEvent) error     { return nil }

// WebHookManager verifies and decodes GitLab webhook deliveries and fires them
// at the registered listeners. It is an http.Handler.
type WebHookManager struct {
	secret string
	logger *zap.Logger

	mu        sync.RWMutex
	listeners []WebHookListener
}

// NewWebHookManager creates a manager. A non-empty secret must match the
// X-Gitlab-Token header of every delivery.
func NewWebHookManager(secret string, logger *zap.Logger) *WebHookManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebHookManager{secret: secret, logger: logger.Named("gitlab.webhook")}
}

// AddListener registers a listener. Adding the same listener again is a no-op.
func (m *WebHookManager) AddListener(l WebHookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.listeners {
		if existing == l {
			return
		}
	}
	m.listeners = append(m.listeners, l)
}

// RemoveListener unregisters a listener added earlier.
func (m *WebHookManager) RemoveListener(l WebHookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// ServeHTTP handles a delivery: 401 for a bad token, 400 for a missing,
// unsupported or undecodable event and 500 when a listener fails.
func (m *WebHookManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := m.verifyToken(r.Header.Get("X-Gitlab-Token")); err != nil {
		m.logger.Warn("rejected webhook", zap.Error(err))
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebHookBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	err = m.dispatch(r.Context(), r.Header.Get("X-Gitlab-Event"), body)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, ErrUnsupportedHookEvent), errors.As(err, new(*json.SyntaxError)), errors.As(err, new(*json.UnmarshalTypeError)):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleEvent verifies token, decodes body according to eventName and fires
// the event at every listener.
func (m *WebHookManager) HandleEvent(ctx context.Context, eventName, token string, body []byte) error {
	if err := m.verifyToken(token); err != nil {
		return err
	}
	return m.dispatch(ctx, eventName, body)
}

func (m *WebHookManager) verifyToken(token string) error {
	if m.secret == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(m.secret)) != 1 {
		return ErrInvalidHookToken
	}
	return nil
}

func (m *WebHookManager) dispatch(ctx context.Context, eventName string, body []byte) error {
	if eventName == "" {
		return fmt.Errorf("%w: X-Gitlab-Event header is missing", ErrUnsupportedHookEvent)
	}
	m.logger.Info("handling webhook", zap.String("event", eventName))

	switch eventName {
	case PushHookEvent, TagPushHookEvent:
		e := new(PushEvent)
		if err := json.Unmarshal(body, e); err != nil {
			return err
		}
		if eventName == TagPushHookEvent {
			return m.fire(func(l WebHookListener) error { return l.OnTagPush(ctx, e) })
		}
		return m.fire(func(l WebHookListener) error { return l.OnPush(ctx, e) })

	case IssueHookEvent, ConfidentialIssueHookEvent, NoteHookEvent, ConfidentialNoteHookEvent,
		MergeRequestHookEvent, WikiPageHookEvent, PipelineHookEvent:
		e := new(ObjectEvent)
		if err := json.Unmarshal(body, e); err != nil {
			return err
		}
		switch eventName {
		case IssueHookEvent, ConfidentialIssueHookEvent:
			return m.fire(func(l WebHookListener) error { return l.OnIssue(ctx, e) })
		case NoteHookEvent, ConfidentialNoteHookEvent:
			return m.fire(func(l WebHookListener) error { return l.OnNote(ctx, e) })
		case MergeRequestHookEvent:
			return m.fire(func(l WebHookListener) error { return l.OnMergeRequest(ctx, e) })
		case WikiPageHookEvent:
			return m.fire(func(l WebHookListener) error { return l.OnWikiPage(ctx, e) })
		default:
			return m.fire(func(l WebHookListener) error { return l.OnPipeline(ctx, e) })
		}

	case JobHookEvent:
		e := new(JobEvent)
		if err := json.Unmarshal(body, e); err != nil {
			return err
		}
		return m.fire(func(l WebHookListener) error { return l.OnJob(ctx, e) })

	case ReleaseHookEvent:
		e := new(ReleaseEvent)
		if err := json.Unmarshal(body, e); err != nil {
			return err
		}
		return m.fire(func(l WebHookListener) error { return l.OnRelease(ctx, e) })

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedHookEvent, eventName)
	}
}

// fire calls every listener and joins their errors.
func (m *WebHookManager) fire(call func(WebHookListener) error) error {
	m.mu.RLock()
	listeners := append([]WebHookListener(nil), m.listeners...)
	m.mu.RUnlock()

	var errs []error
	for _, l := range listeners {
		if err := call(l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
