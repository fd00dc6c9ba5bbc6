package gitlab

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/meysam81/go-bus/datetime"
)

// ActionType filters events by what happened.
type ActionType string

const (
	ActionCreated   ActionType = "created"
	ActionUpdated   ActionType = "updated"
	ActionClosed    ActionType = "closed"
	ActionReopened  ActionType = "reopened"
	ActionPushed    ActionType = "pushed"
	ActionCommented ActionType = "commented"
	ActionMerged    ActionType = "merged"
	ActionJoined    ActionType = "joined"
	ActionLeft      ActionType = "left"
	ActionDestroyed ActionType = "destroyed"
	ActionExpired   ActionType = "expired"
	ActionApproved  ActionType = "approved"
)

// TargetType filters events by the kind of object acted on. GitLab reports
// target types in CamelCase but expects them in lower case as a filter.
type TargetType string

const (
	TargetIssue        TargetType = "Issue"
	TargetMilestone    TargetType = "Milestone"
	TargetMergeRequest TargetType = "MergeRequest"
	TargetNote         TargetType = "Note"
	TargetProject      TargetType = "Project"
	TargetSnippet      TargetType = "Snippet"
	TargetUser         TargetType = "User"
	TargetDiffNote     TargetType = "DiffNote"
	TargetDesign       TargetType = "DesignManagement::Design"
)

func (t TargetType) filter() string {
	switch t {
	case TargetMergeRequest:
		return "merge_request"
	case "":
		return ""
	default:
		return strings.ToLower(string(t))
	}
}

// Event is an entry of a user's or project's activity feed.
type Event struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	ProjectID      int64      `json:"project_id"`
	ActionName     string     `json:"action_name"`
	TargetID       int64      `json:"target_id"`
	TargetIID      int64      `json:"target_iid"`
	TargetType     TargetType `json:"target_type"`
	TargetTitle    string     `json:"target_title"`
	AuthorID       int64      `json:"author_id"`
	AuthorUsername string     `json:"author_username"`
	Author         *BasicUser `json:"author,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	PushData       *PushData  `json:"push_data,omitempty"`
	Note           *EventNote `json:"note,omitempty"`
}

// PushData describes the push behind a "pushed" event.
type PushData struct {
	CommitCount int    `json:"commit_count"`
	Action      string `json:"action"`
	RefType     string `json:"ref_type"`
	CommitFrom  string `json:"commit_from"`
	CommitTo    string `json:"commit_to"`
	Ref         string `json:"ref"`
	CommitTitle string `json:"commit_title"`
}

// EventNote is the comment behind a "commented" event.
type EventNote struct {
	ID           int64      `json:"id"`
	Body         string     `json:"body"`
	Author       *BasicUser `json:"author,omitempty"`
	NoteableType string     `json:"noteable_type"`
	NoteableID   int64      `json:"noteable_id"`
	NoteableIID  int64      `json:"noteable_iid"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// EventFilter narrows an events listing. Before and After are calendar dates.
type EventFilter struct {
	Action     ActionType
	TargetType TargetType
	Before     time.Time
	After      time.Time
	Sort       SortOrder
}

func (f *EventFilter) form() *Form {
	form := NewForm()
	if f == nil {
		return form
	}
	form.WithParam("action", f.Action).
		WithParam("target_type", f.TargetType.filter()).
		WithParam("sort", f.Sort)
	if !f.Before.IsZero() {
		form.WithParam("before", datetime.FormatDate(f.Before))
	}
	if !f.After.IsZero() {
		form.WithParam("after", datetime.FormatDate(f.After))
	}
	return form
}

// EventsService handles the activity feeds at /events, /users/:id/events and
// /projects/:id/events.
type EventsService struct {
	client *Client
}

func (s *EventsService) list(ctx context.Context, path string, filter *EventFilter, opts *ListOptions) ([]*Event, *Response, error) {
	var events []*Event
	resp, err := s.client.call(ctx, http.MethodGet, path, opts.apply(filter.form()), &events)
	if err != nil {
		return nil, resp, err
	}
	return events, resp, nil
}

// ListAuthenticatedUserEvents returns one page of the token owner's events.
func (s *EventsService) ListAuthenticatedUserEvents(ctx context.Context, filter *EventFilter, opts *ListOptions) ([]*Event, *Response, error) {
	return s.list(ctx, "events", filter, opts)
}

// AuthenticatedUserEventsPager walks every event of the token owner.
func (s *EventsService) AuthenticatedUserEventsPager(filter *EventFilter, perPage int) *Pager[*Event] {
	return newPager[*Event](s.client, "events", filter.form(), perPage)
}

// ListUserEvents returns one page of a user's contribution events. uid is a
// numeric id or a username.
func (s *EventsService) ListUserEvents(ctx context.Context, uid any, filter *EventFilter, opts *ListOptions) ([]*Event, *Response, error) {
	user, err := pathArg(uid)
	if err != nil {
		return nil, nil, err
	}
	return s.list(ctx, "users/"+user+"/events", filter, opts)
}

// UserEventsPager walks every contribution event of a user.
func (s *EventsService) UserEventsPager(uid any, filter *EventFilter, perPage int) (*Pager[*Event], error) {
	user, err := pathArg(uid)
	if err != nil {
		return nil, err
	}
	return newPager[*Event](s.client, "users/"+user+"/events", filter.form(), perPage), nil
}

// ListProjectEvents returns one page of a project's visible events.
func (s *EventsService) ListProjectEvents(ctx context.Context, pid any, filter *EventFilter, opts *ListOptions) ([]*Event, *Response, error) {
	project, err := pathArg(pid)
	if err != nil {
		return nil, nil, err
	}
	return s.list(ctx, "projects/"+project+"/events", filter, opts)
}

// ProjectEventsPager walks every visible event of a project.
func (s *EventsService) ProjectEventsPager(pid any, filter *EventFilter, perPage int) (*Pager[*Event], error) {
	project, err := pathArg(pid)
	if err != nil {
		return nil, err
	}
	return newPager[*Event](s.client, "projects/"+project+"/events", filter.form(), perPage), nil
}
