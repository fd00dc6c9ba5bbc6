package gitlab

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// MergeRequestState filters merge requests by state.
type MergeRequestState string

const (
	MergeRequestOpened MergeRequestState = "opened"
	MergeRequestClosed MergeRequestState = "closed"
	MergeRequestLocked MergeRequestState = "locked"
	MergeRequestMerged MergeRequestState = "merged"
	MergeRequestAll    MergeRequestState = "all"
)

// MergeRequestScope limits merge requests to those related to the token owner.
type MergeRequestScope string

const (
	ScopeCreatedByMe  MergeRequestScope = "created_by_me"
	ScopeAssignedToMe MergeRequestScope = "assigned_to_me"
	ScopeAll          MergeRequestScope = "all"
)

// MergeRequest is a merge request.
type MergeRequest struct {
	ID           int64        `json:"id"`
	IID          int64        `json:"iid"`
	ProjectID    int64        `json:"project_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	State        string       `json:"state"`
	SourceBranch string       `json:"source_branch"`
	TargetBranch string       `json:"target_branch"`
	Author       *BasicUser   `json:"author,omitempty"`
	Assignees    []*BasicUser `json:"assignees,omitempty"`
	Labels       []string     `json:"labels,omitempty"`
	Draft        bool         `json:"draft"`
	MergeStatus  string       `json:"merge_status"`
	SHA          string       `json:"sha"`
	WebURL       string       `json:"web_url"`
	CreatedAt    *time.Time   `json:"created_at,omitempty"`
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"`
	MergedAt     *time.Time   `json:"merged_at,omitempty"`
	ClosedAt     *time.Time   `json:"closed_at,omitempty"`
}

// MergeRequestFilter narrows a merge request listing. Nil and empty fields
// are not sent.
type MergeRequestFilter struct {
	IIDs            []int64
	State           MergeRequestState
	OrderBy         string // created_at or updated_at
	Sort            SortOrder
	Milestone       string
	SimpleView      bool
	Labels          []string
	CreatedAfter    time.Time
	CreatedBefore   time.Time
	UpdatedAfter    time.Time
	UpdatedBefore   time.Time
	Scope           MergeRequestScope
	AuthorID        *int64
	AssigneeID      *int64
	MyReactionEmoji string
	SourceBranch    string
	TargetBranch    string
	Search          string
	In              string // title, description or "title,description"
	WorkInProgress  *bool
}

func (f *MergeRequestFilter) form() *Form {
	form := NewForm()
	if f == nil {
		return form
	}
	form.WithParam("iids", f.IIDs).
		WithParam("state", f.State).
		WithParam("order_by", f.OrderBy).
		WithParam("sort", f.Sort).
		WithParam("milestone", f.Milestone).
		WithParam("labels", strings.Join(f.Labels, ",")).
		WithParam("created_after", f.CreatedAfter).
		WithParam("created_before", f.CreatedBefore).
		WithParam("updated_after", f.UpdatedAfter).
		WithParam("updated_before", f.UpdatedBefore).
		WithParam("scope", f.Scope).
		WithParam("assignee_id", f.AssigneeID).
		WithParam("my_reaction_emoji", f.MyReactionEmoji).
		WithParam("source_branch", f.SourceBranch).
		WithParam("target_branch", f.TargetBranch).
		WithParam("search", f.Search).
		WithParam("in", f.In)

	if f.SimpleView {
		form.WithParam("view", "simple")
	}
	if f.WorkInProgress != nil {
		wip := "no"
		if *f.WorkInProgress {
			wip = "yes"
		}
		form.WithParam("wip", wip)
	}
	// GitLab only honours author_id together with these scopes.
	if f.AuthorID != nil && (f.Scope == ScopeAll || f.Scope == ScopeAssignedToMe) {
		form.WithParam("author_id", f.AuthorID)
	}
	return form
}

// MergeRequestsService handles /merge_requests and /projects/:id/merge_requests.
type MergeRequestsService struct {
	client *Client
}

// ListMergeRequests returns one page of merge requests visible to the token owner.
func (s *MergeRequestsService) ListMergeRequests(ctx context.Context, filter *MergeRequestFilter, opts *ListOptions) ([]*MergeRequest, *Response, error) {
	var mrs []*MergeRequest
	resp, err := s.client.call(ctx, http.MethodGet, "merge_requests", opts.apply(filter.form()), &mrs)
	if err != nil {
		return nil, resp, err
	}
	return mrs, resp, nil
}

// ListProjectMergeRequests returns one page of a project's merge requests.
func (s *MergeRequestsService) ListProjectMergeRequests(ctx context.Context, pid any, filter *MergeRequestFilter, opts *ListOptions) ([]*MergeRequest, *Response, error) {
	project, err := pathArg(pid)
	if err != nil {
		return nil, nil, err
	}
	var mrs []*MergeRequest
	resp, err := s.client.call(ctx, http.MethodGet, "projects/"+project+"/merge_requests", opts.apply(filter.form()), &mrs)
	if err != nil {
		return nil, resp, err
	}
	return mrs, resp, nil
}

// ProjectMergeRequestsPager walks every merge request of a project.
func (s *MergeRequestsService) ProjectMergeRequestsPager(pid any, filter *MergeRequestFilter, perPage int) (*Pager[*MergeRequest], error) {
	project, err := pathArg(pid)
	if err != nil {
		return nil, err
	}
	return newPager[*MergeRequest](s.client, "projects/"+project+"/merge_requests", filter.form(), perPage), nil
}
