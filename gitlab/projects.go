package gitlab

import (
	"context"
	"net/http"
	"time"
)

// Project is a GitLab project.
type Project struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	NameWithNamespace string     `json:"name_with_namespace"`
	Path              string     `json:"path"`
	PathWithNamespace string     `json:"path_with_namespace"`
	Description       string     `json:"description"`
	DefaultBranch     string     `json:"default_branch"`
	Visibility        Visibility `json:"visibility"`
	WebURL            string     `json:"web_url"`
	SSHURLToRepo      string     `json:"ssh_url_to_repo"`
	HTTPURLToRepo     string     `json:"http_url_to_repo"`
	Archived          bool       `json:"archived"`
	StarCount         int        `json:"star_count"`
	ForksCount        int        `json:"forks_count"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	LastActivityAt    *time.Time `json:"last_activity_at,omitempty"`
}

// ProjectsService handles /projects/:id.
type ProjectsService struct {
	client *Client
}

// GetProject returns a project by id or "namespace/path".
func (s *ProjectsService) GetProject(ctx context.Context, pid any) (*Project, *Response, error) {
	project, err := pathArg(pid)
	if err != nil {
		return nil, nil, err
	}
	p := new(Project)
	resp, err := s.client.call(ctx, http.MethodGet, "projects/"+project, nil, p)
	if err != nil {
		return nil, resp, err
	}
	return p, resp, nil
}
