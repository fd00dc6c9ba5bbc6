package gitlab

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Deployment is one deployment of a ref to an environment.
type Deployment struct {
	ID          int64        `json:"id"`
	IID         int64        `json:"iid"`
	Ref         string       `json:"ref"`
	SHA         string       `json:"sha"`
	Status      string       `json:"status"`
	CreatedAt   *time.Time   `json:"created_at,omitempty"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
	User        *BasicUser   `json:"user,omitempty"`
	Environment *Environment `json:"environment,omitempty"`
	Deployable  *struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Stage  string `json:"stage"`
		Status string `json:"status"`
		Ref    string `json:"ref"`
	} `json:"deployable,omitempty"`
}

// ListDeploymentsOptions filters ListDeployments.
type ListDeploymentsOptions struct {
	ListOptions
	OrderBy       string // id, iid, created_at, updated_at, finished_at or ref
	Sort          SortOrder
	Environment   string
	Status        string
	UpdatedAfter  time.Time
	UpdatedBefore time.Time
}

func (o *ListDeploymentsOptions) form() *Form {
	f := NewForm()
	if o == nil {
		return f
	}
	return o.ListOptions.apply(f).
		WithParam("order_by", o.OrderBy).
		WithParam("sort", o.Sort).
		WithParam("environment", o.Environment).
		WithParam("status", o.Status).
		WithParam("updated_after", o.UpdatedAfter).
		WithParam("updated_before", o.UpdatedBefore)
}

// DeploymentsService handles /projects/:id/deployments.
type DeploymentsService struct {
	client *Client
}

// ListDeployments returns one page of a project's deployments.
func (s *DeploymentsService) ListDeployments(ctx context.Context, pid any, opts *ListDeploymentsOptions) ([]*Deployment, *Response, error) {
	project, err := pathArg(pid)
	if err != nil {
		return nil, nil, err
	}
	var deployments []*Deployment
	resp, err := s.client.call(ctx, http.MethodGet, "projects/"+project+"/deployments", opts.form(), &deployments)
	if err != nil {
		return nil, resp, err
	}
	return deployments, resp, nil
}

// GetDeployment returns a single deployment.
func (s *DeploymentsService) GetDeployment(ctx context.Context, pid any, deploymentID int64) (*Deployment, *Response, error) {
	project, err := pathArg(pid)
	if err != nil {
		return nil, nil, err
	}
	d := new(Deployment)
	path := "projects/" + project + "/deployments/" + strconv.FormatInt(deploymentID, 10)
	resp, err := s.client.call(ctx, http.MethodGet, path, nil, d)
	if err != nil {
		return nil, resp, err
	}
	return d, resp, nil
}
