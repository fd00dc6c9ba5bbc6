package gitlab

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// EnvironmentTier classifies an environment.
type EnvironmentTier string

const (
	TierProduction  EnvironmentTier = "production"
	TierStaging     EnvironmentTier = "staging"
	TierTesting     EnvironmentTier = "testing"
	TierDevelopment EnvironmentTier = "development"
	TierOther       EnvironmentTier = "other"
)

// Environment is a deployment target of a project.
type Environment struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	ExternalURL    string          `json:"external_url"`
	State          string          `json:"state"`
	Tier           EnvironmentTier `json:"tier,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
	AutoStopAt     *time.Time      `json:"auto_stop_at,omitempty"`
	LastDeployment *Deployment     `json:"last_deployment,omitempty"`
}

// ListEnvironmentsOptions filters ListEnvironments.
type ListEnvironmentsOptions struct {
	ListOptions
	Name   string
	Search string
	States string // available, stopping or stopped
}

func (o *ListEnvironmentsOptions) form() *Form {
	f := NewForm()
	if o == nil {
		return f
	}
	return o.ListOptions.apply(f).
		WithParam("name", o.Name).
		WithParam("search", o.Search).
		WithParam("states", o.States)
}

// EnvironmentOptions are the writable fields of an environment.
type EnvironmentOptions struct {
	Name        string
	ExternalURL string
	Tier        EnvironmentTier
}

// EnvironmentsService handles /projects/:id/environments.
type EnvironmentsService struct {
	client *Client
}

func environmentsPath(pid any, rest ...string) (string, error) {
	project, err := pathArg(pid)
	if err != nil {
		return "", err
	}
	p := "projects/" + project + "/environments"
	for _, r := range rest {
		p += "/" + r
	}
	return p, nil
}

// ListEnvironments returns one page of a project's environments.
func (s *EnvironmentsService) ListEnvironments(ctx context.Context, pid any, opts *ListEnvironmentsOptions) ([]*Environment, *Response, error) {
	path, err := environmentsPath(pid)
	if err != nil {
		return nil, nil, err
	}
	var envs []*Environment
	resp, err := s.client.call(ctx, http.MethodGet, path, opts.form(), &envs)
	if err != nil {
		return nil, resp, err
	}
	return envs, resp, nil
}

// EnvironmentsPager walks every environment of a project.
func (s *EnvironmentsService) EnvironmentsPager(pid any, opts *ListEnvironmentsOptions, perPage int) (*Pager[*Environment], error) {
	path, err := environmentsPath(pid)
	if err != nil {
		return nil, err
	}
	return newPager[*Environment](s.client, path, opts.form(), perPage), nil
}

// GetEnvironment returns a single environment.
func (s *EnvironmentsService) GetEnvironment(ctx context.Context, pid any, environmentID int64) (*Environment, *Response, error) {
	path, err := environmentsPath(pid, strconv.FormatInt(environmentID, 10))
	if err != nil {
		return nil, nil, err
	}
	env := new(Environment)
	resp, err := s.client.call(ctx, http.MethodGet, path, nil, env)
	if err != nil {
		return nil, resp, err
	}
	return env, resp, nil
}

// CreateEnvironment creates an environment. Name is required.
func (s *EnvironmentsService) CreateEnvironment(ctx context.Context, pid any, opts EnvironmentOptions) (*Environment, *Response, error) {
	path, err := environmentsPath(pid)
	if err != nil {
		return nil, nil, err
	}
	form := NewForm().
		WithRequiredParam("name", opts.Name).
		WithParam("external_url", opts.ExternalURL).
		WithParam("tier", opts.Tier)

	env := new(Environment)
	resp, err := s.client.call(ctx, http.MethodPost, path, form, env)
	if err != nil {
		return nil, resp, err
	}
	return env, resp, nil
}

// UpdateEnvironment changes the set fields of an environment.
func (s *EnvironmentsService) UpdateEnvironment(ctx context.Context, pid any, environmentID int64, opts EnvironmentOptions) (*Environment, *Response, error) {
	path, err := environmentsPath(pid, strconv.FormatInt(environmentID, 10))
	if err != nil {
		return nil, nil, err
	}
	form := NewForm().
		WithParam("name", opts.Name).
		WithParam("external_url", opts.ExternalURL).
		WithParam("tier", opts.Tier)

	env := new(Environment)
	resp, err := s.client.call(ctx, http.MethodPut, path, form, env)
	if err != nil {
		return nil, resp, err
	}
	return env, resp, nil
}

// StopEnvironment stops an environment. GitLab refuses to delete running ones.
func (s *EnvironmentsService) StopEnvironment(ctx context.Context, pid any, environmentID int64) (*Environment, *Response, error) {
	path, err := environmentsPath(pid, strconv.FormatInt(environmentID, 10), "stop")
	if err != nil {
		return nil, nil, err
	}
	env := new(Environment)
	resp, err := s.client.call(ctx, http.MethodPost, path, nil, env)
	if err != nil {
		return nil, resp, err
	}
	return env, resp, nil
}

// DeleteEnvironment deletes a stopped environment.
func (s *EnvironmentsService) DeleteEnvironment(ctx context.Context, pid any, environmentID int64) (*Response, error) {
	path, err := environmentsPath(pid, strconv.FormatInt(environmentID, 10))
	if err != nil {
		return nil, err
	}
	return s.client.call(ctx, http.MethodDelete, path, nil, nil)
}
