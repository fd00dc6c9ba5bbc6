package gitlab

import (
	"context"
	"net/http"
	"time"
)

// Release is a project release tied to a tag.
type Release struct {
	Name            string         `json:"name"`
	TagName         string         `json:"tag_name"`
	Description     string         `json:"description"`
	CreatedAt       *time.Time     `json:"created_at,omitempty"`
	ReleasedAt      *time.Time     `json:"released_at,omitempty"`
	UpcomingRelease bool           `json:"upcoming_release"`
	Author          *BasicUser     `json:"author,omitempty"`
	Commit          *Commit        `json:"commit,omitempty"`
	Milestones      []*Milestone   `json:"milestones,omitempty"`
	Assets          *ReleaseAssets `json:"assets,omitempty"`
}

// ReleaseAssets lists the generated sources and attached links of a release.
type ReleaseAssets struct {
	Count   int `json:"count"`
	Sources []struct {
		Format string `json:"format"`
		URL    string `json:"url"`
	} `json:"sources"`
	Links []*ReleaseLink `json:"links"`
}

// ReleaseLink is an asset link attached to a release.
type ReleaseLink struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	LinkType string `json:"link_type"`
}

// ReleaseParams are the fields of a release. TagName is required on create.
// Ref is only used when the tag does not exist yet.
type ReleaseParams struct {
	Name        string
	TagName     string
	Description string
	Ref         string
	Milestones  []string
	ReleasedAt  time.Time
}

func (p ReleaseParams) form(create bool) *Form {
	f := NewForm().
		WithParam("name", p.Name).
		WithParam("description", p.Description).
		WithParam("milestones", p.Milestones).
		WithParam("released_at", p.ReleasedAt)
	if create {
		f.WithRequiredParam("tag_name", p.TagName).
			WithParam("ref", p.Ref)
	}
	return f
}

// ReleasesService handles /projects/:id/releases.
type ReleasesService struct {
	client *Client
}

func releasesPath(pid any, tagName string) (string, error) {
	project, err := pathArg(pid)
	if err != nil {
		return "", err
	}
	p := "projects/" + project + "/releases"
	if tagName != "" {
		p += "/" + PathEscape(tagName)
	}
	return p, nil
}

// ListReleases returns one page of a project's releases, newest first.
func (s *ReleasesService) ListReleases(ctx context.Context, pid any, opts *ListOptions) ([]*Release, *Response, error) {
	path, err := releasesPath(pid, "")
	if err != nil {
		return nil, nil, err
	}
	var releases []*Release
	resp, err := s.client.call(ctx, http.MethodGet, path, opts.apply(NewForm()), &releases)
	if err != nil {
		return nil, resp, err
	}
	return releases, resp, nil
}

// ReleasesPager walks every release of a project.
func (s *ReleasesService) ReleasesPager(pid any, perPage int) (*Pager[*Release], error) {
	path, err := releasesPath(pid, "")
	if err != nil {
		return nil, err
	}
	return newPager[*Release](s.client, path, nil, perPage), nil
}

// GetRelease returns the release of a tag.
func (s *ReleasesService) GetRelease(ctx context.Context, pid any, tagName string) (*Release, *Response, error) {
	if tagName == "" {
		return nil, nil, NewForm().WithRequiredParam("tag_name", tagName).Err()
	}
	path, err := releasesPath(pid, tagName)
	if err != nil {
		return nil, nil, err
	}
	r := new(Release)
	resp, err := s.client.call(ctx, http.MethodGet, path, nil, r)
	if err != nil {
		return nil, resp, err
	}
	return r, resp, nil
}

// CreateRelease creates a release, and the tag when Ref is given.
func (s *ReleasesService) CreateRelease(ctx context.Context, pid any, params ReleaseParams) (*Release, *Response, error) {
	path, err := releasesPath(pid, "")
	if err != nil {
		return nil, nil, err
	}
	r := new(Release)
	resp, err := s.client.call(ctx, http.MethodPost, path, params.form(true), r)
	if err != nil {
		return nil, resp, err
	}
	return r, resp, nil
}

// UpdateRelease changes the set fields of the release of params.TagName.
func (s *ReleasesService) UpdateRelease(ctx context.Context, pid any, params ReleaseParams) (*Release, *Response, error) {
	if params.TagName == "" {
		return nil, nil, NewForm().WithRequiredParam("tag_name", params.TagName).Err()
	}
	path, err := releasesPath(pid, params.TagName)
	if err != nil {
		return nil, nil, err
	}
	r := new(Release)
	resp, err := s.client.call(ctx, http.MethodPut, path, params.form(false), r)
	if err != nil {
		return nil, resp, err
	}
	return r, resp, nil
}

// DeleteRelease deletes a release. The tag is kept.
func (s *ReleasesService) DeleteRelease(ctx context.Context, pid any, tagName string) (*Response, error) {
	if tagName == "" {
		return nil, NewForm().WithRequiredParam("tag_name", tagName).Err()
	}
	path, err := releasesPath(pid, tagName)
	if err != nil {
		return nil, err
	}
	return s.client.call(ctx, http.MethodDelete, path, nil, nil)
}
