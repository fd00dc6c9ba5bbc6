package gitlab

import (
	"context"
	"net/http"
)

// Tag is a repository tag.
type Tag struct {
	Name      string      `json:"name"`
	Message   string      `json:"message"`
	Target    string      `json:"target"`
	Protected bool        `json:"protected"`
	Commit    *Commit     `json:"commit,omitempty"`
	Release   *TagRelease `json:"release,omitempty"`
}

// TagRelease is the release summary embedded in a tag.
type TagRelease struct {
	TagName     string `json:"tag_name"`
	Description string `json:"description"`
}

// ListTagsOptions filters ListTags.
type ListTagsOptions struct {
	ListOptions
	OrderBy string // name, updated or version
	Sort    SortOrder
	Search  string // ^prefix and suffix$ are supported
}

func (o *ListTagsOptions) form() *Form {
	f := NewForm()
	if o == nil {
		return f
	}
	return o.ListOptions.apply(f).
		WithParam("order_by", o.OrderBy).
		WithParam("sort", o.Sort).
		WithParam("search", o.Search)
}

// TagsService handles /projects/:id/repository/tags.
type TagsService struct {
	client *Client
}

func tagsPath(pid any, tagName string) (string, error) {
	project, err := pathArg(pid)
	if err != nil {
		return "", err
	}
	p := "projects/" + project + "/repository/tags"
	if tagName != "" {
		p += "/" + PathEscape(tagName)
	}
	return p, nil
}

// ListTags returns one page of a project's tags.
func (s *TagsService) ListTags(ctx context.Context, pid any, opts *ListTagsOptions) ([]*Tag, *Response, error) {
	path, err := tagsPath(pid, "")
	if err != nil {
		return nil, nil, err
	}
	var tags []*Tag
	resp, err := s.client.call(ctx, http.MethodGet, path, opts.form(), &tags)
	if err != nil {
		return nil, resp, err
	}
	return tags, resp, nil
}

// GetTag returns a single tag.
func (s *TagsService) GetTag(ctx context.Context, pid any, tagName string) (*Tag, *Response, error) {
	if tagName == "" {
		return nil, nil, NewForm().WithRequiredParam("tag_name", tagName).Err()
	}
	path, err := tagsPath(pid, tagName)
	if err != nil {
		return nil, nil, err
	}
	tag := new(Tag)
	resp, err := s.client.call(ctx, http.MethodGet, path, nil, tag)
	if err != nil {
		return nil, resp, err
	}
	return tag, resp, nil
}

// CreateTag creates a tag at ref. A non-empty message makes it annotated.
func (s *TagsService) CreateTag(ctx context.Context, pid any, tagName, ref, message string) (*Tag, *Response, error) {
	path, err := tagsPath(pid, "")
	if err != nil {
		return nil, nil, err
	}
	form := NewForm().
		WithRequiredParam("tag_name", tagName).
		WithRequiredParam("ref", ref).
		WithParam("message", message)

	tag := new(Tag)
	resp, err := s.client.call(ctx, http.MethodPost, path, form, tag)
	if err != nil {
		return nil, resp, err
	}
	return tag, resp, nil
}

// DeleteTag deletes a tag.
func (s *TagsService) DeleteTag(ctx context.Context, pid any, tagName string) (*Response, error) {
	if tagName == "" {
		return nil, NewForm().WithRequiredParam("tag_name", tagName).Err()
	}
	path, err := tagsPath(pid, tagName)
	if err != nil {
		return nil, err
	}
	return s.client.call(ctx, http.MethodDelete, path, nil, nil)
}
