package gitlab

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Snippet is a personal snippet.
type Snippet struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	FileName    string        `json:"file_name"`
	Description string        `json:"description"`
	Visibility  Visibility    `json:"visibility"`
	Author      *BasicUser    `json:"author,omitempty"`
	ProjectID   int64         `json:"project_id,omitempty"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty"`
	WebURL      string        `json:"web_url"`
	RawURL      string        `json:"raw_url"`
	Files       []SnippetFile `json:"files,omitempty"`
}

// SnippetFile is one file of a multi-file snippet.
type SnippetFile struct {
	Path   string `json:"path"`
	RawURL string `json:"raw_url"`
}

// SnippetParams are the writable fields of a snippet. Title, FileName and
// Content are required on create.
type SnippetParams struct {
	Title       string
	FileName    string
	Content     string
	Description string
	Visibility  Visibility
}

// SnippetsService handles /snippets.
type SnippetsService struct {
	client *Client
}

func snippetPath(id int64, rest ...string) string {
	p := "snippets/" + strconv.FormatInt(id, 10)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// ListSnippets returns one page of the token owner's snippets.
func (s *SnippetsService) ListSnippets(ctx context.Context, opts *ListOptions) ([]*Snippet, *Response, error) {
	var snippets []*Snippet
	resp, err := s.client.call(ctx, http.MethodGet, "snippets", opts.apply(NewForm()), &snippets)
	if err != nil {
		return nil, resp, err
	}
	return snippets, resp, nil
}

// SnippetsPager walks every snippet of the token owner.
func (s *SnippetsService) SnippetsPager(perPage int) *Pager[*Snippet] {
	return newPager[*Snippet](s.client, "snippets", nil, perPage)
}

// ListPublicSnippets returns one page of all public snippets.
func (s *SnippetsService) ListPublicSnippets(ctx context.Context, opts *ListOptions) ([]*Snippet, *Response, error) {
	var snippets []*Snippet
	resp, err := s.client.call(ctx, http.MethodGet, "snippets/public", opts.apply(NewForm()), &snippets)
	if err != nil {
		return nil, resp, err
	}
	return snippets, resp, nil
}

// GetSnippet returns a snippet without its content.
func (s *SnippetsService) GetSnippet(ctx context.Context, id int64) (*Snippet, *Response, error) {
	snippet := new(Snippet)
	resp, err := s.client.call(ctx, http.MethodGet, snippetPath(id), nil, snippet)
	if err != nil {
		return nil, resp, err
	}
	return snippet, resp, nil
}

// SnippetContent writes the raw content of a snippet to w.
func (s *SnippetsService) SnippetContent(ctx context.Context, id int64, w io.Writer) (*Response, error) {
	req, err := s.client.NewRequest(ctx, http.MethodGet, snippetPath(id, "raw"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain")
	return s.client.Do(req, w)
}

// CreateSnippet creates a snippet. Visibility defaults to private.
func (s *SnippetsService) CreateSnippet(ctx context.Context, params SnippetParams) (*Snippet, *Response, error) {
	visibility := params.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}
	form := NewForm().
		WithRequiredParam("title", params.Title).
		WithRequiredParam("file_name", params.FileName).
		WithRequiredParam("content", params.Content).
		WithParam("description", params.Description).
		WithParam("visibility", visibility)

	snippet := new(Snippet)
	resp, err := s.client.call(ctx, http.MethodPost, "snippets", form, snippet)
	if err != nil {
		return nil, resp, err
	}
	return snippet, resp, nil
}

// UpdateSnippet changes the set fields of a snippet.
func (s *SnippetsService) UpdateSnippet(ctx context.Context, id int64, params SnippetParams) (*Snippet, *Response, error) {
	form := NewForm().
		WithParam("title", params.Title).
		WithParam("file_name", params.FileName).
		WithParam("content", params.Content).
		WithParam("description", params.Description).
		WithParam("visibility", params.Visibility)

	snippet := new(Snippet)
	resp, err := s.client.call(ctx, http.MethodPut, snippetPath(id), form, snippet)
	if err != nil {
		return nil, resp, err
	}
	return snippet, resp, nil
}

// DeleteSnippet deletes a snippet.
func (s *SnippetsService) DeleteSnippet(ctx context.Context, id int64) (*Response, error) {
	return s.client.call(ctx, http.MethodDelete, snippetPath(id), nil, nil)
}
