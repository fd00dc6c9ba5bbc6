package gitlab

import (
	"context"
	"iter"
	"net/http"
)

// DefaultPerPage is the page size used by pagers when none is given.
const DefaultPerPage = 96

// Pager walks every page of a list endpoint. It is not safe for concurrent use.
type Pager[T any] struct {
	client  *Client
	path    string
	form    *Form
	perPage int

	next       int // page to fetch next; 0 once the last page was read
	totalItems int
	totalPages int
}

func newPager[T any](c *Client, path string, form *Form, perPage int) *Pager[T] {
	if form == nil {
		form = NewForm()
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Pager[T]{client: c, path: path, form: form, perPage: perPage, next: 1}
}

// HasNext reports whether another page can be fetched.
func (p *Pager[T]) HasNext() bool {
	return p.next > 0
}

// TotalItems is the item count reported by the last response, or 0 when
// GitLab omits it (large collections).
func (p *Pager[T]) TotalItems() int {
	return p.totalItems
}

// TotalPages is the page count reported by the last response.
func (p *Pager[T]) TotalPages() int {
	return p.totalPages
}

// Next fetches the next page. It returns nil items once every page was read.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.next == 0 {
		return nil, nil
	}

	form := p.form.clone().
		WithParam(PageParam, p.next).
		WithParam(PerPageParam, p.perPage)

	var items []T
	resp, err := p.client.call(ctx, http.MethodGet, p.path, form, &items)
	if err != nil {
		return nil, err
	}

	p.totalItems = resp.TotalItems
	p.totalPages = resp.TotalPages
	p.next = resp.NextPage
	return items, nil
}

// All fetches every remaining page.
func (p *Pager[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for p.HasNext() {
		items, err := p.Next(ctx)
		if err != nil {
			return all, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// Items iterates over every remaining item, fetching pages lazily. Iteration
// stops at the first error, which is yielded with a zero item.
func (p *Pager[T]) Items(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for p.HasNext() {
			items, err := p.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}
