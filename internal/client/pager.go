package client

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"demeter/internal/models"
)

// PageFetcher loads one page given the merged query parameters.
type PageFetcher[T any] func(ctx context.Context, params url.Values) (models.Page[T], error)

// ListQuery is the paged state of one list view. Each Fetch is tagged with a
// sequence number; only the latest fetch may update the state, older ones
// finish with ErrStale.
type ListQuery[T any] struct {
	fetch PageFetcher[T]

	mu         sync.Mutex
	seq        uint64
	params     url.Values
	items      []T
	pagination models.Pagination
}

// NewListQuery starts on page 1 with pageSize items per page.
func NewListQuery[T any](fetch PageFetcher[T], pageSize int) *ListQuery[T] {
	q := models.PageQuery{PageSize: pageSize}.Normalize()
	return &ListQuery[T]{
		fetch:      fetch,
		params:     url.Values{},
		pagination: models.Pagination{Page: q.Page, PageSize: q.PageSize},
	}
}

// Fetch merges params over the previous ones and loads that page. An empty
// value removes a filter. The server's total replaces the local one.
func (q *ListQuery[T]) Fetch(ctx context.Context, params url.Values) (models.Page[T], error) {
	q.mu.Lock()
	q.seq++
	seq := q.seq
	merged := url.Values{}
	for k, v := range q.params {
		merged[k] = append([]string(nil), v...)
	}
	merged.Set("page", strconv.Itoa(q.pagination.Page))
	merged.Set("pageSize", strconv.Itoa(q.pagination.PageSize))
	for k, v := range params {
		if len(v) == 0 || (len(v) == 1 && v[0] == "") {
			merged.Del(k)
			continue
		}
		merged[k] = append([]string(nil), v...)
	}
	q.mu.Unlock()

	page, err := q.fetch(ctx, merged)

	q.mu.Lock()
	defer q.mu.Unlock()
	if seq != q.seq {
		return models.Page[T]{}, ErrStale
	}
	if err != nil {
		return models.Page[T]{}, err
	}
	q.params = merged
	q.items = page.List
	q.pagination = models.Pagination{Page: page.Page, PageSize: page.PageSize, Total: page.Total}
	return page, nil
}

// Snapshot returns the items and pagination of the latest applied fetch.
func (q *ListQuery[T]) Snapshot() ([]T, models.Pagination) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]T(nil), q.items...), q.pagination
}

// ProjectList is a ListQuery over the project list.
func (c *Client) ProjectList(pageSize int) *ListQuery[models.Project] {
	return NewListQuery(func(ctx context.Context, params url.Values) (models.Page[models.Project], error) {
		var page models.Page[models.Project]
		err := c.get(ctx, "/projects", params, &page)
		return page, err
	}, pageSize)
}

// TaskList is a ListQuery over one project's tasks.
func (c *Client) TaskList(projectID models.ID, pageSize int) *ListQuery[models.ProjectTask] {
	return NewListQuery(func(ctx context.Context, params url.Values) (models.Page[models.ProjectTask], error) {
		var page models.Page[models.ProjectTask]
		err := c.get(ctx, tasksPath(projectID), params, &page)
		return page, err
	}, pageSize)
}
