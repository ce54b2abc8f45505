package client

import (
	"context"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demeter/internal/models"
)

func TestListQueryDiscardsStaleResults(t *testing.T) {
	slow := make(chan struct{})
	q := NewListQuery(func(ctx context.Context, params url.Values) (models.Page[string], error) {
		page, _ := strconv.Atoi(params.Get("page"))
		if page == 1 {
			<-slow
		}
		return models.Page[string]{List: []string{"page-" + params.Get("page")}, Total: 42, Page: page, PageSize: 10}, nil
	}, 10)

	first := make(chan error, 1)
	go func() {
		_, err := q.Fetch(context.Background(), nil)
		first <- err
	}()
	waitFor(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.seq == 1
	})

	page, err := q.Fetch(context.Background(), url.Values{"page": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)

	close(slow)
	assert.ErrorIs(t, <-first, ErrStale)

	items, pagination := q.Snapshot()
	assert.Equal(t, []string{"page-2"}, items)
	assert.Equal(t, models.Pagination{Page: 2, PageSize: 10, Total: 42}, pagination)
}

func TestListQueryMergesParams(t *testing.T) {
	var seen []url.Values
	q := NewListQuery(func(ctx context.Context, params url.Values) (models.Page[int], error) {
		seen = append(seen, params)
		page, _ := strconv.Atoi(params.Get("page"))
		size, _ := strconv.Atoi(params.Get("pageSize"))
		return models.Page[int]{Page: page, PageSize: size, Total: 3}, nil
	}, 0)
	ctx := context.Background()

	_, err := q.Fetch(ctx, url.Values{"projectName": {"apo"}})
	require.NoError(t, err)
	_, err = q.Fetch(ctx, url.Values{"page": {"2"}})
	require.NoError(t, err)
	_, err = q.Fetch(ctx, url.Values{"projectName": {""}})
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, "1", seen[0].Get("page"))
	assert.Equal(t, strconv.Itoa(models.DefaultPageSize), seen[0].Get("pageSize"))
	assert.Equal(t, "apo", seen[1].Get("projectName"))
	assert.Equal(t, "2", seen[1].Get("page"))
	assert.False(t, seen[2].Has("projectName"))
	assert.Equal(t, "2", seen[2].Get("page"))
}
