package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demeter/internal/models"
)

// fakeAPI accepts the access cookie "fresh" only, which /auth/refresh sets.
type fakeAPI struct {
	refreshes    atomic.Int32
	unauthorized atomic.Int32
	configGets   atomic.Int32
	// gate holds refresh until this many 401s were served.
	gateAt   int32
	gate     chan struct{}
	gateOnce sync.Once
	failNext atomic.Bool
}

func writeEnvelope(w http.ResponseWriter, status, code int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "data": data, "message": message})
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	c, err := r.Cookie("access_token")
	return err == nil && c.Value == "fresh"
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		if f.gate != nil {
			select {
			case <-f.gate:
			case <-time.After(2 * time.Second):
			}
		}
		if f.failNext.Load() {
			writeEnvelope(w, http.StatusUnauthorized, http.StatusUnauthorized, nil, "refresh token revoked")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "fresh", Path: "/api"})
		writeEnvelope(w, http.StatusOK, http.StatusOK, nil, "success")
	})
	mux.HandleFunc("GET /api/projects/all", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			if f.unauthorized.Add(1) == f.gateAt && f.gate != nil {
				f.gateOnce.Do(func() { close(f.gate) })
			}
			writeEnvelope(w, http.StatusUnauthorized, http.StatusUnauthorized, nil, "authentication required")
			return
		}
		writeEnvelope(w, http.StatusOK, http.StatusOK, []models.Project{{ID: 7, ProjectName: "Apollo"}}, "success")
	})
	mux.HandleFunc("GET /api/projects/{id}/task-attribute-configs", func(w http.ResponseWriter, r *http.Request) {
		f.configGets.Add(1)
		writeEnvelope(w, http.StatusOK, http.StatusOK, []models.AttributeConfig{{ID: 1, AttributeName: "f_status", AttributeType: "text"}}, "success")
	})
	mux.HandleFunc("POST /api/projects/{id}/task-attribute-configs", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusCreated, http.StatusOK, models.AttributeConfig{ID: 2}, "success")
	})
	mux.HandleFunc("GET /api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "403":
			writeEnvelope(w, http.StatusForbidden, http.StatusForbidden, nil, "nope")
		case "500":
			writeEnvelope(w, http.StatusInternalServerError, http.StatusInternalServerError, nil, "db down")
		case "1001":
			writeEnvelope(w, http.StatusOK, 1001, map[string]string{"field": "projectName"}, "custom failure")
		default:
			writeEnvelope(w, http.StatusNotFound, http.StatusNotFound, nil, "get project: not found")
		}
	})
	return mux
}

func newFakeClient(t *testing.T, f *fakeAPI) *Client {
	t.Helper()
	ts := httptest.NewServer(f.handler())
	t.Cleanup(ts.Close)
	c, err := New(ts.URL)
	require.NoError(t, err)
	return c
}

func TestConcurrentUnauthorizedRefreshesOnce(t *testing.T) {
	const n = 10
	f := &fakeAPI{gateAt: n, gate: make(chan struct{})}
	c := newFakeClient(t, f)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			projects, err := c.AllProjects(context.Background())
			if err == nil && len(projects) != 1 {
				err = assert.AnError
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.refreshes.Load())
	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
}

func TestRefreshFailureRejectsRequest(t *testing.T) {
	f := &fakeAPI{}
	f.failNext.Store(true)
	c := newFakeClient(t, f)

	_, err := c.AllProjects(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, int32(1), f.refreshes.Load())
}

func TestErrorTaxonomy(t *testing.T) {
	c := newFakeClient(t, &fakeAPI{})
	ctx := context.Background()

	_, err := c.GetProject(ctx, 404)
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.Status)
	assert.Equal(t, "the requested resource was not found", herr.Message)
	assert.Equal(t, "get project: not found", herr.ServerMessage)

	_, err = c.GetProject(ctx, 403)
	assert.True(t, IsStatus(err, http.StatusForbidden))
	_, err = c.GetProject(ctx, 500)
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "server error, please try again later", herr.Message)

	_, err = c.GetProject(ctx, 1001)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1001, apiErr.Code)
	assert.Equal(t, "custom failure", apiErr.Message)
	assert.JSONEq(t, `{"field":"projectName"}`, string(apiErr.Data))
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	c, err := New(base)
	require.NoError(t, err)
	_, err = c.AllProjects(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestAssertOK(t *testing.T) {
	data, err := AssertOK(Envelope[int]{Code: 200, Data: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, data)

	_, err = AssertOK(Envelope[int]{Code: 201, Message: "created"})
	assert.Error(t, err)

	data, err = AssertOK(Envelope[int]{Code: 201, Data: 6}, 200, 201)
	require.NoError(t, err)
	assert.Equal(t, 6, data)
}

func TestAttributeConfigsReadThrough(t *testing.T) {
	f := &fakeAPI{}
	c := newFakeClient(t, f)
	ctx := context.Background()

	for range 3 {
		configs, err := c.AttributeConfigs(ctx, 42)
		require.NoError(t, err)
		require.Len(t, configs, 1)
	}
	assert.Equal(t, int32(1), f.configGets.Load())

	_, err := c.CreateAttributeConfig(ctx, 42, models.CreateAttributeConfigParams{AttributeLabel: "Status", AttributeType: "text"})
	require.NoError(t, err)
	_, err = c.AttributeConfigs(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.configGets.Load())

	// other projects are cached independently
	_, err = c.AttributeConfigs(ctx, 43)
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.configGets.Load())
}

func TestReadOverlappingInvalidationIsNotCached(t *testing.T) {
	c, err := New("http://demeter.test")
	require.NoError(t, err)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)
	go func() {
		v, err := cached(ctx, c, "tasks:1", func(context.Context) (string, error) {
			close(started)
			<-release
			return "before-write", nil
		})
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	c.invalidate("tasks:1")
	close(release)
	assert.Equal(t, "before-write", <-done)

	_, found := c.cache.Get("tasks:1")
	assert.False(t, found, "a read that raced a write must not repopulate the cache")

	v, err := cached(ctx, c, "tasks:1", func(context.Context) (string, error) { return "after-write", nil })
	require.NoError(t, err)
	assert.Equal(t, "after-write", v)
	cachedValue, found := c.cache.Get("tasks:1")
	require.True(t, found)
	assert.Equal(t, "after-write", cachedValue)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080/api")
	assert.Error(t, err)
}
