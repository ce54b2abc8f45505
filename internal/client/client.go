// Package client is a typed Go client for the demeter API. It keeps the
// session in a cookie jar and transparently refreshes it on 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultTimeout  = 30 * time.Second
	defaultCacheTTL = 5 * time.Minute
)

// Client talks to one demeter server.
type Client struct {
	base    *url.URL
	http    *http.Client
	session *Session
	cache   *gocache.Cache
	logger  *slog.Logger

	// cacheGen counts invalidations; a read that overlaps one is not stored.
	cacheMu  sync.Mutex
	cacheGen uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithCacheTTL sets how long read-through entries live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = gocache.New(ttl, 2*ttl) }
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		base:   base,
		cache:  gocache.New(defaultCacheTTL, 2*defaultCacheTTL),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	c.session = NewSession(c.refresh)
	return c, nil
}

// Session exposes the refresh coordinator.
func (c *Client) Session() *Session {
	return c.session
}

// InvalidateCache drops every cached read.
func (c *Client) InvalidateCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cacheGen++
	c.cache.Flush()
}

// invalidate drops the cached reads under keys.
func (c *Client) invalidate(keys ...string) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cacheGen++
	for _, key := range keys {
		c.cache.Delete(key)
	}
}

// request describes one API call. Paths are relative to /api.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// okCodes are the accepted envelope codes, 200 when empty.
	okCodes []int
	// noRefresh disables 401 handling, for the credential endpoints.
	noRefresh bool
}

// call runs req and decodes the envelope data into out, which may be nil.
func (c *Client) call(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		payload = data
	}

	retried := false
	for {
		epoch := c.session.Epoch()
		status, raw, err := c.send(ctx, req, payload)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized && !req.noRefresh {
			cause := newHTTPError(status, envelopeMessage(raw))
			if err := c.session.OnUnauthorized(ctx, epoch, retried, cause); err != nil {
				return err
			}
			c.logger.Debug("replaying request after refresh", "method", req.method, "path", req.path)
			retried = true
			continue
		}
		return decode(status, raw, req.okCodes, out)
	}
}

func (c *Client) send(ctx context.Context, req request, payload []byte) (int, []byte, error) {
	u := c.base.JoinPath("api", req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	return resp.StatusCode, raw, nil
}

func decode(status int, raw []byte, okCodes []int, out any) error {
	if status < 200 || status > 299 {
		return newHTTPError(status, envelopeMessage(raw))
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	data, err := AssertOK(env, okCodes...)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func envelopeMessage(raw []byte) string {
	var env Envelope[json.RawMessage]
	if json.Unmarshal(raw, &env) != nil {
		return ""
	}
	return env.Message
}

// refresh renews the session cookies. It never goes through the 401 path.
func (c *Client) refresh(ctx context.Context) error {
	c.logger.Debug("refreshing session")
	return c.call(ctx, request{method: http.MethodPost, path: "/auth/refresh", noRefresh: true}, nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, request{method: http.MethodPost, path: path, body: body}, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, request{method: http.MethodPut, path: path, body: body}, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.call(ctx, request{method: http.MethodDelete, path: path}, nil)
}

// cached reads key through the cache, loading it on a miss.
func cached[T any](ctx context.Context, c *Client, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	c.cacheMu.Lock()
	gen := c.cacheGen
	c.cacheMu.Unlock()

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.cacheMu.Lock()
	if c.cacheGen == gen {
		c.cache.SetDefault(key, v)
	}
	c.cacheMu.Unlock()
	return v, nil
}
