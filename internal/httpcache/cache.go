// Package httpcache provides a best-effort, in-memory response cache that
// wraps any HTTP client used by the provider adapters.
package httpcache

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTPClient is the subset of *http.Client the adapters depend on.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type entry struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

// Client caches successful GET responses by URL for a fixed TTL.
// Adapters see the same responses with or without it.
type Client struct {
	next HTTPClient
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// Option configures the Client.
type Option func(*Client)

// WithClock overrides the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New wraps next. A ttl of zero or less disables caching and returns next
// unchanged.
func New(next HTTPClient, ttl time.Duration, opts ...Option) HTTPClient {
	if ttl <= 0 {
		return next
	}
	c := &Client{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do serves GET requests from the cache when a fresh entry exists.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return c.next.Do(req)
	}
	key := req.URL.String()

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().After(e.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		return e.response(req), nil
	}

	resp, err := c.next.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	e = entry{
		status:  resp.StatusCode,
		header:  resp.Header.Clone(),
		body:    body,
		expires: c.now().Add(c.ttl),
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	return e.response(req), nil
}

// Len returns the number of cached responses, expired ones included.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (e entry) response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        http.StatusText(e.status),
		StatusCode:    e.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.body)),
		ContentLength: int64(len(e.body)),
		Request:       req,
	}
}
