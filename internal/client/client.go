package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrNoEndpoint = errors.New("client: endpoint is required")

// Error is returned for every non-2xx response from the backend.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Code)
}

// Client carries the endpoint, project and session shared by all services.
// It replaces a process-wide SDK handle: build one in main, pass it down, Close it on exit.
type Client struct {
	endpoint *url.URL
	project  string
	http     *http.Client
	dialer   *websocket.Dialer

	mu      sync.RWMutex
	session string
	subs    map[*subscription]struct{}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for REST calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithDialer overrides the websocket dialer used by Realtime.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// New builds a client for endpoint (for example http://localhost:8083/v1).
func New(endpoint, project string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrNoEndpoint
	}
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse endpoint: unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		endpoint: u,
		project:  project,
		http:     &http.Client{Timeout: 30 * time.Second},
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		subs:     make(map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Project returns the configured project id.
func (c *Client) Project() string {
	return c.project
}

// SetSession stores the bearer secret used on subsequent calls.
func (c *Client) SetSession(secret string) {
	c.mu.Lock()
	c.session = secret
	c.mu.Unlock()
}

// Session returns the current bearer secret, or "".
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Close drops every open realtime subscription and idle HTTP connection.
func (c *Client) Close() error {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
	c.http.CloseIdleConnections()
	return nil
}

// UniqueID returns a fresh identifier for documents, files and accounts.
func UniqueID() string {
	return uuid.NewString()
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.endpoint
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) callJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.call(ctx, method, path, query, body, contentType, out)
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authorize(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) authorize(h http.Header) {
	if c.project != "" {
		h.Set("X-Project", c.project)
	}
	if secret := c.Session(); secret != "" {
		h.Set("Authorization", "Bearer "+secret)
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Code: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	apiErr.Code = resp.StatusCode
	return apiErr
}
