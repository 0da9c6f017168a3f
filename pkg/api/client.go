// Package api is a typed client for the panel backend's JSON API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NicolasHaas/gopanel/pkg/logging"
	"github.com/NicolasHaas/gopanel/pkg/version"
)

const (
	DefaultTimeout = 15 * time.Second

	maxBodyBytes = 1 << 20
)

// Endpoint paths.
const (
	PathVerifySession = "/api/verify-session"
	PathHealth        = "/api/test"
	PathTokenLogin    = "/api/token-login"
	PathLogout        = "/api/logout"
	PathCreatePanel   = "/api/create-panel"
)

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client talks to one backend. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the default "gopanel/<version>" User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client for the backend at baseURL (scheme and host, optional
// path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api: base url %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: version.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// call sends a request and decodes the envelope. Transport and decode
// failures are returned wrapped; refusals are returned as *Error.
func (c *Client) call(ctx context.Context, method, path, token string, body any) (json.RawMessage, error) {
	resp, err := c.send(ctx, method, path, token, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("api: %s: read body: %w", path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	switch {
	case !ok:
		// a malformed body does not hide the status
		return nil, &Error{Endpoint: path, StatusCode: resp.StatusCode, Message: env.Message}
	case decodeErr != nil:
		return nil, fmt.Errorf("api: %s: decode response: %w", path, decodeErr)
	case !env.Success:
		return nil, &Error{Endpoint: path, StatusCode: resp.StatusCode, Message: env.Message}
	}
	return env.Data, nil
}

// send issues a request and returns the raw response.
func (c *Client) send(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: %s: encode request: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("api: %s: build request: %w", path, err)
	}

	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "backend request failed", "method", method, "path", path, "err", err)
		return nil, fmt.Errorf("api: %s: %w", path, err)
	}
	slog.DebugContext(ctx, "backend request", "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}
