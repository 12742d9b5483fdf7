// Package client implements the HTTP-over-unix-socket transport used to
// drive a running cloud-hypervisor's administrative API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/vmlift/vmlift/internal/errx"
)

const defaultRequestTimeout = 30 * time.Second

// Client issues requests against a filesystem-addressed control socket.
// The hostname in request URLs is a placeholder; all connections are
// dialed to the socket path.
type Client struct {
	socketPath string
	httpc      *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithLogger sets the diagnostic sink. Nil falls back to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout caps the total time of a single request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpc.Timeout = d
		}
	}
}

// New creates a client for the control socket at socketPath.
func New(socketPath string, opts ...Option) *Client {
	c := &Client{
		socketPath: socketPath,
		logger:     slog.Default(),
	}
	c.httpc = &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", c.socketPath)
			},
		},
		Timeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SocketPath returns the control socket path this client targets.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Response is a successful API reply. The body may be empty (the
// hypervisor answers most PUTs with 204 No Content).
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errx.Wrap(ErrDecodeResponse, err)
	}
	return nil
}

// JSON attempts to decode the body as a JSON object. When the body is
// not JSON the raw text is still a success outcome; callers fall back
// to Text.
func (r *Response) JSON() (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		return nil, false
	}
	return m, true
}

// Text returns the body as trimmed text.
func (r *Response) Text() string {
	return strings.TrimSpace(string(r.Body))
}

// Request sends one API request. GET requests carry no body; PUT and
// POST marshal a non-nil body as JSON. Any other method is rejected
// without attempting a connection, as is a socket path that does not
// exist on the filesystem yet (avoids conflating "not created" with
// "connection refused").
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodPost:
	default:
		return nil, errx.With(ErrUnsupportedMethod, ": %s", method)
	}

	if _, err := os.Stat(c.socketPath); err != nil {
		c.logger.Error("control socket not available", "socket", c.socketPath)
		return nil, errx.With(ErrSocketNotAvailable, ": %s", c.socketPath)
	}

	var reader io.Reader
	if body != nil && method != http.MethodGet {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errx.Wrap(ErrEncodeBody, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://localhost"+path, reader)
	if err != nil {
		return nil, errx.Wrap(ErrRequestFailed, err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Error("API request error", "method", method, "path", path, "error", err)
		return nil, errx.Wrap(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errx.Wrap(ErrRequestFailed, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		c.logger.Error("API request failed",
			"method", method, "path", path,
			"status", resp.StatusCode, "body", strings.TrimSpace(string(data)))
		return nil, errx.With(ErrRequestFailed, ": %s %s: status %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

// Put issues a PUT request with an optional JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, body)
}

// Post issues a POST request with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body)
}
