// Package backend is the HTTP collaborator behind every network action: it
// builds requests, attaches bearer and request-id headers, and separates
// transport failures from HTTP answers. It never interprets status codes.
package backend

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
	"time"

	"github.com/MrEthical07/goEventHub/bearer"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

var (
	// ErrTransport marks failures where no HTTP answer was obtained.
	ErrTransport = errors.New("transport failure")
	// ErrDecode marks an HTTP answer whose body is not the expected JSON.
	ErrDecode = errors.New("response decode failure")
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	APIPrefix  string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Client issues JSON requests against one backend.
type Client struct {
	base      string
	timeout   time.Duration
	userAgent string
	http      *http.Client
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("backend base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("backend base url must be absolute")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:      strings.TrimRight(u.String(), "/") + strings.TrimRight(cfg.APIPrefix, "/"),
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		http:      hc,
	}, nil
}

// Request describes one call. Body, when non-nil, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Bearer string
	// SendBearer attaches the Authorization header even when Bearer is empty.
	SendBearer bool
	Body       any
	// RequestID overrides the generated correlation id.
	RequestID string
}

// Response is a completed HTTP exchange.
type Response struct {
	Status    int
	Body      []byte
	RequestID string
}

// OK reports whether the backend answered 200.
func (r Response) OK() bool {
	return r.Status == http.StatusOK
}

// Decode unmarshals the body into v.
func (r Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("%w: empty body", ErrDecode)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// URL returns the absolute URL for path.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base + path
}

// Do performs req. The returned Response always carries the request id; a
// non-nil error wraps ErrTransport and means no status was obtained.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	out := Response{RequestID: req.RequestID}
	if out.RequestID == "" {
		out.RequestID = uuid.NewString()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return out, fmt.Errorf("%w: encode body: %v", ErrTransport, err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.URL(req.Path), body)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, out.RequestID)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.Bearer != "" || req.SendBearer {
		httpReq.Header.Set("Authorization", bearer.Header(req.Bearer))
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return out, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	out.Status = resp.StatusCode
	out.Body = data
	return out, nil
}
