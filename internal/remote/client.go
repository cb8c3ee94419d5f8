// Package remote is the HTTP transport shared by the compile and lint
// service clients.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxBodyBytes bounds how much of a response body is read.
const DefaultMaxBodyBytes = 64 << 20

// maxErrorText bounds the error text kept from a failed response.
const maxErrorText = 512

// Client posts JSON requests to a single service endpoint.
type Client struct {
	service  string
	url      string
	http     *http.Client
	timeout  time.Duration
	maxBytes int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds each request. Zero means no client-side bound beyond
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxBodyBytes limits how many response bytes are accepted.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		c.maxBytes = n
	}
}

// NewClient creates a client for the named service at url.
func NewClient(service, url string, opts ...Option) *Client {
	c := &Client{
		service:  service,
		url:      url,
		http:     http.DefaultClient,
		maxBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Response is a successful service reply.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// PostJSON sends payload as JSON and returns the reply body on a 2xx status.
// Unreachable services yield a *RequestError and non-success statuses a
// *StatusError; both match ErrUnavailable.
func (c *Client) PostJSON(ctx context.Context, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", c.service, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", c.service, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Service: c.service, URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, &RequestError{Service: c.service, URL: c.url, Err: err}
	}
	if int64(len(data)) > c.maxBytes {
		return nil, &RequestError{Service: c.service, URL: c.url, Err: ErrResponseTooLarge}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    errorText(data),
		}
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// PostJSONDecode sends payload and decodes a JSON reply into out.
func (c *Client) PostJSONDecode(ctx context.Context, payload, out any) error {
	resp, err := c.PostJSON(ctx, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.service, err)
	}
	return nil
}

// errorText extracts a readable message from a failed response body.
// Services may answer with {"error": ..., "detail": ...} or plain text.
func errorText(body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail any    `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && (payload.Error != "" || payload.Detail != nil) {
		switch {
		case payload.Error != "" && payload.Detail != nil:
			return truncate(fmt.Sprintf("%s: %v", payload.Error, payload.Detail))
		case payload.Error != "":
			return truncate(payload.Error)
		default:
			return truncate(fmt.Sprint(payload.Detail))
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) > maxErrorText {
		return s[:maxErrorText] + "..."
	}
	return s
}

// IsUnavailable reports whether err is a transient service failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
