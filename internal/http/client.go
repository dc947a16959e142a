// Package http is the shared transport used by the auth and gateway clients:
// JSON POSTs with correlation headers, bounded body reads and optional
// request/response dumps.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodySize limits how much of a response body is read. Record queries
// return full documents so the limit is generous.
const maxBodySize = 10 * 1024 * 1024

// Request is one outbound call.
type Request struct {
	Step        string // operation name, used for logs
	Actor       string
	Method      string
	URL         string
	Token       string // bearer token, optional
	Correlation string // x-correlation header value, optional
	Body        []byte
}

// Response is a fully read reply. Non-2xx statuses are not errors at this
// level; callers decide what a status means.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
	Duration   time.Duration
}

// OK reports whether the status is below 400.
func (r *Response) OK() bool { return r.StatusCode < 400 }

// StatusError describes an unexpected HTTP status.
type StatusError struct {
	Step   string
	Status string
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %s: %s", e.Step, e.Status, truncateBody(e.Body))
}

// Client wraps an *http.Client.
type Client struct {
	client *http.Client
	debug  *DebugLogger
}

// NewClient returns a Client. debug may be nil.
func NewClient(client *http.Client, debug *DebugLogger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{client: client, debug: debug}
}

// Do sends r and reads the whole response body. Only transport failures are
// returned as errors.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodPost
	}
	start := time.Now()

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", r.Step, err)
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	if r.Correlation != "" {
		req.Header.Set("x-correlation", r.Correlation)
	}
	c.debug.LogRequest(r.Actor, r.Step, req, r.Body)

	resp, err := c.client.Do(req)
	if err != nil {
		took := time.Since(start)
		c.debug.LogError(r.Actor, r.Step, err, took)
		return nil, fmt.Errorf("%s: %w", r.Step, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	_, _ = io.Copy(io.Discard, resp.Body) // drain errors are ignorable
	took := time.Since(start)
	if err != nil {
		c.debug.LogError(r.Actor, r.Step, err, took)
		return nil, fmt.Errorf("%s: reading response: %w", r.Step, err)
	}
	c.debug.LogResponse(r.Actor, r.Step, resp, respBody, took)

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       respBody,
		Duration:   took,
	}, nil
}
