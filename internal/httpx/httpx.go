// Package httpx provides the shared HTTP client used by outbound adapters.
// Requests get a bounded timeout and a single retry on transient failures
// (network errors and 5xx responses).
package httpx

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// Client wraps an http.Client with a retry-once policy.
type Client struct {
	inner *http.Client
}

// New returns a Client with the given per-attempt timeout. A zero or
// negative timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{inner: &http.Client{Timeout: timeout}}
}

// Do executes the request, retrying once when the attempt fails with a
// network error or a 5xx status. Retrying requires a rewindable body, so
// requests with a body but no GetBody are sent exactly once.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.inner.Do(req)
	if !shouldRetry(resp, err) {
		return resp, err
	}
	if req.Body != nil && req.GetBody == nil {
		return resp, err
	}
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", bodyErr)
		}
		retry.Body = body
	}
	return c.inner.Do(retry)
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError
}
