// Package transport is the shared HTTP client for the external source
// systems: authentication, common headers, timeouts, and response
// decoding with error classification.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/careops/visitsync/pkg/errors"
)

// DefaultHTTPTimeout bounds every outbound request.
var DefaultHTTPTimeout = 30 * time.Second

// Client provides HTTP client functionality with authentication.
type Client struct {
	http   *http.Client
	auth   Authenticator
	apiKey string
	system string
}

// New creates a transport client for one external system.
func New(system string, auth Authenticator, apiKey string) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	return &Client{
		http:   &http.Client{Timeout: DefaultHTTPTimeout},
		auth:   auth,
		apiKey: apiKey,
		system: system,
	}
}

// SetTimeout overrides the request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// Do performs an HTTP request with authentication and common headers
// applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		c.auth.Apply(req, c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() == context.DeadlineExceeded {
			return nil, errors.NewTimeoutError(req.Method+" "+req.URL.Path, c.http.Timeout.String(), "request deadline exceeded")
		}
		return nil, errors.NewTransientRemoteError(c.system, req.Method+" "+req.URL.Path, err)
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapIO("create", "GET "+url, err)
	}
	return c.Do(req)
}

// Patch performs a PATCH request with a JSON body. Extra headers, like an
// idempotency key, apply before the request goes out.
func (c *Client) Patch(ctx context.Context, url string, body any, headers map[string]string) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.WrapParse("json", "PATCH "+url, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(data))
	if err != nil {
		return nil, errors.WrapIO("create", "PATCH "+url, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(req)
}

// DecodeResponse decodes a JSON response body into out, classifying
// non-2xx statuses as APIErrors. The body is always drained and closed.
func (c *Client) DecodeResponse(resp *http.Response, out any) error {
	defer func() {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := errors.NewAPIError(c.system, resp.StatusCode, string(body))
		apiErr.Endpoint = resp.Request.URL.Path
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WrapParse("json", c.system+" response", err)
	}
	return nil
}
