// Package openphone pulls call records from the OpenPhone API. A call is
// the signal that a caregiver visit happened.
package openphone

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/careops/visitsync/internal/transport"
	"github.com/careops/visitsync/pkg/records"
)

// DefaultBaseURL is the OpenPhone API root.
const DefaultBaseURL = "https://api.openphone.com/v1"

// Client lists call records. Implements reconciler.RecordSource.
type Client struct {
	client  *transport.Client
	baseURL string
	window  time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API root. Tests point this at httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithWindow sets how far back Fetch looks for calls.
func WithWindow(d time.Duration) Option {
	return func(c *Client) { c.window = d }
}

// New creates an OpenPhone client. OpenPhone authenticates with a bare
// API key header, not a bearer token.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		client:  transport.New(records.SystemOpenPhone.String(), &transport.HeaderAuth{Header: "Authorization"}, apiKey),
		baseURL: DefaultBaseURL,
		window:  24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID identifies the system this source pulls from.
func (c *Client) ID() records.SystemID {
	return records.SystemOpenPhone
}

// callsResponse is the OpenPhone list envelope.
type callsResponse struct {
	Data []json.RawMessage `json:"data"`
}

// Fetch returns raw call records since the lookback window.
func (c *Client) Fetch(ctx context.Context) ([]json.RawMessage, error) {
	since := time.Now().Add(-c.window).UTC().Format(time.RFC3339)
	u := c.baseURL + "/calls?" + url.Values{"createdAfter": {since}}.Encode()

	resp, err := c.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}

	var body callsResponse
	if err := c.client.DecodeResponse(resp, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}
