// Package axiscare talks to the AxisCare scheduling API. AxisCare is the
// system of record for visits and the only system corrections write to.
package axiscare

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/careops/visitsync/internal/transport"
	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/records"
)

// Client lists scheduled visits and applies corrective writes.
// Implements reconciler.RecordSource and corrector.TargetWriter.
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

// WithWindow sets how far back Fetch looks for visits.
func WithWindow(d time.Duration) Option {
	return func(c *Client) { c.window = d }
}

// New creates an AxisCare client. The base URL is derived from the site
// ID, one subdomain per agency.
func New(token, siteID string, opts ...Option) *Client {
	c := &Client{
		client:  transport.New(records.SystemAxisCare.String(), &transport.BearerAuth{}, token),
		baseURL: fmt.Sprintf("https://%s.axiscare.com/api", siteID),
		window:  24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID identifies the system this source pulls from.
func (c *Client) ID() records.SystemID {
	return records.SystemAxisCare
}

// visitsResponse is the AxisCare list envelope.
type visitsResponse struct {
	Visits []json.RawMessage `json:"visits"`
}

// Fetch returns raw scheduled visits inside the lookback window.
func (c *Client) Fetch(ctx context.Context) ([]json.RawMessage, error) {
	since := time.Now().Add(-c.window).UTC().Format("2006-01-02")
	resp, err := c.client.Get(ctx, c.baseURL+"/visits?from="+since)
	if err != nil {
		return nil, err
	}

	var body visitsResponse
	if err := c.client.DecodeResponse(resp, &body); err != nil {
		return nil, err
	}
	return body.Visits, nil
}

// Caregiver is the caregiver record corrective writes target.
type Caregiver struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

// GetCaregiver reads one caregiver record.
func (c *Client) GetCaregiver(ctx context.Context, id string) (Caregiver, error) {
	resp, err := c.client.Get(ctx, c.baseURL+"/caregivers/"+id)
	if err != nil {
		return Caregiver{}, err
	}

	var cg Caregiver
	if err := c.client.DecodeResponse(resp, &cg); err != nil {
		if errors.IsRejection(err) {
			return Caregiver{}, errors.NewNotFoundError("caregiver", id)
		}
		return Caregiver{}, err
	}
	return cg, nil
}

// Update patches fields on a caregiver record. The idempotency key makes
// retried writes safe: AxisCare deduplicates on it, so a timed-out write
// retried later can never apply twice.
func (c *Client) Update(ctx context.Context, subjectID string, fields map[string]string, idempotencyKey string) error {
	resp, err := c.client.Patch(ctx, c.baseURL+"/caregivers/"+subjectID, fields,
		map[string]string{"Idempotency-Key": idempotencyKey})
	if err != nil {
		return err
	}
	return c.client.DecodeResponse(resp, nil)
}

// Verify re-reads the caregiver record and checks the written fields
// stuck. A mismatch on a readable field is a verification failure.
// Fields the caregiver record does not expose (duration lives on the
// visit, not the caregiver) are reported as unverifiable so the caller
// never mistakes a skipped check for a confirmed one.
func (c *Client) Verify(ctx context.Context, subjectID string, fields map[string]string) error {
	cg, err := c.GetCaregiver(ctx, subjectID)
	if err != nil {
		return err
	}

	var unverifiable []string
	for field, want := range fields {
		var got string
		switch field {
		case records.FieldPhone:
			got = cg.Phone
			if records.SamePhone(got, want) {
				continue
			}
		case records.FieldNotes:
			got = cg.Notes
			// Notes updates append; the written value must survive
			// somewhere in the stored notes.
			if strings.Contains(got, want) {
				continue
			}
		default:
			unverifiable = append(unverifiable, field)
			continue
		}
		return errors.NewValidationError(field, got, "post-write verification mismatch")
	}

	if len(unverifiable) > 0 {
		sort.Strings(unverifiable)
		return errors.NewUnverifiableFieldError(records.SystemAxisCare.String(), unverifiable...)
	}
	return nil
}
