package records

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/visitsync/pkg/errors"
)

func TestNormalizeOpenPhone(t *testing.T) {
	raw := json.RawMessage(`{
		"callId": "call-101",
		"from": "+15125551234",
		"startedAt": "2025-06-03T09:00:00Z",
		"completedAt": "2025-06-03T09:34:00Z",
		"summary": "Visit went well, client had lunch.",
		"direction": "inbound"
	}`)

	rec, err := Normalize(raw, SystemOpenPhone)
	require.NoError(t, err)

	assert.Equal(t, SystemOpenPhone, rec.System)
	assert.Equal(t, "call-101", rec.ExternalID)
	assert.Equal(t, "1-512-555-1234", rec.SubjectID, "caller number becomes the subject key")
	assert.Equal(t, "1-512-555-1234", rec.Field(FieldPhone))
	assert.Equal(t, "Visit went well, client had lunch.", rec.Field(FieldNotes))
	assert.Equal(t, "34", rec.Field(FieldDuration))
	assert.Equal(t, "inbound", rec.Fields["direction"], "unknown fields ride along")
	assert.Equal(t, time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC), rec.Start)
}

func TestNormalizeAxisCare(t *testing.T) {
	raw := json.RawMessage(`{
		"visitId": "visit-7",
		"caregiverId": "cg-7",
		"phone": "5125551234",
		"visit_start": "2025-06-03T09:00:00Z",
		"visit_end": "2025-06-03T09:30:00Z",
		"duration": 30,
		"notes": "Scheduled lunch visit"
	}`)

	rec, err := Normalize(raw, SystemAxisCare)
	require.NoError(t, err)

	assert.Equal(t, "visit-7", rec.ExternalID)
	assert.Equal(t, "cg-7", rec.SubjectID)
	assert.Equal(t, "1-512-555-1234", rec.Field(FieldPhone))
	assert.Equal(t, "30", rec.Field(FieldDuration))
}

func TestNormalizeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing subject", `{"visitId": "visit-9", "visit_start": "2025-06-03T09:00:00Z"}`},
		{"missing timestamps", `{"visitId": "visit-9", "caregiverId": "cg-1"}`},
		{"missing id", `{"caregiverId": "cg-1", "visit_start": "2025-06-03T09:00:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(json.RawMessage(tt.raw), SystemAxisCare)
			require.Error(t, err)
			assert.True(t, errors.IsMalformed(err))
		})
	}

	_, err := Normalize(json.RawMessage(`not json`), SystemAxisCare)
	require.Error(t, err)
	assert.False(t, errors.IsMalformed(err))

	_, err = Normalize(json.RawMessage(`{}`), SystemID("bogus"))
	require.Error(t, err)
}

func TestNormalizeAll(t *testing.T) {
	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	raws := []json.RawMessage{
		json.RawMessage(`{"callId": "call-1", "from": "5125551234", "startedAt": "2025-06-03T09:00:00Z", "completedAt": "2025-06-03T09:30:00Z"}`),
		json.RawMessage(`{"callId": "call-2"}`),
	}

	recs, failures := NormalizeAll(raws, SystemOpenPhone, now)

	require.Len(t, recs, 1)
	assert.Equal(t, "call-1", recs[0].ExternalID)

	require.Len(t, failures, 1)
	assert.Equal(t, "call-2", failures[0].ExternalID)
	assert.Equal(t, SystemOpenPhone, failures[0].System)
	assert.Equal(t, now, failures[0].DetectedAt)
	assert.NotEmpty(t, failures[0].Reason)
}
