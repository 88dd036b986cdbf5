package filter

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/visitsync/pkg/records"
)

func failure(id, subject, field string, status records.FailureStatus, detected time.Time) records.ValidationFailure {
	return records.ValidationFailure{
		ID: id,
		Pair: &records.MatchedPair{
			AxisCare: records.SourceRecord{System: records.SystemAxisCare, SubjectID: subject},
		},
		Field:      field,
		Status:     status,
		DetectedAt: detected,
	}
}

func TestParseFailureFilter_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/failures", nil)
	f := ParseFailureFilter(r)

	assert.Equal(t, records.FailureStatus(""), f.Status)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	require.NoError(t, f.Validate())
}

func TestParseFailureFilter_Params(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/failures?status=open&subject=CG-1001&field=Duration&limit=10&offset=5", nil)
	f := ParseFailureFilter(r)

	assert.Equal(t, records.StatusOpen, f.Status)
	assert.Equal(t, "CG-1001", f.SubjectID)
	assert.Equal(t, "duration", f.Field)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 5, f.Offset)
	require.NoError(t, f.Validate())
}

func TestParseFailureFilter_LimitCeiling(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/failures?limit=999999", nil)
	f := ParseFailureFilter(r)
	assert.Equal(t, MaxLimit, f.Limit)
}

func TestValidate_RejectsUnknownStatus(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/failures?status=bogus", nil)
	f := ParseFailureFilter(r)
	err := f.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status")
}

func TestApply_StatusAndPaging(t *testing.T) {
	now := time.Now().UTC()
	failures := []records.ValidationFailure{
		failure("f-1", "CG-1001", "duration", records.StatusOpen, now),
		failure("f-2", "CG-1001", "phone", records.StatusCorrected, now),
		failure("f-3", "CG-1002", "duration", records.StatusOpen, now),
		failure("f-4", "CG-1003", "notes", records.StatusOpen, now),
	}

	open := FailureFilter{Status: records.StatusOpen, Limit: DefaultLimit}
	got := open.Apply(failures)
	require.Len(t, got, 3)
	assert.Equal(t, "f-1", got[0].ID)

	paged := FailureFilter{Status: records.StatusOpen, Limit: 1, Offset: 1}
	got = paged.Apply(failures)
	require.Len(t, got, 1)
	assert.Equal(t, "f-3", got[0].ID)

	past := FailureFilter{Offset: 100, Limit: DefaultLimit}
	assert.Empty(t, past.Apply(failures))
}

func TestApply_SubjectAndField(t *testing.T) {
	now := time.Now().UTC()
	failures := []records.ValidationFailure{
		failure("f-1", "CG-1001", "duration", records.StatusOpen, now),
		failure("f-2", "CG-1002", "duration", records.StatusOpen, now),
	}

	f := FailureFilter{SubjectID: "CG-1002", Field: "duration", Limit: DefaultLimit}
	got := f.Apply(failures)
	require.Len(t, got, 1)
	assert.Equal(t, "f-2", got[0].ID)
}

func TestApply_DetectedWindow(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	failures := []records.ValidationFailure{
		failure("f-old", "CG-1001", "duration", records.StatusOpen, base.Add(-time.Hour)),
		failure("f-new", "CG-1001", "duration", records.StatusOpen, base.Add(time.Hour)),
	}

	after := base
	f := FailureFilter{DetectedAfter: &after, Limit: DefaultLimit}
	got := f.Apply(failures)
	require.Len(t, got, 1)
	assert.Equal(t, "f-new", got[0].ID)
}
