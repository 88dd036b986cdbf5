package reconciler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/visitsync/pkg/records"
)

func pairOf(callMin, visitMin int, callFields, visitFields map[string]string) MatchResult {
	day := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	c := call("call-1", "S1", day, callMin)
	v := visit("visit-1", "S1", day, visitMin)
	for k, val := range callFields {
		c.Fields[k] = val
	}
	for k, val := range visitFields {
		v.Fields[k] = val
	}
	return MatchResult{Pairs: []records.MatchedPair{{OpenPhone: c, AxisCare: v, Confidence: 1}}}
}

func TestValidateDurationWithinTolerance(t *testing.T) {
	rules := DefaultRules()
	rules.DurationTolerance = 5 * time.Minute
	v := NewValidator(rules)

	// 34 against 30 scheduled minutes passes a 5 minute band.
	failures := v.Validate(pairOf(34, 30, nil, nil))
	assert.Empty(t, failures)
}

func TestValidateDurationBeyondTolerance(t *testing.T) {
	v := NewValidator(DefaultRules()) // duration band is 2 minutes

	failures := v.Validate(pairOf(34, 30, nil, nil))
	require.Len(t, failures, 1)
	f := failures[0]
	assert.Equal(t, records.FieldDuration, f.Field)
	assert.Equal(t, "30", f.Expected, "expected carries the scheduled value")
	assert.Equal(t, "34", f.Actual, "actual carries the call value")
	assert.Equal(t, records.StatusOpen, f.Status)
}

func TestValidatePhoneMismatch(t *testing.T) {
	v := NewValidator(DefaultRules())

	failures := v.Validate(pairOf(30, 30,
		map[string]string{records.FieldPhone: "(512) 555-9999"},
		map[string]string{records.FieldPhone: "15125551234"},
	))
	require.Len(t, failures, 1)
	assert.Equal(t, records.FieldPhone, failures[0].Field)
	assert.Equal(t, "1-512-555-1234", failures[0].Expected)
	assert.Equal(t, "1-512-555-9999", failures[0].Actual)

	// Same line in different formats is not a mismatch.
	failures = v.Validate(pairOf(30, 30,
		map[string]string{records.FieldPhone: "(512) 555-1234"},
		map[string]string{records.FieldPhone: "15125551234"},
	))
	assert.Empty(t, failures)
}

func TestValidateNotesLength(t *testing.T) {
	v := NewValidator(DefaultRules())

	failures := v.Validate(pairOf(30, 30,
		map[string]string{records.FieldNotes: "too short"},
		nil,
	))
	require.Len(t, failures, 1)
	assert.Equal(t, records.FieldNotes, failures[0].Field)
	assert.Equal(t, records.KindNotesLength, failures[0].Kind,
		"length failures are tagged; Actual is policy text, not a record value")
	assert.Equal(t, "9 characters", failures[0].Actual)

	failures = v.Validate(pairOf(30, 30,
		map[string]string{records.FieldNotes: strings.Repeat("x", 501)},
		nil,
	))
	require.Len(t, failures, 1)
	assert.Equal(t, records.FieldNotes, failures[0].Field)
	assert.Equal(t, records.KindNotesLength, failures[0].Kind)

	failures = v.Validate(pairOf(30, 30,
		map[string]string{records.FieldNotes: "A perfectly reasonable visit summary."},
		nil,
	))
	assert.Empty(t, failures)
}

func TestValidateNotesFoldedComparison(t *testing.T) {
	v := NewValidator(DefaultRules())

	// Case and padding differences are not mismatches.
	failures := v.Validate(pairOf(30, 30,
		map[string]string{records.FieldNotes: "  CLIENT HAD LUNCH AND MEDICATION.  "},
		map[string]string{records.FieldNotes: "Client had lunch and medication."},
	))
	assert.Empty(t, failures)

	// A summary already folded into the visit notes is not a mismatch.
	failures = v.Validate(pairOf(30, 30,
		map[string]string{records.FieldNotes: "client had lunch"},
		map[string]string{records.FieldNotes: "Arrived 10:00. Client had lunch and rested."},
	))
	assert.Empty(t, failures)

	// Genuinely different content is.
	failures = v.Validate(pairOf(30, 30,
		map[string]string{records.FieldNotes: "Helped with groceries today"},
		map[string]string{records.FieldNotes: "Scheduled medication reminder"},
	))
	require.Len(t, failures, 1)
	assert.Equal(t, records.FieldNotes, failures[0].Field)
	assert.Equal(t, records.KindValueMismatch, failures[0].Kind,
		"content mismatches carry the real summary in Actual")
}

func TestValidateNoCorrespondingVisit(t *testing.T) {
	v := NewValidator(DefaultRules())
	day := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

	res := MatchResult{
		UnmatchedOpenPhone: []records.UnmatchedRecord{{
			Record: call("call-9", "S1", day, 30),
			Reason: "no corresponding visit",
		}},
	}

	failures := v.Validate(res)
	require.Len(t, failures, 1)
	f := failures[0]
	assert.True(t, f.NoMatch())
	assert.Empty(t, f.Field)
	assert.Equal(t, "scheduled visit", f.Expected)
	assert.Equal(t, "none", f.Actual)
}

func TestValidateUnmatchedVisitFlag(t *testing.T) {
	day := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	res := MatchResult{
		UnmatchedAxisCare: []records.UnmatchedRecord{{
			Record: visit("visit-9", "S1", day, 30),
			Reason: "no call during visit window",
		}},
	}

	// Off by default: reported in the pass summary, not a failure.
	v := NewValidator(DefaultRules())
	assert.Empty(t, v.Validate(res))

	rules := DefaultRules()
	rules.UnmatchedVisitIsFailure = true
	v = NewValidator(rules)
	assert.Len(t, v.Validate(res), 1)
}

func TestValidateDeterministicAndIdempotent(t *testing.T) {
	v := NewValidator(DefaultRules())
	res := pairOf(40, 30,
		map[string]string{records.FieldPhone: "5125559999"},
		map[string]string{records.FieldPhone: "5125551234"},
	)

	first := v.Validate(res)
	second := v.Validate(res)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "re-detection must hash to the same ID")
		assert.Equal(t, first[i].Field, second[i].Field)
	}

	// Stable order: sorted by subject, then field.
	require.Len(t, first, 2)
	assert.Equal(t, records.FieldDuration, first[0].Field)
	assert.Equal(t, records.FieldPhone, first[1].Field)
}
