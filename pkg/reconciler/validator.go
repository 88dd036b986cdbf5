package reconciler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/careops/visitsync/pkg/records"
)

// Validator compares matched pairs field by field and emits validation
// failures. Deterministic and idempotent: the same input yields the same
// failure IDs in the same order, so re-running a pass never duplicates.
type Validator struct {
	rules Rules
	now   func() time.Time
}

// NewValidator returns a validator using the given rules. The clock is
// injectable for tests via WithClock on the reconciler, or SetClock here.
func NewValidator(rules Rules) *Validator {
	return &Validator{rules: rules, now: time.Now}
}

// SetClock overrides the detection timestamp source.
func (v *Validator) SetClock(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// Validate checks every matched pair and unmatched call. Expected carries
// the AxisCare value, Actual the OpenPhone value. Output is sorted by
// subject, then field, then failure ID.
func (v *Validator) Validate(res MatchResult) []records.ValidationFailure {
	detected := v.now()
	var failures []records.ValidationFailure

	for i := range res.Pairs {
		failures = append(failures, v.validatePair(&res.Pairs[i], detected)...)
	}

	for _, um := range res.UnmatchedOpenPhone {
		failures = append(failures, records.ValidationFailure{
			ID:         records.NewFailureID(um.Record.ExternalID, "", ""),
			Unmatched:  &um,
			Expected:   "scheduled visit",
			Actual:     "none",
			DetectedAt: detected,
			Status:     records.StatusOpen,
		})
	}

	if v.rules.UnmatchedVisitIsFailure {
		for _, um := range res.UnmatchedAxisCare {
			failures = append(failures, records.ValidationFailure{
				ID:         records.NewFailureID("", um.Record.ExternalID, ""),
				Unmatched:  &um,
				Expected:   "call during visit window",
				Actual:     "none",
				DetectedAt: detected,
				Status:     records.StatusOpen,
			})
		}
	}

	sort.Slice(failures, func(i, j int) bool {
		if a, b := failures[i].SubjectID(), failures[j].SubjectID(); a != b {
			return a < b
		}
		if failures[i].Field != failures[j].Field {
			return failures[i].Field < failures[j].Field
		}
		return failures[i].ID < failures[j].ID
	})
	return failures
}

func (v *Validator) validatePair(pair *records.MatchedPair, detected time.Time) []records.ValidationFailure {
	var failures []records.ValidationFailure

	failKind := func(kind records.FailureKind, field, expected, actual string) {
		failures = append(failures, records.ValidationFailure{
			ID:         records.NewFailureID(pair.OpenPhone.ExternalID, pair.AxisCare.ExternalID, field),
			Pair:       pair,
			Field:      field,
			Kind:       kind,
			Expected:   expected,
			Actual:     actual,
			DetectedAt: detected,
			Status:     records.StatusOpen,
		})
	}
	fail := func(field, expected, actual string) {
		failKind(records.KindValueMismatch, field, expected, actual)
	}

	// Duration: tolerance band, not exact equality. Call minutes against
	// scheduled minutes.
	callMin := pair.OpenPhone.Minutes()
	visitMin := pair.AxisCare.Minutes()
	if visitMin > 0 || callMin > 0 {
		diff := time.Duration(callMin-visitMin) * time.Minute
		if absDuration(diff) > v.rules.DurationTolerance {
			fail(records.FieldDuration, strconv.Itoa(visitMin), strconv.Itoa(callMin))
		}
	}

	// Phone: normalized equality, only when both sides carry one.
	callPhone := pair.OpenPhone.Field(records.FieldPhone)
	visitPhone := pair.AxisCare.Field(records.FieldPhone)
	if callPhone != "" && visitPhone != "" && !records.SamePhone(callPhone, visitPhone) {
		fail(records.FieldPhone, records.FormatPhone(visitPhone), records.FormatPhone(callPhone))
	}

	// Notes: call summaries must fall inside the configured length band.
	// Content comparison is folded and trimmed so case and padding never
	// raise a failure on free text.
	notes := pair.OpenPhone.Field(records.FieldNotes)
	visitNotes := pair.AxisCare.Field(records.FieldNotes)
	switch {
	case notes != "" && (len(notes) < v.rules.NotesMinLen || len(notes) > v.rules.NotesMaxLen):
		// Tagged so the corrector knows Actual is policy text, not a
		// record value it can write back.
		failKind(records.KindNotesLength, records.FieldNotes,
			fmt.Sprintf("summary between %d and %d characters", v.rules.NotesMinLen, v.rules.NotesMaxLen),
			fmt.Sprintf("%d characters", len(notes)))
	case notes != "" && visitNotes != "" && !foldEqual(notes, visitNotes) && !strings.Contains(foldText(visitNotes), foldText(notes)):
		fail(records.FieldNotes, visitNotes, notes)
	}

	return failures
}

var folder = cases.Fold()

func foldText(s string) string {
	return folder.String(strings.TrimSpace(s))
}

func foldEqual(a, b string) bool {
	return foldText(a) == foldText(b)
}
