// Package records defines the canonical data model shared by the
// reconciliation pipeline: normalized source records from OpenPhone and
// AxisCare, matched pairs, validation failures, and correction actions.
package records

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strconv"
	"time"
)

// SystemID identifies one of the two external source systems.
type SystemID string

// Known source systems.
const (
	// SystemOpenPhone is the call/communication log system. A call record
	// is treated as a proxy for a caregiver visit occurring.
	SystemOpenPhone SystemID = "openphone"

	// SystemAxisCare is the caregiver scheduling system and the system of
	// record for visits.
	SystemAxisCare SystemID = "axiscare"
)

// String returns the string representation of a system ID.
func (s SystemID) String() string {
	return string(s)
}

// IsValid returns true if the ID is one of the defined systems.
func (s SystemID) IsValid() bool {
	return slices.Contains(Systems(), s)
}

// Systems returns all known source systems.
func Systems() []SystemID {
	return []SystemID{SystemOpenPhone, SystemAxisCare}
}

// Canonical field names compared by the validator. Source-specific names
// are mapped onto these during normalization; anything else rides along in
// SourceRecord.Fields uncompared.
const (
	FieldDuration = "duration"
	FieldSubject  = "subject"
	FieldNotes    = "notes"
	FieldPhone    = "phone"
)

// SourceRecord is a normalized record from either system. Immutable once
// ingested; the matcher and validator only ever read it.
type SourceRecord struct {
	System     SystemID          `json:"system"`
	ExternalID string            `json:"external_id"`
	SubjectID  string            `json:"subject_id"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	Fields     map[string]string `json:"fields,omitempty"`
	Raw        json.RawMessage   `json:"-"`
}

// Duration returns the record's window length. Zero when either timestamp
// is missing.
func (r SourceRecord) Duration() time.Duration {
	if r.Start.IsZero() || r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Minutes returns the record's duration in whole minutes, preferring an
// explicit duration field over the derived window length.
func (r SourceRecord) Minutes() int {
	if v, ok := r.Fields[FieldDuration]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return int(r.Duration().Round(time.Minute) / time.Minute)
}

// Field returns a canonical field value, or "" when absent.
func (r SourceRecord) Field(name string) string {
	return r.Fields[name]
}

// Key derives the match key: subject plus the day bucket of the record's
// start time (UTC).
func (r SourceRecord) Key() MatchKey {
	return MatchKey{
		SubjectID: r.SubjectID,
		Day:       r.Start.UTC().Format("2006-01-02"),
	}
}

// MatchKey pairs records across the two systems.
type MatchKey struct {
	SubjectID string `json:"subject_id"`
	Day       string `json:"day"`
}

// MatchedPair is an OpenPhone call paired with the AxisCare visit it fell
// within. Confidence is the fraction of the call window covered by the
// visit window, in [0, 1].
type MatchedPair struct {
	OpenPhone  SourceRecord `json:"openphone"`
	AxisCare   SourceRecord `json:"axiscare"`
	Confidence float64      `json:"confidence"`
}

// UnmatchedRecord is a record on either side that found no counterpart.
// Reported, never silently discarded.
type UnmatchedRecord struct {
	Record SourceRecord `json:"record"`
	Reason string       `json:"reason"`
}

// FailureKind distinguishes failure shapes that share a field name.
type FailureKind string

// Failure kinds. The zero value is the common case: the two systems
// disagree on a field value and the AxisCare value is authoritative.
const (
	KindValueMismatch FailureKind = ""

	// KindNotesLength flags a call summary outside the configured length
	// band. Expected and Actual hold policy text, not record values, so
	// there is nothing corrective to write.
	KindNotesLength FailureKind = "notes_length"
)

// FailureStatus is the lifecycle state of a validation failure.
type FailureStatus string

// Failure lifecycle states. CORRECTING is the short-lived claim a
// correction attempt holds so two concurrent corrections cannot both
// observe OPEN.
const (
	StatusOpen       FailureStatus = "OPEN"
	StatusCorrecting FailureStatus = "CORRECTING"
	StatusCorrected  FailureStatus = "CORRECTED"
	StatusIgnored    FailureStatus = "IGNORED"
)

// IsValid returns true if the status is one of the defined states.
func (s FailureStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusCorrecting, StatusCorrected, StatusIgnored:
		return true
	}
	return false
}

// Terminal returns true for states that are never reopened automatically.
func (s FailureStatus) Terminal() bool {
	return s == StatusCorrected || s == StatusIgnored
}

// ValidationFailure is a detected discrepancy: either a field mismatch on
// a matched pair, or an OpenPhone call with no corresponding visit.
// Exactly one of Pair and Unmatched is set.
type ValidationFailure struct {
	ID         string           `json:"id"`
	Pair       *MatchedPair     `json:"pair,omitempty"`
	Unmatched  *UnmatchedRecord `json:"unmatched,omitempty"`
	Field      string           `json:"field,omitempty"`
	Kind       FailureKind      `json:"kind,omitempty"`
	Expected   string           `json:"expected"`
	Actual     string           `json:"actual"`
	DetectedAt time.Time        `json:"detected_at"`
	Status     FailureStatus    `json:"status"`
}

// NoMatch returns true for "no corresponding visit" failures.
func (f ValidationFailure) NoMatch() bool {
	return f.Unmatched != nil
}

// SubjectID returns the caregiver subject the failure concerns.
func (f ValidationFailure) SubjectID() string {
	if f.Pair != nil {
		return f.Pair.AxisCare.SubjectID
	}
	if f.Unmatched != nil {
		return f.Unmatched.Record.SubjectID
	}
	return ""
}

// CallID returns the OpenPhone record ID behind the failure, if any.
func (f ValidationFailure) CallID() string {
	if f.Pair != nil {
		return f.Pair.OpenPhone.ExternalID
	}
	if f.Unmatched != nil && f.Unmatched.Record.System == SystemOpenPhone {
		return f.Unmatched.Record.ExternalID
	}
	return ""
}

// NewFailureID derives the content-stable failure identifier from the pair
// identity and field name. Re-detecting the same discrepancy on a later
// pass yields the same ID, which the failure log relies on for dedup.
func NewFailureID(openPhoneID, axisCareID, field string) string {
	h := sha256.Sum256([]byte("op:" + openPhoneID + "|ax:" + axisCareID + "|field:" + field))
	return "f-" + hex.EncodeToString(h[:12])
}

// CorrectionOutcome is the result of one correction attempt.
type CorrectionOutcome string

// Correction outcomes. FAILED attempts are retryable; REJECTED attempts
// require manual intervention.
const (
	OutcomeApplied  CorrectionOutcome = "APPLIED"
	OutcomeRejected CorrectionOutcome = "REJECTED"
	OutcomeFailed   CorrectionOutcome = "FAILED"
)

// CorrectionAction is the immutable audit record of one corrective write
// attempt against the target system.
type CorrectionAction struct {
	ID           string            `json:"id"`
	FailureID    string            `json:"failure_id"`
	TargetSystem SystemID          `json:"target_system"`
	TargetField  string            `json:"target_field,omitempty"`
	NewValue     string            `json:"new_value,omitempty"`
	AppliedAt    time.Time         `json:"applied_at"`
	Outcome      CorrectionOutcome `json:"outcome"`
	AuditNote    string            `json:"audit_note,omitempty"`
}

// IngestionFailure records a raw payload that could not be normalized.
// Kept separate from ValidationFailure so bad input never masquerades as a
// detected discrepancy.
type IngestionFailure struct {
	System     SystemID  `json:"system"`
	ExternalID string    `json:"external_id,omitempty"`
	Reason     string    `json:"reason"`
	DetectedAt time.Time `json:"detected_at"`
}
