// Package filter provides query parameter parsing and filtering for API endpoints.
package filter

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/careops/visitsync/pkg/records"
)

// DefaultLimit caps list responses when no limit is requested.
const DefaultLimit = 100

// MaxLimit is the hard ceiling on requested page sizes.
const MaxLimit = 1000

// FailureFilter contains filter criteria for validation failures.
type FailureFilter struct {
	Status    records.FailureStatus
	SubjectID string
	Field     string
	System    records.SystemID

	// Date filters
	DetectedAfter  *time.Time
	DetectedBefore *time.Time

	// Pagination
	Limit  int
	Offset int
}

// ParseFailureFilter extracts failure filter parameters from an HTTP request.
// Unknown statuses and systems are passed through so handlers can reject them.
func ParseFailureFilter(r *http.Request) FailureFilter {
	q := r.URL.Query()

	f := FailureFilter{
		Status:    records.FailureStatus(strings.ToUpper(q.Get("status"))),
		SubjectID: q.Get("subject"),
		Field:     strings.ToLower(q.Get("field")),
		System:    records.SystemID(strings.ToLower(q.Get("system"))),
		Limit:     DefaultLimit,
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}

	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.Offset = n
		}
	}

	if v := q.Get("detected_after"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.DetectedAfter = &t
		}
	}
	if v := q.Get("detected_before"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.DetectedBefore = &t
		}
	}

	return f
}

// Validate reports whether the parsed filter values are usable.
func (f FailureFilter) Validate() error {
	if f.Status != "" && !f.Status.IsValid() {
		return &InvalidFilterError{Param: "status", Value: string(f.Status)}
	}
	if f.System != "" && !f.System.IsValid() {
		return &InvalidFilterError{Param: "system", Value: string(f.System)}
	}
	return nil
}

// Matches reports whether a failure satisfies the non-pagination criteria.
func (f FailureFilter) Matches(v records.ValidationFailure) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.SubjectID != "" && v.SubjectID() != f.SubjectID {
		return false
	}
	if f.Field != "" && v.Field != f.Field {
		return false
	}
	if f.DetectedAfter != nil && !v.DetectedAt.After(*f.DetectedAfter) {
		return false
	}
	if f.DetectedBefore != nil && !v.DetectedAt.Before(*f.DetectedBefore) {
		return false
	}
	return true
}

// Apply filters and pages a failure list, preserving input order.
func (f FailureFilter) Apply(failures []records.ValidationFailure) []records.ValidationFailure {
	matched := make([]records.ValidationFailure, 0, len(failures))
	for _, v := range failures {
		if f.Matches(v) {
			matched = append(matched, v)
		}
	}

	if f.Offset >= len(matched) {
		return []records.ValidationFailure{}
	}
	matched = matched[f.Offset:]

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}

// InvalidFilterError reports an unusable query parameter value.
type InvalidFilterError struct {
	Param string
	Value string
}

func (e *InvalidFilterError) Error() string {
	return "invalid " + e.Param + " filter: " + e.Value
}
