package reconciler

import (
	"fmt"
	"time"

	"github.com/careops/visitsync/pkg/records"
)

// Result is the outcome of one reconciliation pass.
type Result struct {
	// Counts
	PairsChecked       int
	NewFailures        int
	Duplicates         int
	UnmatchedOpenPhone int
	UnmatchedAxisCare  int

	// Detail
	Failures  []records.ValidationFailure
	Ingestion []records.IngestionFailure
	Unmatched []records.UnmatchedRecord
	Errors    []error

	// Metadata
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Sources   []records.SystemID
}

// NewResult creates a result stamped with the pass start time.
func NewResult() *Result {
	return &Result{StartTime: time.Now()}
}

// Finalize stamps completion and computes the pass duration.
func (r *Result) Finalize() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// IsSuccess returns true when the pass completed without source errors.
// Per-record ingestion failures do not fail a pass.
func (r *Result) IsSuccess() bool {
	return len(r.Errors) == 0
}

// Summary returns a human-readable one-line summary of the pass.
func (r *Result) Summary() string {
	if !r.IsSuccess() {
		return fmt.Sprintf("Reconciliation pass failed with %d errors", len(r.Errors))
	}
	if r.NewFailures == 0 && r.Duplicates == 0 {
		return fmt.Sprintf("Reconciliation pass clean. %d pairs checked, %d unmatched calls, %d unmatched visits.",
			r.PairsChecked, r.UnmatchedOpenPhone, r.UnmatchedAxisCare)
	}
	return fmt.Sprintf("Reconciliation pass completed. %d pairs checked, %d new failures, %d already logged, %d unmatched calls, %d unmatched visits.",
		r.PairsChecked, r.NewFailures, r.Duplicates, r.UnmatchedOpenPhone, r.UnmatchedAxisCare)
}
