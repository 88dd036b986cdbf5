// Package reconciler pairs caregiver call records with scheduled visits,
// validates the pairs against configurable rules, and records the
// resulting validation failures. It orchestrates one reconciliation pass:
// fetch both sources, normalize, match, validate, append failures.
package reconciler

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/logging"
	"github.com/careops/visitsync/pkg/records"
)

// RecordSource fetches raw records from one external system.
type RecordSource interface {
	// ID identifies the system this source pulls from.
	ID() records.SystemID

	// Fetch returns the raw records for the reconciliation window.
	Fetch(ctx context.Context) ([]json.RawMessage, error)
}

// FailureStore persists validation failures. Append must be idempotent on
// failure ID so concurrent or repeated passes never double-log.
type FailureStore interface {
	// Append stores a failure. When an entry with the same ID already
	// exists, it returns the existing entry and created=false.
	Append(f records.ValidationFailure) (stored records.ValidationFailure, created bool, err error)
}

// Reconciler runs reconciliation passes against a pair of sources.
type Reconciler interface {
	// Run executes one full pass: fetch, normalize, match, validate,
	// append. Per-record problems are collected in the result, never
	// abort the pass.
	Run(ctx context.Context) (*Result, error)

	// RunRecord reconciles a single raw OpenPhone record against the
	// current AxisCare data. Used for webhook ingestion.
	RunRecord(ctx context.Context, raw json.RawMessage) (*Result, error)
}

type reconciler struct {
	openphone RecordSource
	axiscare  RecordSource
	store     FailureStore

	rules        Rules
	matcher      *Matcher
	validator    *Validator
	fetchTimeout time.Duration
	now          func() time.Time
}

// New creates a Reconciler over the two sources and a failure store.
func New(openphone, axiscare RecordSource, store FailureStore, opts ...Option) (Reconciler, error) {
	if openphone == nil || axiscare == nil {
		return nil, errors.NewValidationError("sources", nil, "both sources are required")
	}
	if store == nil {
		return nil, errors.NewValidationError("store", nil, "failure store is required")
	}

	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	validator := NewValidator(options.rules)
	validator.SetClock(options.now)

	return &reconciler{
		openphone:    openphone,
		axiscare:     axiscare,
		store:        store,
		rules:        options.rules,
		matcher:      NewMatcher(options.rules),
		validator:    validator,
		fetchTimeout: options.fetchTimeout,
		now:          options.now,
	}, nil
}

// Run executes one full reconciliation pass.
func (r *reconciler) Run(ctx context.Context) (*Result, error) {
	logger := logging.FromContext(ctx)
	result := NewResult()
	result.Sources = []records.SystemID{records.SystemOpenPhone, records.SystemAxisCare}

	var rawCalls, rawVisits []json.RawMessage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawCalls, err = r.fetch(gctx, r.openphone)
		return err
	})
	g.Go(func() error {
		var err error
		rawVisits, err = r.fetch(gctx, r.axiscare)
		return err
	})
	if err := g.Wait(); err != nil {
		result.Errors = append(result.Errors, err)
		result.Finalize()
		return result, err
	}

	calls, callFailures := records.NormalizeAll(rawCalls, records.SystemOpenPhone, r.now())
	visits, visitFailures := records.NormalizeAll(rawVisits, records.SystemAxisCare, r.now())
	result.Ingestion = append(callFailures, visitFailures...)
	for _, f := range result.Ingestion {
		logger.Warn().
			Str("system", f.System.String()).
			Str("external_id", f.ExternalID).
			Str("reason", f.Reason).
			Msg("Record excluded during normalization")
	}

	r.finish(ctx, result, calls, visits)
	return result, nil
}

// RunRecord reconciles one raw OpenPhone record against current AxisCare
// data.
func (r *reconciler) RunRecord(ctx context.Context, raw json.RawMessage) (*Result, error) {
	result := NewResult()
	result.Sources = []records.SystemID{records.SystemOpenPhone, records.SystemAxisCare}

	call, err := records.Normalize(raw, records.SystemOpenPhone)
	if err != nil {
		result.Ingestion = append(result.Ingestion, records.IngestionFailure{
			System:     records.SystemOpenPhone,
			Reason:     err.Error(),
			DetectedAt: r.now(),
		})
		result.Finalize()
		return result, err
	}

	rawVisits, err := r.fetch(ctx, r.axiscare)
	if err != nil {
		result.Errors = append(result.Errors, err)
		result.Finalize()
		return result, err
	}
	visits, visitFailures := records.NormalizeAll(rawVisits, records.SystemAxisCare, r.now())
	result.Ingestion = append(result.Ingestion, visitFailures...)

	r.finish(ctx, result, []records.SourceRecord{call}, visits)
	return result, nil
}

// finish runs match, validate, and append for an already normalized set.
func (r *reconciler) finish(ctx context.Context, result *Result, calls, visits []records.SourceRecord) {
	logger := logging.FromContext(ctx)

	matched := r.matcher.Match(calls, visits)
	result.PairsChecked = len(matched.Pairs)
	result.UnmatchedOpenPhone = len(matched.UnmatchedOpenPhone)
	result.UnmatchedAxisCare = len(matched.UnmatchedAxisCare)
	result.Unmatched = append(matched.UnmatchedOpenPhone, matched.UnmatchedAxisCare...)

	for _, failure := range r.validator.Validate(matched) {
		stored, created, err := r.store.Append(failure)
		if err != nil {
			logger.Error().Err(err).
				Str("failure_id", failure.ID).
				Msg("Failed to append validation failure")
			result.Errors = append(result.Errors, err)
			continue
		}
		if created {
			result.NewFailures++
			result.Failures = append(result.Failures, stored)
			logger.Info().
				Str("failure_id", stored.ID).
				Str("subject", stored.SubjectID()).
				Str("field", stored.Field).
				Msg("Validation failure detected")
		} else {
			result.Duplicates++
		}
	}

	result.Finalize()
	logger.Info().
		Int("pairs", result.PairsChecked).
		Int("new_failures", result.NewFailures).
		Int("duplicates", result.Duplicates).
		Dur("duration", result.Duration).
		Msg("Reconciliation pass completed")
}

func (r *reconciler) fetch(ctx context.Context, src RecordSource) ([]json.RawMessage, error) {
	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	raws, err := src.Fetch(fctx)
	if err != nil {
		return nil, errors.NewTransientRemoteError(src.ID().String(), "fetch", err)
	}
	return raws, nil
}
