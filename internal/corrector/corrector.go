// Package corrector applies corrective writes for validation failures.
// One failure is corrected at most once: a compare-and-set claim on the
// failure status keeps concurrent attempts out, and writes to the target
// system carry an idempotency key so retries after a timeout can never
// apply twice.
package corrector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/logging"
	"github.com/careops/visitsync/pkg/records"
)

// FailureStore is the slice of the failure log the executor needs.
type FailureStore interface {
	Get(id string) (records.ValidationFailure, error)
	MarkStatusFrom(id string, from, to records.FailureStatus) (bool, error)
}

// TargetWriter applies and verifies writes against the target system.
type TargetWriter interface {
	// Update patches fields on the subject's record. The idempotency key
	// deduplicates retried writes remotely.
	Update(ctx context.Context, subjectID string, fields map[string]string, idempotencyKey string) error

	// Verify re-reads the subject's record and checks the fields hold.
	Verify(ctx context.Context, subjectID string, fields map[string]string) error
}

// AuditStore records every correction attempt.
type AuditStore interface {
	Record(ctx context.Context, action records.CorrectionAction) error
}

// Executor runs corrections.
type Executor struct {
	store   FailureStore
	writer  TargetWriter
	audit   AuditStore
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// Option configures the executor.
type Option func(*Executor)

// WithTimeout bounds the remote write plus verification.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Executor.
func New(store FailureStore, writer TargetWriter, audit AuditStore, opts ...Option) *Executor {
	e := &Executor{
		store:   store,
		writer:  writer,
		audit:   audit,
		timeout: 15 * time.Second,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Correct runs one correction attempt for the failure. Completed attempts
// return the recorded action with a nil error whatever the outcome; a
// non-nil error means the attempt never started (unknown failure, already
// resolved, or another attempt holds the claim).
func (e *Executor) Correct(ctx context.Context, failureID string) (records.CorrectionAction, error) {
	logger := logging.FromContext(ctx).With().Str("failure_id", failureID).Logger()

	failure, err := e.store.Get(failureID)
	if err != nil {
		return records.CorrectionAction{}, err
	}
	if failure.Status.Terminal() {
		return records.CorrectionAction{}, errors.NewNotFoundError("correctable failure", failureID)
	}

	claimed, err := e.store.MarkStatusFrom(failureID, records.StatusOpen, records.StatusCorrecting)
	if err != nil {
		return records.CorrectionAction{}, err
	}
	if !claimed {
		return records.CorrectionAction{}, errors.ErrCorrectionInFlight
	}

	action := e.execute(ctx, failure, &logger)

	// Every attempt leaves an audit row, whatever the outcome.
	if err := e.audit.Record(ctx, action); err != nil {
		logger.Error().Err(err).Msg("Failed to record correction action")
	}

	switch action.Outcome {
	case records.OutcomeApplied:
		if _, err := e.store.MarkStatusFrom(failureID, records.StatusCorrecting, records.StatusCorrected); err != nil {
			logger.Error().Err(err).Msg("Failed to mark failure corrected")
		}
	default:
		// FAILED and REJECTED release the claim so the failure stays
		// visible and retryable.
		if _, err := e.store.MarkStatusFrom(failureID, records.StatusCorrecting, records.StatusOpen); err != nil {
			logger.Error().Err(err).Msg("Failed to release correction claim")
		}
	}

	logger.Info().
		Str("outcome", string(action.Outcome)).
		Str("field", action.TargetField).
		Msg("Correction attempt completed")
	return action, nil
}

// execute performs the remote write and classifies the outcome.
func (e *Executor) execute(ctx context.Context, failure records.ValidationFailure, logger *zerolog.Logger) records.CorrectionAction {
	action := records.CorrectionAction{
		ID:           e.newID(),
		FailureID:    failure.ID,
		TargetSystem: records.SystemAxisCare,
		TargetField:  failure.Field,
		AppliedAt:    e.now(),
	}

	// Calls without a scheduled visit have nothing to write against.
	// Never auto-create visits; leave the failure open for a human.
	if failure.NoMatch() {
		action.Outcome = records.OutcomeRejected
		action.AuditNote = "no corresponding visit; flagged for review"
		return action
	}

	// Length-policy failures carry policy text in Expected/Actual, not
	// record values. Writing either would corrupt the target's notes.
	if failure.Kind == records.KindNotesLength {
		action.Outcome = records.OutcomeRejected
		action.AuditNote = "call summary outside length policy; flagged for review"
		return action
	}

	subjectID := failure.Pair.AxisCare.SubjectID
	fields := correctiveFields(failure)
	action.NewValue = fields[failure.Field]

	wctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Pre-write state check: if the target already holds the corrected
	// value, a previous attempt landed before it could be acknowledged.
	// An unverifiable field proves nothing, so the write still goes out.
	if err := e.writer.Verify(wctx, subjectID, fields); err == nil {
		action.Outcome = records.OutcomeApplied
		action.AuditNote = "target already held the corrected value"
		return action
	}

	if err := e.writer.Update(wctx, subjectID, fields, failure.ID); err != nil {
		return e.classify(action, err, logger)
	}

	// Post-write sanity check before the failure is marked corrected.
	// Fields the target cannot re-read rely on the acknowledged write.
	if err := e.writer.Verify(wctx, subjectID, fields); err != nil {
		if errors.IsUnverifiable(err) {
			action.Outcome = records.OutcomeApplied
			action.AuditNote = fmt.Sprintf("write acknowledged; %v", err)
			return action
		}
		action.Outcome = records.OutcomeFailed
		action.AuditNote = fmt.Sprintf("post-write verification failed: %v", err)
		return action
	}

	action.Outcome = records.OutcomeApplied
	action.AuditNote = "corrected from authoritative value"
	return action
}

func (e *Executor) classify(action records.CorrectionAction, err error, logger *zerolog.Logger) records.CorrectionAction {
	switch {
	case errors.IsTransient(err) || errors.IsTimeout(err):
		action.Outcome = records.OutcomeFailed
		action.AuditNote = fmt.Sprintf("transient failure, retryable: %v", err)
	case errors.IsRejection(err):
		action.Outcome = records.OutcomeRejected
		action.AuditNote = fmt.Sprintf("rejected by target system: %v", err)
	default:
		action.Outcome = records.OutcomeFailed
		action.AuditNote = fmt.Sprintf("write failed: %v", err)
	}
	logger.Warn().Err(err).Str("outcome", string(action.Outcome)).Msg("Corrective write did not apply")
	return action
}

// correctiveFields computes what to write. The authoritative value wins
// for field mismatches; notes failures instead push the call summary into
// the caregiver notes, matching how agencies reconcile summaries by hand.
func correctiveFields(failure records.ValidationFailure) map[string]string {
	if failure.Field == records.FieldNotes && failure.Actual != "" {
		return map[string]string{records.FieldNotes: failure.Actual}
	}
	return map[string]string{failure.Field: failure.Expected}
}
