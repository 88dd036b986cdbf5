// Package visitsync reconciles caregiver visit data between OpenPhone
// call records and AxisCare scheduled visits. It detects discrepancies,
// logs them durably, and applies idempotent corrections back to AxisCare.
package visitsync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/careops/visitsync/internal/audit"
	"github.com/careops/visitsync/internal/corrector"
	"github.com/careops/visitsync/internal/failurelog"
	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/logging"
	"github.com/careops/visitsync/pkg/reconciler"
	"github.com/careops/visitsync/pkg/records"
)

// Engine manages reconciliation passes, the failure log, and corrections,
// with event hooks for downstream consumers.
type Engine interface {
	// Run executes one reconciliation pass.
	Run(ctx context.Context) (*reconciler.Result, error)

	// RunRecord reconciles a single raw OpenPhone record, as delivered
	// by a webhook.
	RunRecord(ctx context.Context, raw json.RawMessage) (*reconciler.Result, error)

	// PassesOn begins scheduled passes at the configured interval.
	PassesOn() error

	// PassesOff stops scheduled passes.
	PassesOff() error

	// Failures lists logged failures in append order.
	Failures(status records.FailureStatus, limit, offset int) []records.ValidationFailure

	// Failure returns one failure by ID.
	Failure(id string) (records.ValidationFailure, error)

	// RenderLog returns the plain-text failure log.
	RenderLog() string

	// CurrentMismatch returns the oldest open failure, if any.
	CurrentMismatch() (records.ValidationFailure, bool)

	// Correct runs one correction attempt for the failure.
	Correct(ctx context.Context, failureID string) (records.CorrectionAction, error)

	// CorrectCurrent corrects the current mismatch.
	CorrectCurrent(ctx context.Context) (records.CorrectionAction, error)

	// Ignore marks an open failure ignored.
	Ignore(failureID string) error

	// Actions returns correction history, newest first.
	Actions(ctx context.Context, limit int) ([]records.CorrectionAction, error)

	// ActionsByFailure returns the attempt history for one failure.
	ActionsByFailure(ctx context.Context, failureID string) ([]records.CorrectionAction, error)

	// Stats summarizes the failure log.
	Stats() Stats

	// LastResult returns the most recent pass result, if a pass has run.
	LastResult() (*reconciler.Result, bool)

	// OnFailureDetected registers a callback for newly logged failures.
	OnFailureDetected(FailureDetectedHook)

	// OnFailureCorrected registers a callback for applied corrections.
	OnFailureCorrected(FailureCorrectedHook)

	// OnPassCompleted registers a callback for completed passes.
	OnPassCompleted(PassCompletedHook)

	// Close stops scheduled passes and closes the stores.
	Close() error
}

// Stats summarizes the failure log by status.
type Stats struct {
	Open         int `json:"open"`
	Correcting   int `json:"correcting"`
	Corrected    int `json:"corrected"`
	Ignored      int `json:"ignored"`
	Total        int `json:"total"`
	SkippedLines int `json:"skipped_lines"`
}

// engine is the internal implementation of the Engine interface.
type engine struct {
	mu         sync.RWMutex
	config     *config
	store      *failurelog.Store
	audit      *audit.Store
	rec        reconciler.Reconciler
	exec       *corrector.Executor
	hooks      *hooks
	lastResult *reconciler.Result

	passTicker *time.Ticker
	stopCh     chan struct{}
}

// New creates an Engine with the given options. Sources, a target writer,
// and store paths are required.
func New(opts ...Option) (Engine, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	store, err := failurelog.Open(cfg.logPath)
	if err != nil {
		return nil, err
	}

	auditStore, err := audit.Open(cfg.auditPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	rec, err := reconciler.New(cfg.openphone, cfg.axiscare, store,
		reconciler.WithRules(cfg.rules),
		reconciler.WithFetchTimeout(cfg.fetchTimeout),
		reconciler.WithClock(cfg.now),
	)
	if err != nil {
		store.Close()
		auditStore.Close()
		return nil, err
	}

	e := &engine{
		config: cfg,
		store:  store,
		audit:  auditStore,
		rec:    rec,
		exec: corrector.New(store, cfg.writer, auditStore,
			corrector.WithTimeout(cfg.writeTimeout),
			corrector.WithClock(cfg.now),
		),
		hooks:  newHooks(),
		stopCh: make(chan struct{}),
	}

	if cfg.autoPasses {
		if err := e.PassesOn(); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

// Run executes one reconciliation pass.
func (e *engine) Run(ctx context.Context) (*reconciler.Result, error) {
	result, err := e.rec.Run(ctx)
	e.afterPass(result)
	return result, err
}

// RunRecord reconciles a single raw OpenPhone record.
func (e *engine) RunRecord(ctx context.Context, raw json.RawMessage) (*reconciler.Result, error) {
	result, err := e.rec.RunRecord(ctx, raw)
	e.afterPass(result)
	return result, err
}

func (e *engine) afterPass(result *reconciler.Result) {
	if result == nil {
		return
	}
	e.mu.Lock()
	e.lastResult = result
	e.mu.Unlock()

	for _, f := range result.Failures {
		e.hooks.fireFailureDetected(f)
	}
	e.hooks.firePassCompleted(result)
}

// PassesOn begins scheduled passes at the configured interval.
func (e *engine) PassesOn() error {
	if e.config.passInterval <= 0 {
		return errors.NewValidationError("pass_interval", e.config.passInterval.String(), "must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.passTicker != nil {
		return nil
	}

	// A previous PassesOff closed stopCh; the new loop needs a fresh one.
	e.stopCh = make(chan struct{})
	e.passTicker = time.NewTicker(e.config.passInterval)

	// The goroutine holds its own references so a concurrent PassesOff
	// clearing the fields cannot race the select.
	ticker, stop := e.passTicker, e.stopCh
	go func() {
		logger := logging.Default()
		for {
			select {
			case <-ticker.C:
				if _, err := e.Run(context.Background()); err != nil {
					logger.Error().Err(err).Msg("Scheduled reconciliation pass failed")
				}
			case <-stop:
				return
			}
		}
	}()
	return nil
}

// PassesOff stops scheduled passes. Safe to call repeatedly and before
// PassesOn.
func (e *engine) PassesOff() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.passTicker != nil {
		e.passTicker.Stop()
		e.passTicker = nil
	}
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
	return nil
}

// Failures lists logged failures in append order.
func (e *engine) Failures(status records.FailureStatus, limit, offset int) []records.ValidationFailure {
	return e.store.List(failurelog.Filter{Status: status, Limit: limit, Offset: offset})
}

// Failure returns one failure by ID.
func (e *engine) Failure(id string) (records.ValidationFailure, error) {
	return e.store.Get(id)
}

// RenderLog returns the plain-text failure log.
func (e *engine) RenderLog() string {
	return failurelog.RenderText(e.store.List(failurelog.Filter{}))
}

// CurrentMismatch returns the oldest open failure, if any.
func (e *engine) CurrentMismatch() (records.ValidationFailure, bool) {
	return e.store.FirstOpen()
}

// Correct runs one correction attempt for the failure.
func (e *engine) Correct(ctx context.Context, failureID string) (records.CorrectionAction, error) {
	action, err := e.exec.Correct(ctx, failureID)
	if err != nil {
		return action, err
	}
	if action.Outcome == records.OutcomeApplied {
		e.hooks.fireFailureCorrected(action)
	}
	return action, nil
}

// CorrectCurrent corrects the current mismatch.
func (e *engine) CorrectCurrent(ctx context.Context) (records.CorrectionAction, error) {
	current, ok := e.CurrentMismatch()
	if !ok {
		return records.CorrectionAction{}, errors.NewNotFoundError("open validation failure", "current")
	}
	return e.Correct(ctx, current.ID)
}

// Ignore marks an open failure ignored.
func (e *engine) Ignore(failureID string) error {
	changed, err := e.store.MarkStatusFrom(failureID, records.StatusOpen, records.StatusIgnored)
	if err != nil {
		return err
	}
	if !changed {
		return errors.ErrCorrectionInFlight
	}
	return nil
}

// Stats summarizes the failure log.
func (e *engine) Stats() Stats {
	stats := Stats{SkippedLines: e.store.SkippedLines()}
	for _, f := range e.store.List(failurelog.Filter{}) {
		stats.Total++
		switch f.Status {
		case records.StatusOpen:
			stats.Open++
		case records.StatusCorrecting:
			stats.Correcting++
		case records.StatusCorrected:
			stats.Corrected++
		case records.StatusIgnored:
			stats.Ignored++
		}
	}
	return stats
}

// LastResult returns the most recent pass result, if a pass has run.
func (e *engine) LastResult() (*reconciler.Result, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastResult, e.lastResult != nil
}

// OnFailureDetected registers a callback for newly logged failures.
func (e *engine) OnFailureDetected(fn FailureDetectedHook) {
	e.hooks.OnFailureDetected(fn)
}

// OnFailureCorrected registers a callback for applied corrections.
func (e *engine) OnFailureCorrected(fn FailureCorrectedHook) {
	e.hooks.OnFailureCorrected(fn)
}

// OnPassCompleted registers a callback for completed passes.
func (e *engine) OnPassCompleted(fn PassCompletedHook) {
	e.hooks.OnPassCompleted(fn)
}

// Actions returns correction history, newest first.
func (e *engine) Actions(ctx context.Context, limit int) ([]records.CorrectionAction, error) {
	return e.audit.List(ctx, limit)
}

// ActionsByFailure returns the attempt history for one failure.
func (e *engine) ActionsByFailure(ctx context.Context, failureID string) ([]records.CorrectionAction, error) {
	return e.audit.ListByFailure(ctx, failureID)
}

// Close stops scheduled passes and closes the stores.
func (e *engine) Close() error {
	e.PassesOff()

	var firstErr error
	if err := e.store.Close(); err != nil {
		firstErr = err
	}
	if err := e.audit.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
