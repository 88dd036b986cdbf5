package visitsync

import (
	"sync"

	"github.com/careops/visitsync/pkg/reconciler"
	"github.com/careops/visitsync/pkg/records"
)

// Hook function types for reconciliation events
type (
	// FailureDetectedHook is called when a new validation failure is
	// logged.
	FailureDetectedHook func(failure records.ValidationFailure)

	// FailureCorrectedHook is called when a correction is applied.
	FailureCorrectedHook func(action records.CorrectionAction)

	// PassCompletedHook is called when a reconciliation pass completes.
	PassCompletedHook func(result *reconciler.Result)
)

// hooks manages event callbacks for reconciliation events
type hooks struct {
	mu                 sync.RWMutex
	onFailureDetected  []FailureDetectedHook
	onFailureCorrected []FailureCorrectedHook
	onPassCompleted    []PassCompletedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnFailureDetected registers a callback for newly logged failures
func (h *hooks) OnFailureDetected(fn FailureDetectedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFailureDetected = append(h.onFailureDetected, fn)
}

// OnFailureCorrected registers a callback for applied corrections
func (h *hooks) OnFailureCorrected(fn FailureCorrectedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFailureCorrected = append(h.onFailureCorrected, fn)
}

// OnPassCompleted registers a callback for completed passes
func (h *hooks) OnPassCompleted(fn PassCompletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPassCompleted = append(h.onPassCompleted, fn)
}

func (h *hooks) fireFailureDetected(failure records.ValidationFailure) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onFailureDetected {
		hook(failure)
	}
}

func (h *hooks) fireFailureCorrected(action records.CorrectionAction) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onFailureCorrected {
		hook(action)
	}
}

func (h *hooks) firePassCompleted(result *reconciler.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onPassCompleted {
		hook(result)
	}
}
