package handlers

import (
	"net/http"

	"github.com/careops/visitsync/internal/server/response"
	"github.com/careops/visitsync/pkg/errors"
)

// HandleMockCaregiver handles GET /mock/caregiver.
// Returns the current mismatch (the oldest open failure) with its
// matched records so the review UI can show both sides.
// @Summary Current mismatch
// @Description The oldest open validation failure with its matched records
// @Tags mock
// @Produce json
// @Success 200 {object} response.Response{data=records.ValidationFailure}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /mock/caregiver [get].
func (h *Handlers) HandleMockCaregiver(w http.ResponseWriter, _ *http.Request) {
	failure, ok := h.engine.CurrentMismatch()
	if !ok {
		response.NotFound(w, "No open validation failures", "")
		return
	}

	response.OK(w, failure)
}

// HandleMockCorrect handles POST /mock/correct.
// Runs one correction attempt against the current mismatch.
// @Summary Correct current mismatch
// @Description Applies a correction for the oldest open validation failure
// @Tags mock
// @Produce json
// @Success 200 {object} response.Response{data=records.CorrectionAction}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /mock/correct [post].
func (h *Handlers) HandleMockCorrect(w http.ResponseWriter, r *http.Request) {
	action, err := h.engine.CorrectCurrent(r.Context())
	if err != nil {
		if errors.IsNotFound(err) {
			response.NotFound(w, "No open validation failures", "")
			return
		}
		response.ErrorFromType(w, err)
		return
	}

	// List responses may reference the corrected failure
	h.cache.Clear()

	response.OK(w, action)
}
