package handlers

import (
	"net/http"
)

// HandleValidationFailureLog handles GET /logs/validation-failures.
// The review UI consumes this as plain text, one line per failure in
// append order.
// @Summary Validation failure log
// @Description Plain-text log of validation failures in append order
// @Tags logs
// @Produce plain
// @Success 200 {string} string
// @Router /logs/validation-failures [get].
func (h *Handlers) HandleValidationFailureLog(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(h.engine.RenderLog())); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write validation failure log")
	}
}
