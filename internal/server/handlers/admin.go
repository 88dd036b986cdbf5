package handlers

import (
	"net/http"
	"strconv"

	"github.com/careops/visitsync/internal/server/response"
	"github.com/careops/visitsync/pkg/reconciler"
)

// passSummary flattens a pass result for JSON responses. Source errors
// are stringified since error values do not marshal usefully.
func passSummary(result *reconciler.Result) map[string]any {
	errs := make([]string, 0, len(result.Errors))
	for _, err := range result.Errors {
		errs = append(errs, err.Error())
	}

	return map[string]any{
		"summary":             result.Summary(),
		"pairs_checked":       result.PairsChecked,
		"new_failures":        result.NewFailures,
		"duplicates":          result.Duplicates,
		"unmatched_openphone": result.UnmatchedOpenPhone,
		"unmatched_axiscare":  result.UnmatchedAxisCare,
		"ingestion_failures":  result.Ingestion,
		"errors":              errs,
		"started_at":          result.StartTime,
		"completed_at":        result.EndTime,
		"duration_ms":         result.Duration.Milliseconds(),
	}
}

// HandleRun handles POST /api/v1/run.
// @Summary Trigger a reconciliation pass
// @Description Fetches from both systems, matches, validates, and logs new failures
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 502 {object} response.Response{error=response.Error}
// @Router /api/v1/run [post].
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Run(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.cache.Clear()
	response.OK(w, passSummary(result))
}

// HandleStats handles GET /api/v1/stats.
// @Summary Failure log statistics
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Router /api/v1/stats [get].
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request) {
	data := map[string]any{
		"failures":          h.engine.Stats(),
		"cache":             h.cache.GetStats(),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	}

	if result, ok := h.engine.LastResult(); ok {
		data["last_pass"] = passSummary(result)
	}

	response.OK(w, data)
}

// HandleListActions handles GET /api/v1/actions.
// @Summary Correction history
// @Description Correction actions, newest first, optionally scoped to one failure
// @Tags admin
// @Produce json
// @Param failure_id query string false "Scope history to one failure"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response{data=object}
// @Router /api/v1/actions [get].
func (h *Handlers) HandleListActions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if failureID := q.Get("failure_id"); failureID != "" {
		actions, err := h.engine.ActionsByFailure(r.Context(), failureID)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		response.OK(w, map[string]any{
			"actions": actions,
			"count":   len(actions),
		})
		return
	}

	limit := 100
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	actions, err := h.engine.Actions(r.Context(), limit)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	response.OK(w, map[string]any{
		"actions": actions,
		"count":   len(actions),
	})
}
