package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/careops/visitsync/internal/server/response"
	"github.com/careops/visitsync/pkg/errors"
)

// maxWebhookBody caps webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// webhookPayload is the OpenPhone event envelope. The call record rides
// in the data object; the envelope fields are optional for direct posts.
type webhookPayload struct {
	Type string          `json:"type,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// HandleWebhook handles POST /webhook.
// Accepts a single OpenPhone call event and reconciles it against
// current AxisCare data immediately.
// @Summary OpenPhone event ingestion
// @Description Reconciles a single call record delivered by webhook
// @Tags webhook
// @Accept json
// @Produce json
// @Success 202 {object} response.Response{data=object}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 502 {object} response.Response{error=response.Error}
// @Router /webhook [post].
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "Failed to read request body", "")
		return
	}
	if len(body) == 0 {
		response.BadRequest(w, "Empty request body", "A JSON call record is required")
		return
	}

	raw := json.RawMessage(body)

	// Unwrap the event envelope when present
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err.Error())
		return
	}
	if len(payload.Data) > 0 {
		raw = payload.Data
	}

	result, err := h.engine.RunRecord(r.Context(), raw)
	if err != nil {
		if errors.IsMalformed(err) {
			response.BadRequest(w, err.Error(), "")
			return
		}
		response.ErrorFromType(w, err)
		return
	}

	h.cache.Clear()
	response.Accepted(w, passSummary(result))
}
