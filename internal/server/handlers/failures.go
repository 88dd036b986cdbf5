package handlers

import (
	"net/http"

	"github.com/careops/visitsync/internal/server/filter"
	"github.com/careops/visitsync/internal/server/response"
	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/records"
)

// HandleListFailures handles GET /api/v1/failures.
// @Summary List validation failures
// @Description Validation failures in append order with status, subject, field, and date filters
// @Tags failures
// @Produce json
// @Param status query string false "Failure status (OPEN, CORRECTING, CORRECTED, IGNORED)"
// @Param subject query string false "Caregiver subject ID"
// @Param field query string false "Failing field (duration, phone, notes)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Response{data=object}
// @Failure 400 {object} response.Response{error=response.Error}
// @Router /api/v1/failures [get].
func (h *Handlers) HandleListFailures(w http.ResponseWriter, r *http.Request) {
	f := filter.ParseFailureFilter(r)
	if err := f.Validate(); err != nil {
		response.BadRequest(w, err.Error(), "")
		return
	}

	cacheKey := "failures:" + r.URL.RawQuery
	if cached, ok := h.cache.Get(cacheKey); ok {
		response.OK(w, cached)
		return
	}

	all := h.engine.Failures("", 0, 0)
	matched := f.Apply(all)

	data := map[string]any{
		"failures": matched,
		"count":    len(matched),
		"offset":   f.Offset,
		"limit":    f.Limit,
	}

	h.cache.Set(cacheKey, data)
	response.OK(w, data)
}

// HandleGetFailure handles GET /api/v1/failures/{id}.
// @Summary Get a validation failure
// @Tags failures
// @Produce json
// @Param id path string true "Failure ID"
// @Success 200 {object} response.Response{data=records.ValidationFailure}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/failures/{id} [get].
func (h *Handlers) HandleGetFailure(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	failure, err := h.engine.Failure(id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	response.OK(w, failure)
}

// HandleCorrectFailure handles POST /api/v1/failures/{id}/correct.
// @Summary Correct a validation failure
// @Description Runs one correction attempt for the failure
// @Tags failures
// @Produce json
// @Param id path string true "Failure ID"
// @Success 200 {object} response.Response{data=records.CorrectionAction}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/failures/{id}/correct [post].
func (h *Handlers) HandleCorrectFailure(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	action, err := h.engine.Correct(r.Context(), id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.cache.Clear()
	response.OK(w, action)
}

// HandleIgnoreFailure handles POST /api/v1/failures/{id}/ignore.
// @Summary Ignore a validation failure
// @Description Marks an open failure ignored so it is excluded from correction
// @Tags failures
// @Produce json
// @Param id path string true "Failure ID"
// @Success 200 {object} response.Response{data=object}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/failures/{id}/ignore [post].
func (h *Handlers) HandleIgnoreFailure(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.engine.Ignore(id); err != nil {
		if errors.Is(err, errors.ErrCorrectionInFlight) {
			response.Conflict(w, err.Error(), "The failure is not open")
			return
		}
		response.ErrorFromType(w, err)
		return
	}

	h.cache.Clear()
	response.OK(w, map[string]any{
		"id":     id,
		"status": records.StatusIgnored,
	})
}
