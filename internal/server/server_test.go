package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/visitsync"
	"github.com/careops/visitsync/internal/server/response"
	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/records"
)

type fakeSource struct {
	system records.SystemID
	raws   []json.RawMessage
}

func (s *fakeSource) ID() records.SystemID { return s.system }

func (s *fakeSource) Fetch(_ context.Context) ([]json.RawMessage, error) {
	return s.raws, nil
}

type fakeWriter struct {
	mu    sync.Mutex
	state map[string]map[string]string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{state: make(map[string]map[string]string)}
}

func (w *fakeWriter) Update(_ context.Context, subjectID string, fields map[string]string, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state[subjectID] == nil {
		w.state[subjectID] = make(map[string]string)
	}
	for k, v := range fields {
		w.state[subjectID][k] = v
	}
	return nil
}

func (w *fakeWriter) Verify(_ context.Context, subjectID string, fields map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, want := range fields {
		if w.state[subjectID][k] != want {
			return errors.NewValidationError(k, w.state[subjectID][k], "mismatch")
		}
	}
	return nil
}

// testServer wires a real engine over fake sources behind the full
// middleware chain.
func testServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	dir := t.TempDir()

	openphone := &fakeSource{system: records.SystemOpenPhone, raws: []json.RawMessage{
		json.RawMessage(`{"callId": "call-1", "from": "15125551234", "startedAt": "2025-06-03T09:58:00Z", "completedAt": "2025-06-03T10:32:00Z"}`),
		json.RawMessage(`{"callId": "call-2", "caregiverId": "cg-9", "from": "15125559999", "startedAt": "2025-06-03T14:00:00Z", "completedAt": "2025-06-03T14:30:00Z"}`),
	}}
	axiscare := &fakeSource{system: records.SystemAxisCare, raws: []json.RawMessage{
		json.RawMessage(`{"visitId": "visit-1", "caregiverId": "cg-7", "phone": "15125551234", "visit_start": "2025-06-03T10:00:00Z", "visit_end": "2025-06-03T10:30:00Z"}`),
	}}

	engine, err := visitsync.New(
		visitsync.WithSources(openphone, axiscare),
		visitsync.WithWriter(newFakeWriter()),
		visitsync.WithLogPath(filepath.Join(dir, "failures.jsonl")),
		visitsync.WithAuditPath(filepath.Join(dir, "audit.db")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	logger := zerolog.Nop()
	srv, err := New(engine, &logger, DefaultConfig())
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return srv, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	_, h := testServer(t)

	rec := do(t, h, "GET", "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/api/v1/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Nil(t, resp.Error)
}

func TestValidationFailureLog(t *testing.T) {
	_, h := testServer(t)

	// Before any pass the log is empty
	rec := do(t, h, "GET", "/logs/validation-failures")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "No validation failures logged.", strings.TrimSpace(rec.Body.String()))

	rec = do(t, h, "POST", "/api/v1/run")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/logs/validation-failures")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "[VALIDATION FAILURE]")
	assert.Contains(t, body, "Field: duration")
	assert.Contains(t, body, "[PHONE NOT FOUND]")
}

func TestMockCaregiverAndCorrect(t *testing.T) {
	_, h := testServer(t)

	// No mismatch before a pass
	rec := do(t, h, "GET", "/mock/caregiver")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "POST", "/api/v1/run")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/mock/caregiver")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var failure records.ValidationFailure
	require.NoError(t, json.Unmarshal(data, &failure))
	assert.Equal(t, records.StatusOpen, failure.Status)
	assert.Equal(t, "duration", failure.Field)
	require.NotNil(t, failure.Pair)
	assert.Equal(t, "cg-7", failure.Pair.AxisCare.SubjectID)

	rec = do(t, h, "POST", "/mock/correct")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeEnvelope(t, rec)
	require.Nil(t, resp.Error)

	data, err = json.Marshal(resp.Data)
	require.NoError(t, err)
	var action records.CorrectionAction
	require.NoError(t, json.Unmarshal(data, &action))
	assert.Equal(t, records.OutcomeApplied, action.Outcome)
	assert.Equal(t, failure.ID, action.FailureID)
}

func TestFailuresListAndGet(t *testing.T) {
	_, h := testServer(t)

	rec := do(t, h, "POST", "/api/v1/run")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/api/v1/failures?status=OPEN")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.Nil(t, resp.Error)

	obj, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, obj["count"])

	failures, ok := obj["failures"].([]any)
	require.True(t, ok)
	require.Len(t, failures, 2)
	first, ok := failures[0].(map[string]any)
	require.True(t, ok)
	id, _ := first["id"].(string)
	require.NotEmpty(t, id)

	rec = do(t, h, "GET", "/api/v1/failures/"+id)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/api/v1/failures/f-missing999")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "GET", "/api/v1/failures?status=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIgnoreFailure(t *testing.T) {
	_, h := testServer(t)

	rec := do(t, h, "POST", "/api/v1/run")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/api/v1/failures")
	resp := decodeEnvelope(t, rec)
	obj := resp.Data.(map[string]any)
	first := obj["failures"].([]any)[0].(map[string]any)
	id := first["id"].(string)

	rec = do(t, h, "POST", "/api/v1/failures/"+id+"/ignore")
	require.Equal(t, http.StatusOK, rec.Code)

	// A second ignore conflicts since the failure is no longer open
	rec = do(t, h, "POST", "/api/v1/failures/"+id+"/ignore")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, "POST", "/api/v1/failures/f-missing999/ignore")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunAndStats(t *testing.T) {
	_, h := testServer(t)

	rec := do(t, h, "POST", "/api/v1/run")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.Nil(t, resp.Error)

	obj := resp.Data.(map[string]any)
	assert.EqualValues(t, 1, obj["pairs_checked"])
	assert.EqualValues(t, 2, obj["new_failures"])

	// Second pass only finds duplicates
	rec = do(t, h, "POST", "/api/v1/run")
	resp = decodeEnvelope(t, rec)
	obj = resp.Data.(map[string]any)
	assert.EqualValues(t, 0, obj["new_failures"])
	assert.EqualValues(t, 2, obj["duplicates"])

	rec = do(t, h, "GET", "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeEnvelope(t, rec)
	stats := resp.Data.(map[string]any)
	require.Contains(t, stats, "failures")
	require.Contains(t, stats, "last_pass")
}

func TestActionsHistory(t *testing.T) {
	_, h := testServer(t)

	rec := do(t, h, "POST", "/api/v1/run")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, "POST", "/mock/correct")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/api/v1/actions")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	obj := resp.Data.(map[string]any)
	assert.EqualValues(t, 1, obj["count"])
}

func TestWebhookIngestion(t *testing.T) {
	_, h := testServer(t)

	payload := `{"type": "call.summary.completed", "data": {"callId": "call-9", "from": "15125551234", "startedAt": "2025-06-03T09:58:00Z", "completedAt": "2025-06-03T10:32:00Z"}}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.Nil(t, resp.Error)

	// Malformed record is rejected with 400
	req = httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"data": {"callId": "call-10"}}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty body is rejected
	req = httptest.NewRequest("POST", "/webhook", strings.NewReader(""))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := testServer(t)

	rec := do(t, h, "GET", "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "visitsync_failures")
}

func TestAuthProtectsAPI(t *testing.T) {
	srv, _ := testServer(t)
	srv.config.AuthEnabled = true
	h := srv.Handler()

	rec := do(t, h, "GET", "/api/v1/failures")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Review UI endpoints stay public
	rec = do(t, h, "GET", "/logs/validation-failures")
	assert.Equal(t, http.StatusOK, rec.Code)
}
