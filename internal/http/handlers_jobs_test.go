package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/adapters/payment"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/data"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/mocks"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/testutil"
)

// watcherStub records watched jobs without running any monitoring.
type watcherStub struct {
	mu   sync.Mutex
	jobs []*model.Job
}

func (s *watcherStub) Watch(job *model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job.Clone())
}

func (s *watcherStub) watched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

type jobHandlersFixture struct {
	handler *JobHandlers
	store   *data.MemoryJobStore
	gateway *mocks.MockPaymentGateway
	watcher *watcherStub
}

func newJobHandlers(t *testing.T) (*jobHandlersFixture, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := data.NewMemoryJobStore()
	gateway := mocks.NewMockPaymentGateway(ctrl)
	watcher := &watcherStub{}
	svc := service.MustNewJobService(service.JobServiceOptions{
		Store:   store,
		Gateway: gateway,
		Watcher: watcher,
		NewID:   func() string { return "job-fixed" },
	})
	fixture := &jobHandlersFixture{
		handler: &JobHandlers{Svc: svc},
		store:   store,
		gateway: gateway,
		watcher: watcher,
	}
	return fixture, ctrl
}

func startJobBody(t *testing.T) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(model.StartJobRequest{
		IdentifierFromPurchaser: "buyer-1",
		InputData: []model.InputItem{
			{Key: "csv_url", Value: "https://example.com/contacts.csv"},
		},
	})
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	return got
}

func TestStartJob_Success(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	raw := json.RawMessage(`{"data":{"blockchainIdentifier":"block-789","payByTime":"1724572800000"}}`)
	fixture.gateway.EXPECT().
		Create(gomock.Any(), "buyer-1", gomock.Any()).
		Return(&model.PaymentRequest{BlockchainID: "block-789", Raw: raw}, nil)

	r := httptest.NewRequest(http.MethodPost, "/start_job", startJobBody(t))
	w := httptest.NewRecorder()

	fixture.handler.StartJob(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody(t, resp)
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "job-fixed", got["job_id"])
	assert.Equal(t, startJobMessage, got["message"])
	assert.Contains(t, got, "data", "payment terms should be merged into the response")

	assert.Equal(t, 1, fixture.watcher.watched())
	_, err := fixture.store.Get(r.Context(), "job-fixed")
	require.NoError(t, err)
}

func TestStartJob_PaymentFieldsWinConflicts(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	raw := json.RawMessage(`{"status":"pending_payment","job_id":"oracle-owned"}`)
	fixture.gateway.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&model.PaymentRequest{Raw: raw}, nil)

	r := httptest.NewRequest(http.MethodPost, "/start_job", startJobBody(t))
	w := httptest.NewRecorder()

	fixture.handler.StartJob(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody(t, resp)
	assert.Equal(t, "pending_payment", got["status"])
	assert.Equal(t, "oracle-owned", got["job_id"])
	assert.Equal(t, startJobMessage, got["message"])
}

func TestStartJob_InvalidJSON(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	r := httptest.NewRequest(http.MethodPost, "/start_job", bytes.NewBufferString("{bad"))
	w := httptest.NewRecorder()

	fixture.handler.StartJob(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_json", decodeBody(t, resp)["error"])
}

func TestStartJob_MissingPurchaser(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	r := httptest.NewRequest(http.MethodPost, "/start_job", bytes.NewBufferString(`{"input_data":[]}`))
	w := httptest.NewRecorder()

	fixture.handler.StartJob(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got := decodeBody(t, resp)
	assert.Equal(t, "invalid_request", got["error"])
	assert.Equal(t, "identifier_from_purchaser is required", got["message"])
}

func TestStartJob_WebhookNotConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := service.MustNewJobService(service.JobServiceOptions{
		Store:   data.NewMemoryJobStore(),
		Gateway: mocks.NewMockPaymentGateway(ctrl),
	})
	h := &JobHandlers{Svc: svc}

	r := httptest.NewRequest(http.MethodPost, "/start_job", startJobBody(t))
	w := httptest.NewRecorder()

	h.StartJob(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	got := decodeBody(t, resp)
	assert.Equal(t, "not_configured", got["error"])
	assert.Equal(t, "Make.com webhook not configured", got["message"])
}

func TestStartJob_PaymentNotConfigured(t *testing.T) {
	svc := service.MustNewJobService(service.JobServiceOptions{
		Store:   data.NewMemoryJobStore(),
		Watcher: &watcherStub{},
	})
	h := &JobHandlers{Svc: svc}

	r := httptest.NewRequest(http.MethodPost, "/start_job", startJobBody(t))
	w := httptest.NewRecorder()

	h.StartJob(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	got := decodeBody(t, resp)
	assert.Equal(t, "not_configured", got["error"])
	assert.Equal(t, "Payment service not configured", got["message"])
}

func TestStartJob_PaymentRejected(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	fixture.gateway.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &payment.RejectionError{StatusCode: http.StatusPaymentRequired, Body: "insufficient funds"})

	r := httptest.NewRequest(http.MethodPost, "/start_job", startJobBody(t))
	w := httptest.NewRecorder()

	fixture.handler.StartJob(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode, "upstream status should pass through")

	got := decodeBody(t, resp)
	assert.Equal(t, "payment_rejected", got["error"])
	assert.Equal(t, "Payment service error: insufficient funds", got["message"])
	assert.Equal(t, 0, fixture.watcher.watched())
}

func TestStartJob_PaymentUnreachable(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	fixture.gateway.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("dial tcp: connection refused"))

	r := httptest.NewRequest(http.MethodPost, "/start_job", startJobBody(t))
	w := httptest.NewRecorder()

	fixture.handler.StartJob(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	got := decodeBody(t, resp)
	assert.Equal(t, "start_job_failed", got["error"])
	assert.Equal(t, "payment request failed", got["message"])
}

func TestGetStatus_InProgressDefaults(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	job := testutil.NewJob("job-42").Build()
	require.NoError(t, fixture.store.Insert(context.Background(), job))

	r := httptest.NewRequest(http.MethodGet, "/status?job_id=job-42", nil)
	w := httptest.NewRecorder()

	fixture.handler.GetStatus(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody(t, resp)
	assert.Equal(t, "job-42", got["job_id"])
	assert.Equal(t, "awaiting_payment", got["status"])
	assert.Equal(t, model.DefaultStatusMessage, got["message"])

	// Non-terminal jobs render explicit nulls, not omitted keys.
	assert.Contains(t, got, "result")
	assert.Nil(t, got["result"])
	assert.Contains(t, got, "completed_at")
	assert.Nil(t, got["completed_at"])
}

func TestGetStatus_Completed(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	job := testutil.CompletedJob("job-done")
	require.NoError(t, fixture.store.Insert(context.Background(), job))

	r := httptest.NewRequest(http.MethodGet, "/status?job_id=job-done", nil)
	w := httptest.NewRecorder()

	fixture.handler.GetStatus(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody(t, resp)
	assert.Equal(t, "completed", got["status"])
	assert.Equal(t, "Make.com processing completed", got["message"])
	assert.Equal(t, map[string]any{"success": true}, got["result"])
	assert.NotNil(t, got["completed_at"])

	parsed, err := time.Parse(time.RFC3339, got["completed_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, *job.CompletedAt, parsed, time.Second)
}

func TestGetStatus_NotFound(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	r := httptest.NewRequest(http.MethodGet, "/status?job_id=missing", nil)
	w := httptest.NewRecorder()

	fixture.handler.GetStatus(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	got := decodeBody(t, resp)
	assert.Equal(t, "job_not_found", got["error"])
	assert.Equal(t, "Job not found", got["message"])
}

func TestGetStatus_MissingJobID(t *testing.T) {
	fixture, ctrl := newJobHandlers(t)
	defer ctrl.Finish()

	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()

	fixture.handler.GetStatus(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", decodeBody(t, resp)["error"])
}
