package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/data"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service"
)

// workflowGateway confirms payment after a fixed number of pending polls.
type workflowGateway struct {
	mu           sync.Mutex
	pendingPolls int
	polls        int
	created      []string
}

func (g *workflowGateway) Create(_ context.Context, purchaserID string, _ []model.InputItem) (*model.PaymentRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, purchaserID)
	return &model.PaymentRequest{
		BlockchainID: "block-flow-1",
		Raw:          json.RawMessage(`{"data":{"blockchainIdentifier":"block-flow-1"}}`),
	}, nil
}

func (g *workflowGateway) ResolveStatus(context.Context, string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.polls++
	if g.polls <= g.pendingPolls {
		return "pending", nil
	}
	return "paid", nil
}

// workflowInvoker records the job it was handed and returns a fixed result.
type workflowInvoker struct {
	mu   sync.Mutex
	jobs []*model.Job
}

func (i *workflowInvoker) Invoke(_ context.Context, job *model.Job) (json.RawMessage, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.jobs = append(i.jobs, job.Clone())
	return json.RawMessage(`{"emails_generated":5}`), nil
}

func TestWorkflow_StartJobToCompletion(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := data.NewMemoryJobStore()
	gateway := &workflowGateway{pendingPolls: 2}
	invoker := &workflowInvoker{}

	monitor := service.MustNewMonitor(service.MonitorOptions{
		Store:   store,
		Gateway: gateway,
		Invoker: invoker,
		Config:  service.MonitorConfig{PollInterval: time.Millisecond, MaxAttempts: 50},
		Logger:  logger,
	})
	defer func() {
		require.NoError(t, monitor.Shutdown(context.Background()))
	}()

	jobs := service.MustNewJobService(service.JobServiceOptions{
		Store:   store,
		Gateway: gateway,
		Watcher: monitor,
		Logger:  logger,
	})
	availability := service.MustNewAvailabilityService(service.AvailabilityServiceOptions{
		Store:             store,
		WebhookConfigured: true,
		PaymentConfigured: true,
		Logger:            logger,
	})

	router := NewRouter(RouterServices{Jobs: jobs, Availability: availability, Logger: logger})
	server := httptest.NewServer(Recover(logger)(Logging(logger)(CORS()(router))))
	defer server.Close()

	// Start a job.
	body := []byte(`{"identifier_from_purchaser":"buyer-flow","input_data":[{"key":"csv_url","value":"https://example.com/contacts.csv"}]}`)
	resp, err := http.Post(server.URL+"/start_job", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	jobID, ok := created["job_id"].(string)
	require.True(t, ok, "response should carry a job id")
	require.NotEmpty(t, jobID)
	assert.Contains(t, created, "data", "payment terms should be merged in")

	// The status endpoint reports the job while payment is pending, then
	// completed once the monitor confirms payment and the webhook returns.
	statusOf := func() map[string]any {
		statusResp, getErr := http.Get(server.URL + "/status?job_id=" + jobID)
		require.NoError(t, getErr)
		defer statusResp.Body.Close()
		require.Equal(t, http.StatusOK, statusResp.StatusCode)
		var status map[string]any
		require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
		return status
	}

	require.Eventually(t, func() bool {
		return statusOf()["status"] == "completed"
	}, 3*time.Second, 10*time.Millisecond, "job should reach completed")

	final := statusOf()
	assert.Equal(t, jobID, final["job_id"])
	assert.Equal(t, "Make.com processing completed", final["message"])
	assert.Equal(t, map[string]any{"emails_generated": float64(5)}, final["result"])
	assert.NotNil(t, final["completed_at"])

	invoker.mu.Lock()
	defer invoker.mu.Unlock()
	require.Len(t, invoker.jobs, 1)
	assert.Equal(t, "buyer-flow", invoker.jobs[0].PurchaserID)
	assert.Equal(t, model.JobStatusRunning, invoker.jobs[0].Status)
}
