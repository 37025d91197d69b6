package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Valid(t *testing.T) {
	assert.True(t, JobStatusAwaitingPayment.Valid())
	assert.True(t, JobStatusRunning.Valid())
	assert.True(t, JobStatusCompleted.Valid())
	assert.True(t, JobStatusError.Valid())
	assert.True(t, JobStatusPaymentTimeout.Valid())
	assert.False(t, JobStatus("pending").Valid())
	assert.False(t, JobStatus("").Valid())
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusAwaitingPayment.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusError.Terminal())
	assert.True(t, JobStatusPaymentTimeout.Terminal())
}

func TestJobStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{"awaiting to running", JobStatusAwaitingPayment, JobStatusRunning, true},
		{"awaiting to payment timeout", JobStatusAwaitingPayment, JobStatusPaymentTimeout, true},
		{"awaiting to error", JobStatusAwaitingPayment, JobStatusError, true},
		{"awaiting to completed skips running", JobStatusAwaitingPayment, JobStatusCompleted, false},
		{"running to completed", JobStatusRunning, JobStatusCompleted, true},
		{"running to error", JobStatusRunning, JobStatusError, true},
		{"running to payment timeout", JobStatusRunning, JobStatusPaymentTimeout, false},
		{"running back to awaiting", JobStatusRunning, JobStatusAwaitingPayment, false},
		{"completed is final", JobStatusCompleted, JobStatusRunning, false},
		{"error is final", JobStatusError, JobStatusCompleted, false},
		{"payment timeout is final", JobStatusPaymentTimeout, JobStatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStartJobRequest_Validate(t *testing.T) {
	req := &StartJobRequest{
		IdentifierFromPurchaser: "buyer-1",
		InputData:               []InputItem{{Key: "csv_url", Value: "https://example.com/contacts.csv"}},
	}
	require.NoError(t, req.Validate())

	req = &StartJobRequest{InputData: []InputItem{{Key: "csv_url", Value: "x"}}}
	assert.Error(t, req.Validate())

	req = &StartJobRequest{IdentifierFromPurchaser: "   "}
	assert.Error(t, req.Validate())

	// Empty input data is allowed; the downstream payload just carries the
	// job identity fields.
	req = &StartJobRequest{IdentifierFromPurchaser: "buyer-1"}
	assert.NoError(t, req.Validate())
}

func TestJob_Clone_Independence(t *testing.T) {
	completedAt := time.Now().UTC()
	job := &Job{
		ID:           "job-1",
		Status:       JobStatusCompleted,
		InputData:    []InputItem{{Key: "csv_url", Value: "https://example.com/a.csv"}},
		PurchaserID:  "buyer-1",
		BlockchainID: "block-1",
		Payment:      json.RawMessage(`{"blockchainIdentifier":"block-1"}`),
		Result:       json.RawMessage(`{"ok":true}`),
		Message:      "Make.com processing completed",
		CreatedAt:    time.Now().UTC().Add(-time.Minute),
		CompletedAt:  &completedAt,
	}

	clone := job.Clone()
	require.Equal(t, job, clone)

	clone.InputData[0].Value = "mutated"
	clone.Result[2] = 'x'
	*clone.CompletedAt = clone.CompletedAt.Add(time.Hour)

	assert.Equal(t, "https://example.com/a.csv", job.InputData[0].Value)
	assert.Equal(t, json.RawMessage(`{"ok":true}`), job.Result)
	assert.Equal(t, completedAt, *job.CompletedAt)
}

func TestJob_Clone_Nil(t *testing.T) {
	var job *Job
	assert.Nil(t, job.Clone())
}

func TestJob_StatusResponse_DefaultMessage(t *testing.T) {
	job := &Job{
		ID:        "job-1",
		Status:    JobStatusAwaitingPayment,
		CreatedAt: time.Now().UTC(),
	}

	resp := job.StatusResponse()
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, JobStatusAwaitingPayment, resp.Status)
	assert.Equal(t, DefaultStatusMessage, resp.Message)
	assert.Nil(t, resp.Result)
	assert.Nil(t, resp.CompletedAt)
}

func TestJobStatusResponse_NullFieldsRender(t *testing.T) {
	job := &Job{ID: "job-1", Status: JobStatusAwaitingPayment, CreatedAt: time.Now().UTC()}

	raw, err := json.Marshal(job.StatusResponse())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	// Pending jobs still expose result and completed_at as explicit nulls.
	result, ok := decoded["result"]
	require.True(t, ok)
	assert.Nil(t, result)

	completedAt, ok := decoded["completed_at"]
	require.True(t, ok)
	assert.Nil(t, completedAt)
}
