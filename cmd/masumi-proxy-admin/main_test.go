package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
)

func TestPrintJobStatusIncludesTerminalFields(t *testing.T) {
	completed := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	job := &model.Job{
		ID:           "job-123",
		Status:       model.JobStatusCompleted,
		PurchaserID:  "buyer-1",
		BlockchainID: "block-1",
		Message:      "Make.com processing completed",
		Result:       []byte(`{"emails_generated":5}`),
		CreatedAt:    completed.Add(-time.Hour),
		CompletedAt:  &completed,
	}

	var buf bytes.Buffer
	require.NoError(t, printJobStatus(&buf, job))

	out := buf.String()
	require.Contains(t, out, "job-123")
	require.Contains(t, out, "completed")
	require.Contains(t, out, "Make.com processing completed")
	require.Contains(t, out, `{"emails_generated":5}`)
	require.Contains(t, out, "2025-06-01T12:30:00Z")
	require.Contains(t, out, "1h0m0s")
}

func TestPrintJobStatusOmitsUnsetTerminalFields(t *testing.T) {
	job := &model.Job{
		ID:          "job-456",
		Status:      model.JobStatusAwaitingPayment,
		PurchaserID: "buyer-2",
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, printJobStatus(&buf, job))

	out := buf.String()
	require.Contains(t, out, "awaiting_payment")
	require.NotContains(t, out, "Completed (UTC)")
	require.NotContains(t, out, "Result")
}

func TestParseSweepFlags(t *testing.T) {
	t.Run("defaults to configured retention", func(t *testing.T) {
		opts, err := parseSweepFlags(24*time.Hour, nil)
		require.NoError(t, err)
		require.Equal(t, 24*time.Hour, opts.Retention)
		require.False(t, opts.Yes)
	})

	t.Run("accepts overrides", func(t *testing.T) {
		opts, err := parseSweepFlags(24*time.Hour, []string{"--retention", "1h", "--yes"})
		require.NoError(t, err)
		require.Equal(t, time.Hour, opts.Retention)
		require.True(t, opts.Yes)
	})

	t.Run("rejects non-positive retention", func(t *testing.T) {
		_, err := parseSweepFlags(24*time.Hour, []string{"--retention", "0s"})
		require.Error(t, err)
	})
}

func TestParseJobStatusFlags(t *testing.T) {
	t.Run("requires job id", func(t *testing.T) {
		_, err := parseJobStatusFlags(nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "--job-id is required")
	})

	t.Run("parses id and raw flag", func(t *testing.T) {
		opts, err := parseJobStatusFlags([]string{"--job-id", "job-123", "--raw-json"})
		require.NoError(t, err)
		require.Equal(t, "job-123", opts.JobID)
		require.True(t, opts.RawJSON)
	})
}
