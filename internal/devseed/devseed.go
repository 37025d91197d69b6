package devseed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/data"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
)

// Run seeds the job store with demo jobs covering every lifecycle state so
// local status, sweep, and availability flows have data to work against.
// Seeding is idempotent; jobs that already exist are left untouched.
func Run(ctx context.Context, store core.JobStore, logger *slog.Logger) error {
	failures := 0
	for _, job := range demoJobs() {
		created, err := insertJob(ctx, store, job)
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to create demo job", "id", job.ID, "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			msg := "demo job already exists"
			if created {
				msg = "created demo job"
			}
			logger.InfoContext(ctx, msg, "id", job.ID, "status", job.Status)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func insertJob(ctx context.Context, store core.JobStore, job *model.Job) (bool, error) {
	if err := store.Insert(ctx, job); err != nil {
		if errors.Is(err, data.ErrJobExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func demoJobs() []*model.Job {
	now := time.Now().UTC()
	input := []model.InputItem{
		{Key: "csv_url", Value: "https://example.com/demo-leads.csv"},
		{Key: "sender_name", Value: "Demo Sender"},
		{Key: "sender_email", Value: "demo@example.com"},
		{Key: "product_description", Value: "Personalized cold email demo batch"},
	}
	payment := json.RawMessage(`{"blockchainIdentifier":"demo-block-1","payByTime":"1750000000","submitResultTime":"1750003600"}`)

	return []*model.Job{
		{
			ID:           "demo-job-awaiting",
			Status:       model.JobStatusAwaitingPayment,
			InputData:    input,
			PurchaserID:  "demo-purchaser",
			BlockchainID: "demo-block-1",
			Payment:      payment,
			Message:      model.DefaultStatusMessage,
			CreatedAt:    now,
		},
		{
			ID:           "demo-job-running",
			Status:       model.JobStatusRunning,
			InputData:    input,
			PurchaserID:  "demo-purchaser",
			BlockchainID: "demo-block-2",
			Payment:      payment,
			Message:      model.DefaultStatusMessage,
			CreatedAt:    now.Add(-30 * time.Minute),
		},
		{
			ID:           "demo-job-completed",
			Status:       model.JobStatusCompleted,
			InputData:    input,
			PurchaserID:  "demo-purchaser",
			BlockchainID: "demo-block-3",
			Payment:      payment,
			Result:       json.RawMessage(`{"emails_generated":5,"spreadsheet_url":"https://docs.example.com/demo"}`),
			Message:      "Make.com processing completed",
			CreatedAt:    now.Add(-2 * time.Hour),
			CompletedAt:  timePtr(now.Add(-115 * time.Minute)),
		},
		{
			ID:           "demo-job-error",
			Status:       model.JobStatusError,
			InputData:    input,
			PurchaserID:  "demo-purchaser",
			BlockchainID: "demo-block-4",
			Payment:      payment,
			Message:      "Make.com webhook error: 500 Internal Server Error",
			CreatedAt:    now.Add(-3 * time.Hour),
			CompletedAt:  timePtr(now.Add(-175 * time.Minute)),
		},
		{
			ID:           "demo-job-timeout",
			Status:       model.JobStatusPaymentTimeout,
			InputData:    input,
			PurchaserID:  "demo-purchaser",
			BlockchainID: "demo-block-5",
			Payment:      payment,
			Message:      "Payment not received within 5 minutes",
			CreatedAt:    now.Add(-4 * time.Hour),
			CompletedAt:  timePtr(now.Add(-230 * time.Minute)),
		},
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
