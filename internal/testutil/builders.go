package testutil

import (
	"encoding/json"
	"time"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
)

// JobBuilder builds job records for tests with sensible defaults.
type JobBuilder struct {
	job model.Job
}

// NewJob creates a builder seeded with a fresh awaiting-payment job.
func NewJob(id string) *JobBuilder {
	return &JobBuilder{job: model.Job{
		ID:          id,
		Status:      model.JobStatusAwaitingPayment,
		PurchaserID: "purchaser-ext-1",
		InputData: []model.InputItem{
			{Key: "csv_url", Value: "https://example.com/leads.csv"},
		},
		CreatedAt: TestTime(),
	}}
}

func (b *JobBuilder) WithStatus(status model.JobStatus) *JobBuilder {
	b.job.Status = status
	return b
}

func (b *JobBuilder) WithPurchaserID(id string) *JobBuilder {
	b.job.PurchaserID = id
	return b
}

func (b *JobBuilder) WithInput(items ...model.InputItem) *JobBuilder {
	b.job.InputData = items
	return b
}

func (b *JobBuilder) WithBlockchainID(id string) *JobBuilder {
	b.job.BlockchainID = id
	return b
}

func (b *JobBuilder) WithPayment(payment json.RawMessage) *JobBuilder {
	b.job.Payment = payment
	return b
}

func (b *JobBuilder) WithResult(result json.RawMessage) *JobBuilder {
	b.job.Result = result
	return b
}

func (b *JobBuilder) WithMessage(message string) *JobBuilder {
	b.job.Message = message
	return b
}

func (b *JobBuilder) WithCreatedAt(t time.Time) *JobBuilder {
	b.job.CreatedAt = t
	return b
}

func (b *JobBuilder) WithCompletedAt(t time.Time) *JobBuilder {
	b.job.CompletedAt = &t
	return b
}

// Build returns a deep copy so tests can reuse the builder safely.
func (b *JobBuilder) Build() *model.Job {
	return b.job.Clone()
}

// RunningJob returns a job that has been paid and handed to the webhook.
func RunningJob(id string) *model.Job {
	return NewJob(id).
		WithStatus(model.JobStatusRunning).
		WithBlockchainID("block-" + id).
		Build()
}

// CompletedJob returns a job that finished downstream processing.
func CompletedJob(id string) *model.Job {
	return NewJob(id).
		WithStatus(model.JobStatusCompleted).
		WithBlockchainID("block-" + id).
		WithResult(json.RawMessage(`{"success":true}`)).
		WithMessage("Make.com processing completed").
		WithCompletedAt(TestTime().Add(time.Minute)).
		Build()
}
