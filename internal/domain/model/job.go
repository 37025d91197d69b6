// Package model defines the core data types for the payment-gated job system.
package model

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	// JobStatusAwaitingPayment indicates the payment request was created and the
	// job is waiting for on-chain confirmation.
	JobStatusAwaitingPayment JobStatus = "awaiting_payment"
	// JobStatusRunning indicates payment was confirmed and the downstream
	// webhook is executing.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the downstream webhook finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusError indicates the downstream webhook failed or the payment was
	// rejected by the payment service.
	JobStatusError JobStatus = "error"
	// JobStatusPaymentTimeout indicates payment was not confirmed within the
	// polling budget.
	JobStatusPaymentTimeout JobStatus = "payment_timeout"
)

// DefaultStatusMessage is reported for jobs that have not recorded a message yet.
const DefaultStatusMessage = "Job in progress"

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusAwaitingPayment, JobStatusRunning, JobStatusCompleted, JobStatusError, JobStatusPaymentTimeout:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError || s == JobStatusPaymentTimeout
}

// CanTransition reports whether moving from s to next preserves the
// forward-only lifecycle. Terminal states accept no further transitions.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusAwaitingPayment:
		return next == JobStatusRunning || next == JobStatusError || next == JobStatusPaymentTimeout
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusError
	default:
		return false
	}
}

// InputItem is a single key/value pair supplied by the purchaser.
type InputItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Job represents a payment-gated job record.
type Job struct {
	ID           string          `json:"id"`
	Status       JobStatus       `json:"status"`
	InputData    []InputItem     `json:"input_data"`
	PurchaserID  string          `json:"identifier_from_purchaser"`
	BlockchainID string          `json:"blockchain_identifier,omitempty"`
	Payment      json.RawMessage `json:"payment,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Message      string          `json:"message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so callers can hold job snapshots without
// aliasing store-owned memory.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.InputData = slices.Clone(j.InputData)
	c.Payment = slices.Clone(j.Payment)
	c.Result = slices.Clone(j.Result)
	if j.CompletedAt != nil {
		completedAt := *j.CompletedAt
		c.CompletedAt = &completedAt
	}
	return &c
}

// StatusResponse renders the job for the status endpoint.
func (j *Job) StatusResponse() JobStatusResponse {
	message := j.Message
	if message == "" {
		message = DefaultStatusMessage
	}
	return JobStatusResponse{
		JobID:       j.ID,
		Status:      j.Status,
		Result:      j.Result,
		Message:     message,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}
}

// StartJobRequest represents a request to start a new payment-gated job.
type StartJobRequest struct {
	IdentifierFromPurchaser string      `json:"identifier_from_purchaser"`
	InputData               []InputItem `json:"input_data"`
}

// Validate validates the StartJobRequest fields.
func (r *StartJobRequest) Validate() error {
	if strings.TrimSpace(r.IdentifierFromPurchaser) == "" {
		return errors.New("identifier_from_purchaser is required")
	}
	return nil
}

// JobStatusResponse is the wire shape returned by the status endpoint.
// Result and CompletedAt render as null until the job reaches a terminal state.
type JobStatusResponse struct {
	JobID       string          `json:"job_id"`
	Status      JobStatus       `json:"status"`
	Result      json.RawMessage `json:"result"`
	Message     string          `json:"message"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at"`
}
