package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
)

// This file contains the port definitions between the service layer and its
// collaborators. Service implementations should depend on these interfaces,
// not concrete implementations.

// JobStore defines the interface for job record storage.
//
// Get returns a snapshot; callers never observe later mutations.
// Mutate applies fn to the stored record under per-record ownership and
// returns a snapshot of the result, so mutations of unrelated jobs never
// contend on a shared lock.
type JobStore interface {
	Insert(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
	Mutate(ctx context.Context, id string, fn func(*model.Job) error) (*model.Job, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Health(ctx context.Context) error
}

// PaymentGateway defines the interface to the payment service.
type PaymentGateway interface {
	// Create registers a payment request and returns the payment terms.
	Create(ctx context.Context, purchaserID string, input []model.InputItem) (*model.PaymentRequest, error)
	// ResolveStatus fetches the current status tag for a blockchain identifier.
	ResolveStatus(ctx context.Context, blockchainID string) (string, error)
}

// WebhookInvoker defines the single-shot downstream invocation. The returned
// payload is the parsed JSON body of a successful call.
type WebhookInvoker interface {
	Invoke(ctx context.Context, job *model.Job) (json.RawMessage, error)
}
