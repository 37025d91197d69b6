// Package service implements the job lifecycle: accepting paid work,
// monitoring payment confirmation, and driving the downstream webhook.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/adapters/payment"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/data"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
	apperrors "github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/errors"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/metrics"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/statsd"
)

// Configuration guard messages. The wording matches what purchasers see on
// the start and availability endpoints.
const (
	msgWebhookNotConfigured = "Make.com webhook not configured"
	msgPaymentNotConfigured = "Payment service not configured"
)

// JobWatcher drives an accepted job to a terminal state in the background.
type JobWatcher interface {
	Watch(job *model.Job)
}

var _ JobWatcher = (*Monitor)(nil)

// JobServiceOptions configures the job lifecycle facade.
type JobServiceOptions struct {
	// Required: job record storage.
	Store core.JobStore

	// Optional: payment gateway. When nil the payment service is treated
	// as unconfigured and job creation is rejected.
	Gateway core.PaymentGateway
	// Optional: watcher for accepted jobs. When nil the downstream webhook
	// is treated as unconfigured and job creation is rejected.
	Watcher JobWatcher
	// Optional: structured logger; defaults to slog.Default().
	Logger *slog.Logger
	// Optional: metrics sink.
	Metrics statsd.Sink
	// Optional: clock override for record timestamps.
	Now func() time.Time
	// Optional: job id generator override.
	NewID func() string
}

// JobService is the entry point for the public job operations: starting a
// payment-gated job and reporting its status.
type JobService struct {
	store   core.JobStore
	gateway core.PaymentGateway
	watcher JobWatcher
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
	newID   func() string
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Store == nil {
		return nil, errors.New("Store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "job_service")

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &JobService{
		store:   opts.Store,
		gateway: opts.Gateway,
		watcher: opts.Watcher,
		logger:  logger,
		metrics: opts.Metrics,
		now:     now,
		newID:   newID,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Create registers a payment request for the given input, persists the job
// in AwaitingPayment, and hands it to the watcher. The returned record
// carries the payment terms for the purchaser.
func (s *JobService) Create(ctx context.Context, req *model.StartJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if s.watcher == nil {
		return nil, apperrors.Configuration(msgWebhookNotConfigured)
	}
	if s.gateway == nil {
		return nil, apperrors.Configuration(msgPaymentNotConfigured)
	}

	id := s.newID()
	s.logger.InfoContext(ctx, "creating payment request", "job_id", id)

	terms, err := s.gateway.Create(ctx, req.IdentifierFromPurchaser, req.InputData)
	if err != nil {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Transition: "created",
			Result:     metrics.ResultError,
			Err:        err,
		})
		var rejection *payment.RejectionError
		if errors.As(err, &rejection) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodePaymentRejected,
				fmt.Sprintf("Payment service error: %s", rejection.Body))
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeOracleUnavailable, "payment request failed")
	}

	job := &model.Job{
		ID:           id,
		Status:       model.JobStatusAwaitingPayment,
		InputData:    slices.Clone(req.InputData),
		PurchaserID:  req.IdentifierFromPurchaser,
		BlockchainID: terms.BlockchainID,
		Payment:      terms.Raw,
		CreatedAt:    s.now().UTC(),
	}
	if job.BlockchainID == "" {
		s.logger.WarnContext(ctx, "payment request has no blockchain identifier", "job_id", id)
	}

	if err := s.store.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("insert job %s: %w", id, err)
	}

	s.watcher.Watch(job)

	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: "created",
		Result:     metrics.ResultSuccess,
	})
	s.logger.InfoContext(ctx, "payment request created", "job_id", id, "blockchain_id", job.BlockchainID)

	return job, nil
}

// GetStatus returns the current job record for the status endpoint.
func (s *JobService) GetStatus(ctx context.Context, id string) (*model.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ValidationField("job_id", "job_id is required")
	}

	job, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "Job not found")
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}
