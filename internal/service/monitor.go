package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/adapters/webhook"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
	obserrors "github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/errors"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/metrics"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/notify"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/statsd"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service/failurenotifier"
)

// paymentStatusPaid is the oracle status tag that confirms payment.
const paymentStatusPaid = "paid"

// Terminal messages reported to purchasers. The wording is part of the public
// contract of the status endpoint and stays fixed even when the polling
// budget is tuned away from its defaults.
const (
	msgPaymentTimeout   = "Payment not received within 5 minutes"
	msgWebhookCompleted = "Make.com processing completed"
	msgWebhookTimeout   = "Make.com webhook timeout - processing took longer than 5 minutes"
)

// Default polling budget: every 5 seconds, 60 attempts, a 5-minute window.
const (
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 60
)

// MonitorConfig tunes the payment polling loop.
type MonitorConfig struct {
	// PollInterval is the pause before each status poll. Defaults to 5s.
	PollInterval time.Duration
	// MaxAttempts bounds the number of polls per job. Defaults to 60.
	MaxAttempts int
	// FailFast aborts polling as soon as the oracle reports one of
	// TerminalStatuses instead of burning the remaining attempts.
	FailFast bool
	// TerminalStatuses lists oracle status tags that mean the payment can
	// no longer succeed. Only consulted when FailFast is set.
	TerminalStatuses []string
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	return c
}

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	// Required: job record storage.
	Store core.JobStore
	// Required: payment status oracle.
	Gateway core.PaymentGateway
	// Required: downstream webhook invoker.
	Invoker core.WebhookInvoker

	// Optional: polling budget overrides.
	Config MonitorConfig
	// Optional: structured logger; defaults to slog.Default().
	Logger *slog.Logger
	// Optional: metrics sink for lifecycle and poll counters.
	Metrics statsd.Sink
	// Optional: failure notification fan-out.
	FailureNotifier *failurenotifier.Service
	// Optional: clock override for terminal timestamps.
	Now func() time.Time
}

// Monitor owns the background lifecycle of every accepted job: it polls the
// payment oracle until the payment confirms or the attempt budget runs out,
// triggers the single downstream webhook call, and commits the terminal
// state. One goroutine watches one job and is the only writer for that job
// after creation.
type Monitor struct {
	store    core.JobStore
	gateway  core.PaymentGateway
	invoker  core.WebhookInvoker
	notifier *failurenotifier.Service
	metrics  statsd.Sink
	logger   *slog.Logger
	cfg      MonitorConfig
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor constructs a Monitor.
func NewMonitor(opts MonitorOptions) (*Monitor, error) {
	if opts.Store == nil {
		return nil, errors.New("Store is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("Gateway is required")
	}
	if opts.Invoker == nil {
		return nil, errors.New("Invoker is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "job_monitor")

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		store:    opts.Store,
		gateway:  opts.Gateway,
		invoker:  opts.Invoker,
		notifier: opts.FailureNotifier,
		metrics:  opts.Metrics,
		logger:   logger,
		cfg:      opts.Config.withDefaults(),
		now:      now,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// MustNewMonitor constructs a Monitor and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewMonitor(opts MonitorOptions) *Monitor {
	m, err := NewMonitor(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create Monitor: %v", err))
	}
	return m
}

// Watch starts a background goroutine that drives the given job to a
// terminal state. The job must already be persisted in AwaitingPayment.
func (m *Monitor) Watch(job *model.Job) {
	if job == nil {
		return
	}
	snapshot := job.Clone()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(m.ctx, snapshot)
	}()
}

// Shutdown waits for in-flight watchers to finish. When ctx expires first,
// the watchers are cancelled and Shutdown blocks until they exit.
func (m *Monitor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		<-done
		return ctx.Err()
	}
}

type pollOutcome int

const (
	pollPaid pollOutcome = iota
	pollExhausted
	pollFatal
	pollAborted
)

func (m *Monitor) run(ctx context.Context, job *model.Job) {
	logger := m.logger.With("job_id", job.ID)
	logger.InfoContext(ctx, "starting payment monitoring",
		"blockchain_id", job.BlockchainID,
		"poll_interval", m.cfg.PollInterval,
		"max_attempts", m.cfg.MaxAttempts)

	outcome, status := m.awaitPayment(ctx, job, logger)
	switch outcome {
	case pollAborted:
		logger.InfoContext(ctx, "payment monitoring stopped", "reason", "shutdown")
	case pollExhausted:
		logger.WarnContext(ctx, "payment not confirmed within budget")
		m.finish(ctx, logger, job.ID, terminalUpdate{
			status:     model.JobStatusPaymentTimeout,
			message:    msgPaymentTimeout,
			transition: "payment_timeout",
			result:     metrics.ResultTimeout,
			severity:   notify.SeverityWarning,
		})
	case pollFatal:
		logger.WarnContext(ctx, "payment reached terminal status", "status", status)
		m.finish(ctx, logger, job.ID, terminalUpdate{
			status:     model.JobStatusError,
			message:    fmt.Sprintf("Payment failed: %s", status),
			transition: "payment_failed",
			result:     metrics.ResultError,
			err:        fmt.Errorf("payment status %s", status),
			severity:   notify.SeverityCritical,
		})
	case pollPaid:
		m.execute(ctx, logger, job)
	}
}

// awaitPayment polls the oracle until it reports paid, the attempt budget is
// exhausted, or the context is cancelled. Transport errors and inconclusive
// statuses both consume one attempt, so a slow oracle cannot extend the
// window indefinitely.
func (m *Monitor) awaitPayment(ctx context.Context, job *model.Job, logger *slog.Logger) (pollOutcome, string) {
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		if !sleepCtx(ctx, m.cfg.PollInterval) {
			return pollAborted, ""
		}

		status, err := m.gateway.ResolveStatus(ctx, job.BlockchainID)
		if err != nil {
			if ctx.Err() != nil {
				return pollAborted, ""
			}
			logger.WarnContext(ctx, "payment status check failed", "attempt", attempt, "error", err)
			metrics.EmitPaymentPoll(m.metrics, metrics.PollInconclusive)
			continue
		}

		if status == paymentStatusPaid {
			logger.InfoContext(ctx, "payment confirmed", "attempt", attempt)
			metrics.EmitPaymentPoll(m.metrics, metrics.PollPaid)
			return pollPaid, status
		}

		if m.cfg.FailFast && slices.Contains(m.cfg.TerminalStatuses, status) {
			metrics.EmitPaymentPoll(m.metrics, metrics.PollFatal)
			return pollFatal, status
		}

		logger.DebugContext(ctx, "payment pending", "attempt", attempt, "status", status)
		metrics.EmitPaymentPoll(m.metrics, metrics.PollInconclusive)
	}
	return pollExhausted, ""
}

// execute marks the job running and performs the single webhook call. The
// monitor terminates after this regardless of the call's outcome.
func (m *Monitor) execute(ctx context.Context, logger *slog.Logger, job *model.Job) {
	running, err := m.store.Mutate(ctx, job.ID, func(j *model.Job) error {
		if !j.Status.CanTransition(model.JobStatusRunning) {
			return fmt.Errorf("job %s cannot move from %s to %s", j.ID, j.Status, model.JobStatusRunning)
		}
		j.Status = model.JobStatusRunning
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "mark job running", "error", err)
		return
	}
	metrics.EmitJobLifecycle(m.metrics, metrics.JobMetric{
		Transition: "running",
		Result:     metrics.ResultSuccess,
	})
	logger.InfoContext(ctx, "calling downstream webhook")

	start := time.Now()
	output, err := m.invoker.Invoke(ctx, running)
	duration := time.Since(start)

	switch {
	case err == nil:
		metrics.EmitWebhookDelivery(m.metrics, metrics.ResultSuccess, duration)
		logger.InfoContext(ctx, "webhook completed", "duration", duration)
		m.finish(ctx, logger, job.ID, terminalUpdate{
			status:     model.JobStatusCompleted,
			message:    msgWebhookCompleted,
			output:     output,
			transition: "completed",
			result:     metrics.ResultSuccess,
			duration:   duration,
		})
	case ctx.Err() != nil:
		logger.InfoContext(ctx, "webhook call abandoned", "reason", "shutdown")
	case errors.Is(err, context.DeadlineExceeded):
		metrics.EmitWebhookDelivery(m.metrics, metrics.ResultTimeout, duration)
		logger.ErrorContext(ctx, "webhook timed out", "duration", duration)
		m.finish(ctx, logger, job.ID, terminalUpdate{
			status:     model.JobStatusError,
			message:    msgWebhookTimeout,
			transition: "webhook_timeout",
			result:     metrics.ResultTimeout,
			err:        err,
			severity:   notify.SeverityCritical,
		})
	default:
		metrics.EmitWebhookDelivery(m.metrics, metrics.ResultError, duration)
		logger.ErrorContext(ctx, "webhook failed", "error", err)
		m.finish(ctx, logger, job.ID, terminalUpdate{
			status:     model.JobStatusError,
			message:    webhookFailureMessage(err),
			transition: "webhook_failed",
			result:     metrics.ResultError,
			err:        err,
			severity:   notify.SeverityCritical,
		})
	}
}

// webhookFailureMessage mirrors the outward message contract: HTTP-level
// failures (bad status, unreachable host) name the webhook; anything else
// (e.g., an unparseable success body) is reported as unexpected.
func webhookFailureMessage(err error) string {
	var statusErr *webhook.StatusError
	var requestErr *webhook.RequestError
	if errors.As(err, &statusErr) || errors.As(err, &requestErr) {
		return fmt.Sprintf("Make.com webhook error: %s", err)
	}
	return fmt.Sprintf("Unexpected error: %s", err)
}

type terminalUpdate struct {
	status     model.JobStatus
	message    string
	output     []byte
	transition string
	result     string
	duration   time.Duration
	err        error
	severity   string
}

// finish commits a terminal state. The write survives shutdown cancellation
// so a completed webhook call is never lost between Invoke and Mutate.
func (m *Monitor) finish(ctx context.Context, logger *slog.Logger, jobID string, update terminalUpdate) {
	writeCtx := context.WithoutCancel(ctx)
	completedAt := m.now().UTC()

	job, err := m.store.Mutate(writeCtx, jobID, func(j *model.Job) error {
		if !j.Status.CanTransition(update.status) {
			return fmt.Errorf("job %s cannot move from %s to %s", j.ID, j.Status, update.status)
		}
		j.Status = update.status
		j.Message = update.message
		j.Result = update.output
		j.CompletedAt = &completedAt
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "commit terminal state", "status", update.status, "error", err)
		return
	}

	metrics.EmitJobLifecycle(m.metrics, metrics.JobMetric{
		Transition: update.transition,
		Result:     update.result,
		Duration:   update.duration,
		Err:        update.err,
	})

	if update.status != model.JobStatusCompleted {
		m.notifyFailure(writeCtx, job, update)
	}
}

func (m *Monitor) notifyFailure(ctx context.Context, job *model.Job, update terminalUpdate) {
	if m.notifier == nil || !m.notifier.Enabled() {
		return
	}

	errorClass := ""
	if update.err != nil {
		errorClass = obserrors.Classify(update.err)
	}

	m.notifier.NotifyJobFailure(ctx, notify.JobFailurePayload{
		JobID:        job.ID,
		Status:       string(job.Status),
		PurchaserID:  job.PurchaserID,
		BlockchainID: job.BlockchainID,
		Error:        update.message,
		ErrorClass:   errorClass,
		Severity:     update.severity,
		OccurredAt:   m.now(),
	})
}

// sleepCtx pauses for d and reports false when ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
