package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
	apperrors "github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/errors"
)

// msgServiceOnline is advertised when every collaborator is ready.
const msgServiceOnline = "LinkedIn Outreach Email Generator is online"

const uptimeOperational = "operational"

// AvailabilityServiceOptions configures the availability service.
type AvailabilityServiceOptions struct {
	// Required: job record storage to probe.
	Store core.JobStore

	// Optional: whether the downstream webhook is configured.
	WebhookConfigured bool
	// Optional: whether the payment service is configured.
	PaymentConfigured bool
	// Optional: structured logger; defaults to slog.Default().
	Logger *slog.Logger
}

// AvailabilityService answers the availability endpoint: configuration gaps
// and storage failures degrade to an unavailable report instead of an HTTP
// error, so purchasers can always poll it.
type AvailabilityService struct {
	store             core.JobStore
	webhookConfigured bool
	paymentConfigured bool
	logger            *slog.Logger
	probes            singleflight.Group
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(opts AvailabilityServiceOptions) (*AvailabilityService, error) {
	if opts.Store == nil {
		return nil, errors.New("Store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "availability_service")

	return &AvailabilityService{
		store:             opts.Store,
		webhookConfigured: opts.WebhookConfigured,
		paymentConfigured: opts.PaymentConfigured,
		logger:            logger,
	}, nil
}

// MustNewAvailabilityService constructs an AvailabilityService and panics on error.
func MustNewAvailabilityService(opts AvailabilityServiceOptions) *AvailabilityService {
	svc, err := NewAvailabilityService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create AvailabilityService: %v", err))
	}
	return svc
}

// Check reports whether the proxy can accept work right now.
func (s *AvailabilityService) Check(ctx context.Context) model.AvailabilityResponse {
	if !s.webhookConfigured {
		return model.AvailabilityResponse{
			Status:  model.AvailabilityUnavailable,
			Message: msgWebhookNotConfigured,
		}
	}
	if !s.paymentConfigured {
		return model.AvailabilityResponse{
			Status:  model.AvailabilityUnavailable,
			Message: msgPaymentNotConfigured,
		}
	}

	if err := s.probeStore(ctx); err != nil {
		s.logger.ErrorContext(ctx, "availability check failed", "error", err)
		return model.AvailabilityResponse{
			Status:  model.AvailabilityUnavailable,
			Message: availabilityMessage(err),
		}
	}

	return model.AvailabilityResponse{
		Status:  model.AvailabilityAvailable,
		Message: msgServiceOnline,
		Uptime:  uptimeOperational,
	}
}

// probeStore coalesces concurrent health probes into one storage round trip.
// The probe itself runs detached from the caller's context so one cancelled
// request cannot fail the shared result.
func (s *AvailabilityService) probeStore(ctx context.Context) error {
	ch := s.probes.DoChan("store-health", func() (any, error) {
		return nil, s.store.Health(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func availabilityMessage(err error) string {
	mapped := apperrors.MapDBError(err)
	var appErr *apperrors.AppError
	if errors.As(mapped, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
