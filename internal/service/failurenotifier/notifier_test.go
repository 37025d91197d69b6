package failurenotifier

import (
	"context"
	"errors"
	"testing"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/notify"
)

func TestServiceNotifyJobFailure(t *testing.T) {
	ctx := context.Background()

	var received []notify.JobFailurePayload
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "capture",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.JobFailurePayload) error {
					received = append(received, payload)
					return nil
				}),
			},
		},
	})

	svc.NotifyJobFailure(ctx, notify.JobFailurePayload{
		JobID:  "123",
		Status: "error",
	})

	if len(received) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(received))
	}
	if received[0].Severity != notify.SeverityCritical {
		t.Fatalf("expected severity to default to critical, got %s", received[0].Severity)
	}
}

func TestServicePreservesSeverity(t *testing.T) {
	var received []notify.JobFailurePayload
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "capture",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.JobFailurePayload) error {
					received = append(received, payload)
					return nil
				}),
			},
		},
	})

	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{
		JobID:    "456",
		Status:   "payment_timeout",
		Severity: notify.SeverityWarning,
	})

	if len(received) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(received))
	}
	if received[0].Severity != notify.SeverityWarning {
		t.Fatalf("expected warning severity to pass through, got %s", received[0].Severity)
	}
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	if svc.Enabled() {
		t.Fatal("expected Enabled() to be false when no sinks registered")
	}
}

func TestServiceLogsErrors(t *testing.T) {
	// Ensure we don't panic when a sink returns an error.
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "fail",
				Sink: notify.SinkFunc(func(ctx context.Context, payload notify.JobFailurePayload) error {
					return errors.New("boom")
				}),
			},
		},
	})

	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "123"})
}

func TestServiceFansOutToAllSinks(t *testing.T) {
	var slackCalls, pagerdutyCalls int
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "slack",
				Sink: notify.SinkFunc(func(context.Context, notify.JobFailurePayload) error {
					slackCalls++
					return nil
				}),
			},
			{
				Name: "pagerduty",
				Sink: notify.SinkFunc(func(context.Context, notify.JobFailurePayload) error {
					pagerdutyCalls++
					return nil
				}),
			},
		},
	})

	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "789"})

	if slackCalls != 1 || pagerdutyCalls != 1 {
		t.Fatalf("expected one delivery per sink, got slack=%d pagerduty=%d", slackCalls, pagerdutyCalls)
	}
}
