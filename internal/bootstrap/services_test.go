package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/config"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/data"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sanitizedConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.Sanitize()
	return cfg
}

func TestErrorChannelBufferSize(t *testing.T) {
	tests := []struct {
		name            string
		backgroundCount int
		want            int
	}{
		{
			name: "no background services",
			want: 1,
		},
		{
			name:            "sweeper only",
			backgroundCount: 1,
			want:            2,
		},
		{
			name:            "several background services",
			backgroundCount: 3,
			want:            4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorChannelBufferSize(tt.backgroundCount); got != tt.want {
				t.Fatalf("errorChannelBufferSize(%d) = %d, want %d", tt.backgroundCount, got, tt.want)
			}
		})
	}
}

func TestBuildBackgroundServices(t *testing.T) {
	t.Run("includes the sweeper when present", func(t *testing.T) {
		services := NewServices(&ServiceDeps{
			Config: sanitizedConfig(),
			Store:  data.NewMemoryJobStore(),
			Logger: testLogger(),
		})

		background := buildBackgroundServices(services)
		if len(background) != 1 {
			t.Fatalf("background services = %d, want 1", len(background))
		}
		if background[0].name != "sweeper" {
			t.Fatalf("background service name = %q, want %q", background[0].name, "sweeper")
		}
		if background[0].start == nil {
			t.Fatal("background service start func is nil")
		}
	})

	t.Run("empty container yields none", func(t *testing.T) {
		if got := buildBackgroundServices(ServiceContainer{}); len(got) != 0 {
			t.Fatalf("background services = %d, want 0", len(got))
		}
	})
}

func TestNewServices_Unconfigured(t *testing.T) {
	services := NewServices(&ServiceDeps{
		Config: sanitizedConfig(),
		Store:  data.NewMemoryJobStore(),
		Logger: testLogger(),
	})

	if services.Jobs == nil {
		t.Fatal("Jobs service is nil")
	}
	if services.Availability == nil {
		t.Fatal("Availability service is nil")
	}
	if services.Sweeper == nil {
		t.Fatal("Sweeper service is nil")
	}
	if services.Monitor != nil {
		t.Fatal("Monitor should be nil when payment and webhook are unconfigured")
	}
	if services.Observability.FailureNotifier == nil {
		t.Fatal("FailureNotifier is nil")
	}
	if services.Observability.MetricsSink != nil {
		t.Fatal("MetricsSink should be nil when metrics are disabled")
	}
}

func TestNewServices_ConfiguredBuildsMonitor(t *testing.T) {
	cfg := sanitizedConfig()
	cfg.Payment.ServiceURL = "http://127.0.0.1:3001"
	cfg.Payment.APIKey = "test-key"
	cfg.Downstream.WebhookURL = "https://hook.us1.make.com/abc123"

	services := NewServices(&ServiceDeps{
		Config: cfg,
		Store:  data.NewMemoryJobStore(),
		Logger: testLogger(),
	})

	if services.Monitor == nil {
		t.Fatal("Monitor is nil despite payment and webhook being configured")
	}
}

func TestNewPaymentGateway(t *testing.T) {
	logger := testLogger()

	t.Run("unconfigured returns nil", func(t *testing.T) {
		if got := newPaymentGateway(config.PaymentConfig{}, logger); got != nil {
			t.Fatalf("newPaymentGateway() = %v, want nil", got)
		}
	})

	t.Run("configured returns a client", func(t *testing.T) {
		cfg := config.PaymentConfig{
			ServiceURL: "http://127.0.0.1:3001",
			APIKey:     "test-key",
		}
		if got := newPaymentGateway(cfg, logger); got == nil {
			t.Fatal("newPaymentGateway() = nil, want client")
		}
	})
}

func TestNewWebhookInvoker(t *testing.T) {
	logger := testLogger()

	t.Run("unconfigured returns nil", func(t *testing.T) {
		if got := newWebhookInvoker(config.DownstreamConfig{}, logger); got != nil {
			t.Fatalf("newWebhookInvoker() = %v, want nil", got)
		}
	})

	t.Run("rejected url degrades to nil", func(t *testing.T) {
		cfg := config.DownstreamConfig{WebhookURL: "not-a-url"}
		if got := newWebhookInvoker(cfg, logger); got != nil {
			t.Fatalf("newWebhookInvoker() = %v, want nil", got)
		}
	})

	t.Run("configured returns an invoker", func(t *testing.T) {
		cfg := config.DownstreamConfig{WebhookURL: "https://hook.us1.make.com/abc123"}
		if got := newWebhookInvoker(cfg, logger); got == nil {
			t.Fatal("newWebhookInvoker() = nil, want invoker")
		}
	})
}
