package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/config"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/adapters/payment"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/adapters/webhook"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/notify/pagerduty"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/notify/slack"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/statsd"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/service/failurenotifier"
)

// ServiceContainer holds all application services. Monitor is nil when the
// payment service or the webhook is not configured; job creation is rejected
// with the matching configuration error in that state.
type ServiceContainer struct {
	Jobs          *service.JobService
	Availability  *service.AvailabilityService
	Monitor       *service.Monitor
	Sweeper       *service.SweeperService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Store  core.JobStore
	Logger *slog.Logger
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "masumiproxy",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications),
		NotifierConfig:  cfg.Notifications,
	}
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger.With("component", "failure_notifier"),
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:      cfg.Slack.WebhookURL,
			Channel:         cfg.Slack.Channel,
			Username:        cfg.Slack.Username,
			Timeout:         cfg.Timeout,
			RetryLimit:      cfg.RetryLimit,
			StatusURLPrefix: cfg.Slack.StatusURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger.With("component", "failure_notifier"),
		Sinks:  sinks,
	})
}

// newPaymentGateway builds the payment service client, or nil when the
// payment service is not configured or its configuration is unusable.
func newPaymentGateway(cfg config.PaymentConfig, logger *slog.Logger) *payment.Client {
	if !cfg.IsConfigured() {
		return nil
	}

	client, err := payment.NewClient(payment.Config{
		ServiceURL:      cfg.ServiceURL,
		APIKey:          cfg.APIKey,
		AgentIdentifier: cfg.AgentIdentifier,
		SellerVKey:      cfg.SellerVKey,
		Amount:          cfg.Amount,
		Unit:            cfg.Unit,
		StatusExpr:      cfg.StatusExpr,
		CreateTimeout:   cfg.CreateTimeout,
		ResolveTimeout:  cfg.ResolveTimeout,
	})
	if err != nil {
		logger.Error("failed to initialise payment client, treating payment service as unconfigured", "error", err)
		return nil
	}
	return client
}

// newWebhookInvoker builds the Make.com webhook invoker, or nil when the
// webhook is not configured or its URL is rejected.
func newWebhookInvoker(cfg config.DownstreamConfig, logger *slog.Logger) *webhook.Invoker {
	if !cfg.IsConfigured() {
		return nil
	}

	invoker, err := webhook.NewInvoker(webhook.Config{
		WebhookURL:     cfg.WebhookURL,
		Timeout:        cfg.Timeout,
		AllowedDomains: cfg.AllowedDomains,
	})
	if err != nil {
		logger.Error("failed to initialise webhook invoker, treating webhook as unconfigured", "error", err)
		return nil
	}
	return invoker
}

// idleWatcher stands in for the monitor when the webhook is configured but
// the payment service is not. The payment guard rejects job creation before
// any watch can start, so Watch is unreachable in that state.
type idleWatcher struct{}

func (idleWatcher) Watch(*model.Job) {}

func newMonitor(opts *DomainServicesOptions, gateway *payment.Client, invoker *webhook.Invoker) *service.Monitor {
	if gateway == nil || invoker == nil {
		return nil
	}

	monitorCfg := opts.Config.Monitor
	return service.MustNewMonitor(service.MonitorOptions{
		Store:   opts.Store,
		Gateway: gateway,
		Invoker: invoker,
		Config: service.MonitorConfig{
			PollInterval:     monitorCfg.PollInterval,
			MaxAttempts:      monitorCfg.MaxAttempts,
			FailFast:         monitorCfg.FailFast,
			TerminalStatuses: monitorCfg.TerminalStatuses,
		},
		Logger:          opts.Logger,
		Metrics:         opts.Observability.MetricsSink,
		FailureNotifier: opts.Observability.FailureNotifier,
	})
}

// DomainServicesOptions groups inputs for buildDomainServices.
type DomainServicesOptions struct {
	Store         core.JobStore
	Observability ObservabilityContainer
	Config        *config.AppConfig
	Logger        *slog.Logger
}

// buildDomainServices wires business services on top of the job store and
// observability adapters.
func buildDomainServices(opts *DomainServicesOptions) ServiceContainer {
	if opts == nil {
		return ServiceContainer{}
	}
	svcLogger := opts.Logger
	if svcLogger == nil {
		svcLogger = slog.Default()
	}
	opts.Logger = svcLogger

	appCfg := opts.Config
	if appCfg == nil {
		// Sanitize fills in workable defaults; the sweeper in particular
		// cannot run with a zero interval.
		appCfg = &config.AppConfig{}
		appCfg.Sanitize()
	}
	opts.Config = appCfg

	gateway := newPaymentGateway(appCfg.Payment, svcLogger)
	invoker := newWebhookInvoker(appCfg.Downstream, svcLogger)
	monitor := newMonitor(opts, gateway, invoker)

	jobOpts := service.JobServiceOptions{
		Store:   opts.Store,
		Logger:  svcLogger,
		Metrics: opts.Observability.MetricsSink,
	}
	// Assign only non-nil adapters; a nil *payment.Client stored in the
	// interface field would defeat the unconfigured checks.
	if gateway != nil {
		jobOpts.Gateway = gateway
	}
	switch {
	case monitor != nil:
		jobOpts.Watcher = monitor
	case invoker != nil:
		jobOpts.Watcher = idleWatcher{}
	}
	jobService := service.MustNewJobService(jobOpts)

	availability := service.MustNewAvailabilityService(service.AvailabilityServiceOptions{
		Store:             opts.Store,
		WebhookConfigured: invoker != nil,
		PaymentConfigured: gateway != nil,
		Logger:            svcLogger,
	})

	sweeper := service.MustNewSweeperService(service.SweeperServiceOptions{
		Store:   opts.Store,
		Config:  appCfg.Sweeper,
		Logger:  svcLogger,
		Metrics: opts.Observability.MetricsSink,
	})

	return ServiceContainer{
		Jobs:          jobService,
		Availability:  availability,
		Monitor:       monitor,
		Sweeper:       sweeper,
		Observability: opts.Observability,
	}
}

// NewServices builds the full service container from shared dependencies.
func NewServices(deps *ServiceDeps) ServiceContainer {
	if deps == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var obsCfg config.ObservabilityConfig
	if deps.Config != nil {
		obsCfg = deps.Config.Observability
	}
	observability := buildObservability(logger, obsCfg)
	return buildDomainServices(&DomainServicesOptions{
		Store:         deps.Store,
		Observability: observability,
		Config:        deps.Config,
		Logger:        logger,
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx    context.Context
	logger *slog.Logger
	errCh  chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name)

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		handles = append(handles, backgroundServiceHandle{
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func buildBackgroundServices(services ServiceContainer) []backgroundService {
	background := make([]backgroundService, 0, 1)
	if services.Sweeper != nil {
		background = append(background, backgroundService{
			name:  "sweeper",
			start: services.Sweeper.Run,
		})
	}
	return background
}

func errorChannelBufferSize(backgroundCount int) int {
	size := backgroundCount + 1
	if size < 1 {
		return 1
	}
	return size
}

// RunServicesWithShutdown starts the HTTP server and background services and
// manages their lifecycle. This function blocks until a shutdown signal is
// received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	background := buildBackgroundServices(cfg.Services)
	deps := &serviceStartupDeps{
		ctx:    serviceCtx,
		logger: logger,
		errCh:  make(chan error, errorChannelBufferSize(len(background))),
	}

	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	})
	handles := startBackgroundServices(deps, background)

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       deps.errCh,
		httpServer:  server,
		monitor:     cfg.Services.Monitor,
		logger:      logger,
		backgrounds: handles,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	monitor     *service.Monitor
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	// Gracefully stop HTTP server if running
	if cfg.httpServer != nil {
		// The service context is already cancelled here, so the shutdown
		// window needs its own deadline or draining would abort instantly.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Monitor: cfg.monitor,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
