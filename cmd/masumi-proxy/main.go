package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/config"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	// Log startup info
	logStartupInfo(ctx, logger, &cfg)

	cfgPtr := &cfg

	// Connect the configured job store backend
	store, closeStore, err := bootstrap.BuildJobStore(ctx, cfgPtr, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			logger.ErrorContext(ctx, "close job store failed", "error", cerr)
		}
	}()

	// Initialize and run services
	services := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config: cfgPtr,
		Store:  store,
		Logger: logger,
	})

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:   cfgPtr,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting masumi proxy service",
		"store_backend", cfg.Store.Backend,
		"payment_configured", cfg.Payment.IsConfigured(),
		"webhook_configured", cfg.Downstream.IsConfigured(),
		"addr", cfg.HTTP.Addr())
}
