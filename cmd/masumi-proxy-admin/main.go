package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/config"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/bootstrap"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/devseed"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/util"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
	healthProbeTimeout      = 30 * time.Second
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations for the postgres job store",
			run:         runMigrations,
		},
		"job-status": {
			name:        "job-status",
			description: "Inspect a job record in the configured job store",
			run:         runJobStatus,
		},
		"sweep-jobs": {
			name:        "sweep-jobs",
			description: "Delete terminal jobs older than the retention window",
			run:         runSweepJobs,
		},
		"store-health": {
			name:        "store-health",
			description: "Probe the configured job store backend",
			run:         runStoreHealth,
		},
		"seed-jobs": {
			name:        "seed-jobs",
			description: "Insert demo jobs into the configured job store",
			run:         runSeedJobs,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: masumi-proxy-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-16s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{
		Timeout: defaultMigrationTimeout,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete",
	)

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}

	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	cmdCtx.Logger.Info("running database migrations")

	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}

	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

type jobStatusOptions struct {
	JobID   string
	RawJSON bool
}

func parseJobStatusFlags(args []string) (jobStatusOptions, error) {
	fs := flag.NewFlagSet("job-status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := jobStatusOptions{}
	fs.StringVar(&opts.JobID, "job-id", "", "Job identifier to inspect")
	fs.BoolVar(&opts.RawJSON, "raw-json", false, "Print the stored record as JSON")

	if err := fs.Parse(args); err != nil {
		return jobStatusOptions{}, err
	}

	if strings.TrimSpace(opts.JobID) == "" {
		return jobStatusOptions{}, errors.New("--job-id is required")
	}

	return opts, nil
}

func runJobStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobStatusFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withJobStore(ctx, cmdCtx, func(store core.JobStore) error {
		job, getErr := store.Get(ctx, opts.JobID)
		if getErr != nil {
			return fmt.Errorf("get job %s: %w", opts.JobID, getErr)
		}
		if opts.RawJSON {
			return printJobJSON(job)
		}
		return printJobStatus(os.Stdout, job)
	})
}

type sweepOptions struct {
	Retention time.Duration
	Yes       bool
}

func parseSweepFlags(defaultRetention time.Duration, args []string) (sweepOptions, error) {
	fs := flag.NewFlagSet("sweep-jobs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := sweepOptions{}
	fs.DurationVar(
		&opts.Retention,
		"retention",
		defaultRetention,
		"Age past completion before a terminal job is deleted",
	)
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return sweepOptions{}, err
	}

	if opts.Retention <= 0 {
		return sweepOptions{}, errors.New("--retention must be greater than zero")
	}

	return opts, nil
}

func runSweepJobs(cmdCtx *commandContext, args []string) error {
	opts, err := parseSweepFlags(cmdCtx.Config.Sweeper.Retention, args)
	if err != nil {
		return err
	}
	if confirmErr := confirmSweep(opts); confirmErr != nil {
		return confirmErr
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withJobStore(ctx, cmdCtx, func(store core.JobStore) error {
		cutoff := time.Now().Add(-opts.Retention)
		count, sweepErr := store.DeleteTerminalBefore(ctx, cutoff)
		if sweepErr != nil {
			return fmt.Errorf("delete terminal jobs: %w", sweepErr)
		}
		cmdCtx.Logger.Info("sweep complete", "jobs_deleted", count, "retention", opts.Retention)
		return nil
	})
}

func confirmSweep(opts sweepOptions) error {
	if opts.Yes {
		return nil
	}

	if err := writef(os.Stdout, "About to delete terminal jobs older than %s.\n", opts.Retention); err != nil {
		return fmt.Errorf("print confirmation message: %w", err)
	}
	if err := write(os.Stdout, "Continue? [y/N]: "); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	resp, err := reader.ReadString('\n')
	if err != nil {
		return errors.New("aborted by user")
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp != "y" && resp != "yes" {
		return errors.New("aborted by user")
	}
	return nil
}

func runStoreHealth(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("store-health takes no flags, got %v", args)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, healthProbeTimeout)
	defer cancel()

	return withJobStore(ctx, cmdCtx, func(store core.JobStore) error {
		if err := store.Health(ctx); err != nil {
			return fmt.Errorf("job store unhealthy: %w", err)
		}
		return writef(os.Stdout, "job store (%s) is healthy\n", cmdCtx.Config.Store.Backend)
	})
}

func runSeedJobs(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("seed-jobs takes no flags, got %v", args)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withJobStore(ctx, cmdCtx, func(store core.JobStore) error {
		return devseed.Run(ctx, store, cmdCtx.Logger)
	})
}

func withJobStore(ctx context.Context, cmdCtx *commandContext, fn func(core.JobStore) error) error {
	store, closeStore, err := bootstrap.BuildJobStore(ctx, &cmdCtx.Config, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			cmdCtx.Logger.Warn("job store close failed", "error", closeErr)
		}
	}()
	return fn(store)
}

func printJobJSON(job *model.Job) error {
	encoded, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return writeln(os.Stdout, string(encoded))
}

func printJobStatus(w io.Writer, job *model.Job) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	rows := [][2]string{
		{"Job ID", job.ID},
		{"Status", string(job.Status)},
		{"Purchaser", job.PurchaserID},
		{"Blockchain ID", job.BlockchainID},
		{"Created (UTC)", job.CreatedAt.UTC().Format(time.RFC3339)},
	}
	if job.Message != "" {
		rows = append(rows, [2]string{"Message", job.Message})
	}
	if job.CompletedAt != nil {
		rows = append(rows, [2]string{"Completed (UTC)", job.CompletedAt.UTC().Format(time.RFC3339)})
		rows = append(rows, [2]string{"Duration", util.FormatProcessingDuration(job.CompletedAt.Sub(job.CreatedAt))})
	}
	if len(job.Result) > 0 {
		rows = append(rows, [2]string{"Result", string(job.Result)})
	}

	for _, row := range rows {
		if err := writef(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return fmt.Errorf("write job row: %w", err)
		}
	}
	return tw.Flush()
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, args ...any) error {
	_, err := fmt.Fprint(w, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
