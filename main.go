package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joe-wehbe/mouser-sheets-automation/config"
	"github.com/joe-wehbe/mouser-sheets-automation/data"
	"github.com/joe-wehbe/mouser-sheets-automation/enrichment"
	"github.com/joe-wehbe/mouser-sheets-automation/health"
	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"github.com/joe-wehbe/mouser-sheets-automation/logging"
	"github.com/joe-wehbe/mouser-sheets-automation/metrics"
	"github.com/joe-wehbe/mouser-sheets-automation/mouser"
	"github.com/joe-wehbe/mouser-sheets-automation/scheduler"
	"github.com/joe-wehbe/mouser-sheets-automation/server"
	"github.com/joe-wehbe/mouser-sheets-automation/sheets"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		return 1
	}

	logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() { _ = logging.Close() }()

	job := newJob(cfg)

	if !cfg.Scheduled() {
		return runOnce(cfg, job)
	}
	return runScheduled(cfg, job)
}

// newJob wires the search client, the pipeline and the configured sheet backend
func newJob(cfg *config.Config) *enrichment.Job {
	client := mouser.NewClient(mouser.ClientConfig{
		BaseURL:           cfg.BaseURL,
		APIKey:            cfg.APIKey,
		Timeout:           cfg.LookupTimeout,
		RequestsPerMinute: cfg.LookupRatePerMinute,
	})

	return enrichment.NewJob(newGatewayOpener(cfg), enrichment.NewPipeline(client))
}

// newGatewayOpener returns an opener for the backend selected by SHEET_BACKEND
func newGatewayOpener(cfg *config.Config) interfaces.GatewayOpener {
	if cfg.SheetBackend == config.BackendXLSX {
		return func(ctx context.Context) (interfaces.SheetGateway, error) {
			return sheets.OpenWorkbook(cfg.XLSXPath, cfg.XLSXSheet)
		}
	}

	return func(ctx context.Context) (interfaces.SheetGateway, error) {
		return sheets.OpenGoogleSheet(ctx, cfg.SheetID, cfg.CredentialsFile)
	}
}

// runOnce performs a single run, stopping early on SIGINT or SIGTERM
func runOnce(cfg *config.Config, runner interfaces.Runner) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err := runner.Run(ctx)

	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			logging.Warn("Failed to export metrics", "error", werr)
		}
	}

	if err != nil {
		logging.Error("Enrichment failed", "error", err)
		return 1
	}
	return 0
}

// runScheduled keeps running at SCHEDULE_AT until SIGINT or SIGTERM
func runScheduled(cfg *config.Config, runner interfaces.Runner) int {
	store := data.NewRunContainer()

	jobScheduler := scheduler.NewScheduler(store, runner, scheduler.Options{
		At:          cfg.ScheduleAt,
		MetricsFile: cfg.MetricsFile,
	})

	var statusServer *server.Server
	if cfg.StatusPort != "" {
		checker := health.NewHealthChecker(store, cfg.ScheduleTimes, scheduler.DefaultStaleAfter)
		statusServer = server.NewServer(cfg.StatusAddress, cfg.StatusPort, store, checker)

		// Serve during the initial run so its progress is visible
		go func() {
			if err := statusServer.Start(); err != nil {
				logging.Error("Status server failed", "error", err)
			}
		}()
	}

	// Channel to listen for interrupt signals, registered before the initial run
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	interrupted, err := startScheduler(jobScheduler, quit)
	if interrupted {
		logging.Info("Interrupted during the initial run")
		shutdownServer(statusServer)
		return 0
	}
	if err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		shutdownServer(statusServer)
		return 1
	}

	logging.Info(fmt.Sprintf("Waiting for the next run at %s, press Ctrl+C to stop", cfg.ScheduleAt))

	// Block until a signal is received
	<-quit
	logging.Info("Shutting down...")

	jobScheduler.Stop()
	shutdownServer(statusServer)

	logging.Info("Shutdown complete")
	return 0
}

// startScheduler runs the initial run and schedules the next ones. A signal
// received meanwhile stops the scheduler, which cancels the run between rows.
func startScheduler(s interfaces.Scheduler, quit <-chan os.Signal) (interrupted bool, err error) {
	started := make(chan error, 1)
	go func() { started <- s.Start() }()

	select {
	case err := <-started:
		return false, err
	case sig := <-quit:
		logging.Info("Shutting down...", "signal", sig.String())
		s.Stop()
		<-started
		// Start may have scheduled the job after Stop
		s.Stop()
		return true, nil
	}
}

func shutdownServer(s *server.Server) {
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		logging.Error("Status server shutdown failed", "error", err)
	}
}
