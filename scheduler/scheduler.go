// Package scheduler runs the enrichment job at fixed times of day and watches
// that runs keep happening. Runs never overlap: a run that starts while
// another is in progress is skipped.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"github.com/joe-wehbe/mouser-sheets-automation/logging"
	"github.com/joe-wehbe/mouser-sheets-automation/metrics"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// DefaultStaleAfter is how long without a finished run before a warning is logged
const DefaultStaleAfter = 25 * time.Hour

// Options configures a Scheduler
type Options struct {
	At          string        // gocron At() expression, e.g. "06:00;18:00"
	MetricsFile string        // written after every run when set
	StaleAfter  time.Duration // defaults to DefaultStaleAfter
	CheckEvery  time.Duration // stale run check interval, defaults to one hour
}

// Scheduler runs the enrichment job using injected dependencies
type Scheduler struct {
	store     interfaces.RunStore
	runner    interfaces.Runner
	opts      Options
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(store interfaces.RunStore, runner interfaces.Runner, opts Options) *Scheduler {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.CheckEvery <= 0 {
		opts.CheckEvery = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:     store,
		runner:    runner,
		opts:      opts,
		scheduler: gocron.NewScheduler(time.Local),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start performs a first run, then schedules the job and the stale run monitor
func (s *Scheduler) Start() error {
	// Initial run
	if err := s.runJob(); err != nil {
		logging.Error("Initial enrichment run failed", "error", err)
		return fmt.Errorf("initial run failed: %w", err)
	}

	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("scheduler stopped: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.opts.At).Do(func() {
		if err := s.runJob(); err != nil {
			logging.Error("Scheduled enrichment run failed", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule runs", "at", s.opts.At, "error", err)
		return fmt.Errorf("failed to schedule runs at %q: %w", s.opts.At, err)
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started", "at", s.opts.At)

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler and cancels a run in progress
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

// runJob performs one run unless another one is in progress
func (s *Scheduler) runJob() error {
	// Prevent overlapping runs
	if !s.store.BeginRun() {
		logging.Info("Run already in progress, skipping...")
		return nil
	}
	defer s.store.EndRun()

	logging.Info(fmt.Sprintf("Starting enrichment run at: %s", time.Now().Format(time.RFC3339)))

	report, err := s.runner.Run(s.ctx)
	s.store.RecordRun(report, err)

	if s.opts.MetricsFile != "" {
		if werr := metrics.WriteTextfile(s.opts.MetricsFile); werr != nil {
			logging.Warn("Failed to export metrics", "error", werr)
		}
	}

	return err
}

// startHealthMonitoring warns when no run has finished for too long
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(s.opts.CheckEvery)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.checkStale()
			}
		}
	}()
}

// checkStale reports whether the last run is older than StaleAfter
func (s *Scheduler) checkStale() bool {
	lastRun := s.store.GetLastRunTime()
	if lastRun.IsZero() {
		lastRun = s.store.GetStartTime()
	}
	if time.Since(lastRun) > s.opts.StaleAfter {
		logging.Warn(fmt.Sprintf("No enrichment run has finished in over %s", s.opts.StaleAfter),
			"last_run", lastRun.Format(time.RFC3339))
		return true
	}
	return false
}
