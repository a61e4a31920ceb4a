// Package health provides health checking functionality for the scheduled enrichment runs.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
)

// MaxFailureRatio is the share of failed lookups above which a run counts as degraded
const MaxFailureRatio = 0.5

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store      interfaces.RunStore
	schedule   []time.Duration // sorted offsets from midnight
	staleAfter time.Duration
	now        func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies.
// schedule holds the daily run times as sorted offsets from midnight.
func NewHealthChecker(store interfaces.RunStore, schedule []time.Duration, staleAfter time.Duration) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		store:      store,
		schedule:   schedule,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// HealthCheck returns HTTP-specific health data
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	now := h.now()
	report := h.store.GetLastReport()
	lastErr := h.store.GetLastError()
	lastRun := h.store.GetLastRunTime()
	isRunning := h.store.IsRunning()

	runAge := now.Sub(lastRun)

	switch {
	case lastRun.IsZero() && isRunning:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case lastRun.IsZero():
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case lastErr != nil:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case runAge > 2*h.staleAfter:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case runAge > h.staleAfter:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case report != nil && report.FailureRatio() > MaxFailureRatio:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"is_running":     isRunning,
		"uptime_seconds": math.Round(now.Sub(h.store.GetStartTime()).Seconds()),
	}

	if next := h.nextRunAfter(now); !next.IsZero() {
		data["next_run"] = next.Format(time.RFC3339)
	}

	if !lastRun.IsZero() {
		data["last_run"] = lastRun.Format(time.RFC3339)
		data["last_run_age_hours"] = math.Round(runAge.Hours()*10) / 10
	}

	if lastErr != nil {
		data["last_error"] = lastErr.Error()
	}

	if report != nil {
		data["run_id"] = report.RunID
		data["part_numbers"] = report.Total()
		data["rows_written"] = report.RowsWritten
		data["failure_ratio"] = math.Round(report.FailureRatio()*1000) / 1000
	}

	return status, data, httpStatus
}

// CalculateNextRun returns the next scheduled run time, zero without a schedule
func (h *HealthCheckerImpl) CalculateNextRun() time.Time {
	return h.nextRunAfter(h.now())
}

func (h *HealthCheckerImpl) nextRunAfter(now time.Time) time.Time {
	if len(h.schedule) == 0 {
		return time.Time{}
	}

	// First time left today
	for _, offset := range h.schedule {
		if at := atOffset(now, 0, offset); now.Before(at) {
			return at
		}
	}

	// Otherwise the first time tomorrow
	return atOffset(now, 1, h.schedule[0])
}

// atOffset returns the wall clock time offset after midnight, days after now's date
func atOffset(now time.Time, days int, offset time.Duration) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+days, 0, 0, int(offset/time.Second), 0, now.Location())
}
