// Package data keeps the state of enrichment runs for the scheduler and the status server.
// Readers never block: the outcome of a run is swapped in atomically once it finishes.
package data

import (
	"sync/atomic"
	"time"

	"github.com/joe-wehbe/mouser-sheets-automation/entities"
	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"github.com/joe-wehbe/mouser-sheets-automation/logging"
)

// Compile-time check to ensure RunContainer implements RunStore
var _ interfaces.RunStore = (*RunContainer)(nil)

// lastRun is replaced as a whole so report, error and time always match
type lastRun struct {
	report *entities.RunReport
	err    error
	at     time.Time
}

// RunContainer holds the last run outcome and the running flag
type RunContainer struct {
	last      atomic.Pointer[lastRun]
	running   atomic.Bool
	startTime atomic.Value // time.Time
}

// NewRunContainer creates an empty container started now
func NewRunContainer() *RunContainer {
	rc := &RunContainer{}
	rc.last.Store(&lastRun{})
	rc.startTime.Store(time.Now())
	return rc
}

// GetLastReport returns the report of the last finished run, nil before the first one
func (rc *RunContainer) GetLastReport() *entities.RunReport {
	return rc.last.Load().report
}

// GetLastError returns the error of the last finished run
func (rc *RunContainer) GetLastError() error {
	return rc.last.Load().err
}

// GetLastRunTime returns when the last run finished, zero before the first one
func (rc *RunContainer) GetLastRunTime() time.Time {
	return rc.last.Load().at
}

// GetStartTime returns when the process started
func (rc *RunContainer) GetStartTime() time.Time {
	if v := rc.startTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the start time value")
	return time.Time{}
}

// IsRunning returns true while a run is in progress
func (rc *RunContainer) IsRunning() bool {
	return rc.running.Load()
}

// RecordRun atomically replaces the last run outcome
func (rc *RunContainer) RecordRun(report *entities.RunReport, err error) {
	at := time.Now()
	if report != nil && !report.FinishedAt.IsZero() {
		at = report.FinishedAt
	}
	rc.last.Store(&lastRun{report: report, err: err, at: at})
}

// BeginRun marks the start of a run.
// Returns true if the run can proceed, false if another run is in progress
func (rc *RunContainer) BeginRun() bool {
	return rc.running.CompareAndSwap(false, true)
}

// EndRun marks the end of a run
func (rc *RunContainer) EndRun() {
	rc.running.Store(false)
}
