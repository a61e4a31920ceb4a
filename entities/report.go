package entities

import "time"

// RunReport summarises one enrichment run
type RunReport struct {
	RunID       string                `json:"run_id"`
	Source      string                `json:"source"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
	Rows        []RowResult           `json:"rows"`
	Counts      map[LookupOutcome]int `json:"counts"`
	RowsWritten int                   `json:"rows_written"`
}

// NewRunReport creates an empty report with zeroed counters
func NewRunReport(runID, source string, startedAt time.Time) *RunReport {
	counts := make(map[LookupOutcome]int, len(AllOutcomes()))
	for _, outcome := range AllOutcomes() {
		counts[outcome] = 0
	}
	return &RunReport{
		RunID:     runID,
		Source:    source,
		StartedAt: startedAt,
		Rows:      make([]RowResult, 0),
		Counts:    counts,
	}
}

// Add appends a row result and updates the counters
func (r *RunReport) Add(result RowResult) {
	r.Rows = append(r.Rows, result)
	r.Counts[result.Outcome]++
}

// Total returns the number of processed part numbers
func (r *RunReport) Total() int {
	return len(r.Rows)
}

// FailureRatio returns the share of lookups that failed, 0 for an empty run
func (r *RunReport) FailureRatio() float64 {
	if len(r.Rows) == 0 {
		return 0
	}
	return float64(r.Counts[OutcomeFailed]) / float64(len(r.Rows))
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
