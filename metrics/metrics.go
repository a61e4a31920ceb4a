// Package metrics provides Prometheus metrics for enrichment runs, part lookups
// and the status server:
//   - part_lookups_total: Counter with outcome label
//   - part_lookup_duration_seconds: Histogram of search API round trips
//   - enrichment_runs_total: Counter with status label
//   - enrichment_last_run_*: Gauges describing the last completed run
//   - http_request_*: status server request metrics
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"fmt"
	"time"

	"github.com/joe-wehbe/mouser-sheets-automation/entities"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PartLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "part_lookups_total",
			Help: "Part number lookups by outcome",
		},
		[]string{"outcome"},
	)

	PartLookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "part_lookup_duration_seconds",
			Help:    "Search API lookup latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	EnrichmentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_runs_total",
			Help: "Enrichment runs by status",
		},
		[]string{"status"},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrichment_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)

	LastRunDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrichment_last_run_duration_seconds",
			Help: "Duration of the last run",
		},
	)

	LastRunRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "enrichment_last_run_rows",
			Help: "Rows processed by the last run, by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)
)

func init() {
	prometheus.MustRegister(PartLookupsTotal)
	prometheus.MustRegister(PartLookupDuration)
	prometheus.MustRegister(EnrichmentRunsTotal)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(LastRunDuration)
	prometheus.MustRegister(LastRunRows)
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
}

// ObserveLookup records one search API lookup
func ObserveLookup(outcome entities.LookupOutcome, duration time.Duration) {
	PartLookupsTotal.WithLabelValues(string(outcome)).Inc()
	PartLookupDuration.Observe(duration.Seconds())
}

// ObserveSkipped records a row that never reached the search API
func ObserveSkipped() {
	PartLookupsTotal.WithLabelValues(string(entities.OutcomeSkipped)).Inc()
}

// ObserveRun records a finished run; report may be nil when the run failed early
func ObserveRun(report *entities.RunReport, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	EnrichmentRunsTotal.WithLabelValues(status).Inc()

	if report == nil {
		return
	}

	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	LastRunTimestamp.Set(float64(finished.Unix()))
	LastRunDuration.Set(finished.Sub(report.StartedAt).Seconds())
	for _, outcome := range entities.AllOutcomes() {
		LastRunRows.WithLabelValues(string(outcome)).Set(float64(report.Counts[outcome]))
	}
}

// WriteTextfile writes all registered metrics in the node_exporter textfile format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
