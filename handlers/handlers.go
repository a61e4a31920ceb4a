// Package handlers provides the HTTP handlers of the status server.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/joe-wehbe/mouser-sheets-automation/entities"
	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"github.com/joe-wehbe/mouser-sheets-automation/logging"
)

// StatusHandler serves run state from a RunStore
type StatusHandler struct {
	store         interfaces.RunStore
	healthChecker interfaces.HealthChecker
}

// NewStatusHandler creates a handler with injected dependencies
func NewStatusHandler(store interfaces.RunStore, healthChecker interfaces.HealthChecker) *StatusHandler {
	return &StatusHandler{
		store:         store,
		healthChecker: healthChecker,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// HealthCheck returns scheduler health information
func (h *StatusHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.healthChecker.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status: status,
		Uptime: formatUptimeHuman(time.Since(h.store.GetStartTime())),
		Data:   details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	}

	RespondWithJSON(w, httpStatus, response)
}

// LastRun returns the report of the last finished run.
// ?outcome=failed limits the rows to one lookup outcome.
func (h *StatusHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	report := h.store.GetLastReport()
	if report == nil {
		message := "No run has finished yet"
		if err := h.store.GetLastError(); err != nil {
			message = fmt.Sprintf("Last run failed before producing a report: %v", err)
		}
		RespondWithError(w, http.StatusNotFound, message)
		return
	}

	outcome := entities.LookupOutcome(strings.ToLower(r.URL.Query().Get("outcome")))
	if outcome == "" {
		RespondWithJSON(w, http.StatusOK, report)
		return
	}

	if !isKnownOutcome(outcome) {
		RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("outcome must be one of %v", entities.AllOutcomes()))
		return
	}

	// Copy so the stored report is never modified
	filtered := *report
	filtered.Rows = make([]entities.RowResult, 0, report.Counts[outcome])
	for _, row := range report.Rows {
		if row.Outcome == outcome {
			filtered.Rows = append(filtered.Rows, row)
		}
	}

	RespondWithJSON(w, http.StatusOK, &filtered)
}

func isKnownOutcome(outcome entities.LookupOutcome) bool {
	for _, known := range entities.AllOutcomes() {
		if outcome == known {
			return true
		}
	}
	return false
}
