package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joe-wehbe/mouser-sheets-automation/entities"
)

// mockRunStore for testing scheduler
type mockRunStore struct {
	mu          sync.Mutex
	lastReport  *entities.RunReport
	lastErr     error
	lastRunTime time.Time
	startTime   time.Time
	running     bool
	recordCount int
}

func (m *mockRunStore) GetLastReport() *entities.RunReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReport
}

func (m *mockRunStore) GetLastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *mockRunStore) GetLastRunTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRunTime
}

func (m *mockRunStore) GetStartTime() time.Time {
	return m.startTime
}

func (m *mockRunStore) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockRunStore) RecordRun(report *entities.RunReport, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReport = report
	m.lastErr = err
	m.lastRunTime = time.Now()
	m.recordCount++
}

func (m *mockRunStore) BeginRun() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return false
	}
	m.running = true
	return true
}

func (m *mockRunStore) EndRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

// mockRunner for testing scheduler
type mockRunner struct {
	mu       sync.Mutex
	runCount int
	err      error
}

func (m *mockRunner) Run(ctx context.Context) (*entities.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCount++
	if m.err != nil {
		return nil, m.err
	}
	report := entities.NewRunReport("run", "mock", time.Now())
	report.FinishedAt = time.Now()
	return report, nil
}

func (m *mockRunner) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCount
}

func TestScheduler_SuccessfulStart(t *testing.T) {
	store := &mockRunStore{}
	runner := &mockRunner{}

	scheduler := NewScheduler(store, runner, Options{At: "06:00;18:00"})
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer scheduler.Stop()

	if runner.count() != 1 {
		t.Errorf("Expected initial run, got %d runs", runner.count())
	}
	if store.GetLastReport() == nil {
		t.Error("Expected report to be recorded")
	}
	if store.IsRunning() {
		t.Error("Expected running flag to be cleared")
	}
}

func TestScheduler_InitialRunFailure(t *testing.T) {
	store := &mockRunStore{}
	runErr := errors.New("sheet unavailable")
	runner := &mockRunner{err: runErr}

	scheduler := NewScheduler(store, runner, Options{At: "06:00"})
	err := scheduler.Start()
	if !errors.Is(err, runErr) {
		t.Fatalf("Expected initial run error, got %v", err)
	}

	if !errors.Is(store.GetLastError(), runErr) {
		t.Errorf("Expected failed run to be recorded, got %v", store.GetLastError())
	}
	if store.recordCount != 1 {
		t.Errorf("Expected 1 recorded run, got %d", store.recordCount)
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	scheduler := NewScheduler(&mockRunStore{}, &mockRunner{}, Options{At: "25:61"})
	defer scheduler.Stop()

	err := scheduler.Start()
	if err == nil {
		t.Fatal("Expected error for invalid schedule")
	}
	if !strings.Contains(err.Error(), "25:61") {
		t.Errorf("Expected error to mention the schedule, got %v", err)
	}
}

func TestScheduler_OverlappingRunSkipped(t *testing.T) {
	store := &mockRunStore{running: true}
	runner := &mockRunner{}

	scheduler := NewScheduler(store, runner, Options{At: "06:00"})
	if err := scheduler.runJob(); err != nil {
		t.Fatalf("Expected skipped run to succeed, got %v", err)
	}

	if runner.count() != 0 {
		t.Errorf("Expected no run while another is in progress, got %d", runner.count())
	}
	if store.recordCount != 0 {
		t.Errorf("Expected nothing recorded, got %d", store.recordCount)
	}
	if !store.IsRunning() {
		t.Error("Skipped run must not clear the other run's flag")
	}
}

func TestScheduler_WritesMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enrichment.prom")
	scheduler := NewScheduler(&mockRunStore{}, &mockRunner{}, Options{At: "06:00", MetricsFile: path})

	if err := scheduler.runJob(); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected metrics file, got %v", err)
	}
	if !strings.Contains(string(content), "enrichment_last_run_timestamp_seconds") {
		t.Error("Expected run gauges in metrics file")
	}
}

func TestScheduler_CheckStale(t *testing.T) {
	tests := []struct {
		name     string
		store    *mockRunStore
		expected bool
	}{
		{"recent run", &mockRunStore{lastRunTime: time.Now().Add(-time.Hour)}, false},
		{"old run", &mockRunStore{lastRunTime: time.Now().Add(-30 * time.Hour)}, true},
		{"never ran, just started", &mockRunStore{startTime: time.Now()}, false},
		{"never ran, started long ago", &mockRunStore{startTime: time.Now().Add(-48 * time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := NewScheduler(tt.store, &mockRunner{}, Options{At: "06:00"})
			if got := scheduler.checkStale(); got != tt.expected {
				t.Errorf("checkStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestScheduler_StopCancelsRun(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{})}
	scheduler := NewScheduler(&mockRunStore{}, runner, Options{At: "06:00"})

	done := make(chan error, 1)
	go func() { done <- scheduler.runJob() }()

	<-runner.started
	scheduler.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after Stop")
	}
}

// blockingRunner runs until its context is cancelled
type blockingRunner struct {
	started chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context) (*entities.RunReport, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScheduler_StopDuringInitialRun(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{})}
	scheduler := NewScheduler(&mockRunStore{}, runner, Options{At: "06:00"})

	done := make(chan error, 1)
	go func() { done <- scheduler.Start() }()

	<-runner.started
	scheduler.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	if jobs := len(scheduler.scheduler.Jobs()); jobs != 0 {
		t.Errorf("Expected no scheduled job after Stop, got %d", jobs)
	}
}
