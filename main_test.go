package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/joe-wehbe/mouser-sheets-automation/config"
	"github.com/xuri/excelize/v2"
)

// fakeMouser knows ABC123 and answers 404 for everything else
func fakeMouser(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/search/partnumber" || r.URL.Query().Get("apiKey") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		var body struct {
			SearchByPartRequest struct {
				MouserPartNumber string `json:"mouserPartNumber"`
			} `json:"SearchByPartRequest"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if body.SearchByPartRequest.MouserPartNumber != "ABC123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"Errors":[],"SearchResults":{"NumberOfResult":1,"Parts":[
			{"Manufacturer":"Acme","Category":"Resistors","Description":"10k Ohm Resistor"}]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeWorkbook(t *testing.T, columnA ...string) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, value := range columnA {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetCellStr("Sheet1", cell, value); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "parts.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(baseURL, xlsxPath string) *config.Config {
	return &config.Config{
		APIKey:       "test-key",
		BaseURL:      baseURL + "/api/v2/",
		SheetBackend: config.BackendXLSX,
		XLSXPath:     xlsxPath,
	}
}

func TestEndToEndWorkbookEnrichment(t *testing.T) {
	api := fakeMouser(t)
	path := writeWorkbook(t, "Part Number", "ABC123", "XYZ999")

	report, err := newJob(testConfig(api.URL, path)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.RowsWritten != 2 {
		t.Errorf("Expected 2 rows written, got %d", report.RowsWritten)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatal(err)
	}

	expected := [][]string{
		{"ABC123", "Acme", "Resistors", "10k Ohm Resistor"},
		{"XYZ999", "N/A", "N/A", "N/A"},
	}
	for i, want := range expected {
		got := rows[i+1]
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("Row %d = %q, want %q", i+2, got, want)
		}
	}
	if len(rows[0]) != 1 || rows[0][0] != "Part Number" {
		t.Errorf("Header row must be untouched, got %q", rows[0])
	}
}

func TestRunOnceExitCodes(t *testing.T) {
	api := fakeMouser(t)

	path := writeWorkbook(t, "Part Number", "ABC123")
	metricsFile := filepath.Join(t.TempDir(), "enrichment.prom")
	cfg := testConfig(api.URL, path)
	cfg.MetricsFile = metricsFile

	if code := runOnce(cfg, newJob(cfg)); code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
	if _, err := os.Stat(metricsFile); err != nil {
		t.Errorf("Expected metrics file to be written, got %v", err)
	}

	missing := testConfig(api.URL, filepath.Join(t.TempDir(), "missing.xlsx"))
	if code := runOnce(missing, newJob(missing)); code != 1 {
		t.Errorf("Expected exit code 1 for a missing workbook, got %d", code)
	}
}

func TestNewGatewayOpenerSelectsBackend(t *testing.T) {
	path := writeWorkbook(t, "Part Number")

	gateway, err := newGatewayOpener(testConfig("http://127.0.0.1", path))(context.Background())
	if err != nil {
		t.Fatalf("Expected workbook to open, got %v", err)
	}
	defer func() { _ = gateway.Close() }()

	if !strings.HasPrefix(gateway.Describe(), "xlsx:") {
		t.Errorf("Expected xlsx gateway, got %s", gateway.Describe())
	}

	google := &config.Config{
		SheetBackend:    config.BackendGoogle,
		SheetID:         "sheet",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	}
	if _, err := newGatewayOpener(google)(context.Background()); err == nil {
		t.Error("Expected google backend to fail without credentials")
	}
}

// blockingScheduler stays in its initial run until stopped
type blockingScheduler struct {
	stopped chan struct{}
	stops   atomic.Int32
}

func (b *blockingScheduler) Start() error {
	<-b.stopped
	return context.Canceled
}

func (b *blockingScheduler) Stop() {
	if b.stops.Add(1) == 1 {
		close(b.stopped)
	}
}

type failingScheduler struct{ err error }

func (f *failingScheduler) Start() error { return f.err }
func (f *failingScheduler) Stop() {}

func TestStartSchedulerInterruptedDuringInitialRun(t *testing.T) {
	s := &blockingScheduler{stopped: make(chan struct{})}
	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	done := make(chan bool, 1)
	go func() {
		interrupted, _ := startScheduler(s, quit)
		done <- interrupted
	}()

	select {
	case interrupted := <-done:
		if !interrupted {
			t.Error("Expected the signal to interrupt the initial run")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("startScheduler ignored the signal")
	}
	if s.stops.Load() == 0 {
		t.Error("Expected the scheduler to be stopped")
	}
}

func TestStartSchedulerReturnsStartError(t *testing.T) {
	interrupted, err := startScheduler(&failingScheduler{err: context.DeadlineExceeded}, make(chan os.Signal))
	if interrupted {
		t.Error("Expected no interruption")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Expected start error, got %v", err)
	}
}
