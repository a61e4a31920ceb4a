package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

// fakeSheetsAPI serves the handful of Sheets v4 endpoints the gateway uses
type fakeSheetsAPI struct {
	mu           sync.Mutex
	title        string
	column       [][]any
	openStatus   int
	updateStatus int
	updates      map[string][][]any
	inputOption  string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/sheet-1"
	w.Header().Set("Content-Type", "application/json")

	switch {
	case !strings.HasPrefix(r.URL.Path, prefix):
		writeAPIError(w, http.StatusNotFound)

	case r.URL.Path == prefix && r.Method == http.MethodGet:
		if f.openStatus != 0 {
			writeAPIError(w, f.openStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sheets": []any{map[string]any{"properties": map[string]any{"title": f.title}}},
		})

	case strings.HasPrefix(r.URL.Path, prefix+"/values/") && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          strings.TrimPrefix(r.URL.Path, prefix+"/values/"),
			"majorDimension": "ROWS",
			"values":         f.column,
		})

	case strings.HasPrefix(r.URL.Path, prefix+"/values/") && r.Method == http.MethodPut:
		if f.updateStatus != 0 {
			writeAPIError(w, f.updateStatus)
			return
		}
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeAPIError(w, http.StatusBadRequest)
			return
		}
		f.updates[strings.TrimPrefix(r.URL.Path, prefix+"/values/")] = body.Values
		f.inputOption = r.URL.Query().Get("valueInputOption")
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedCells": len(body.Values)})

	default:
		writeAPIError(w, http.StatusMethodNotAllowed)
	}
}

func writeAPIError(w http.ResponseWriter, code int) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": http.StatusText(code)},
	})
}

func newFakeSheet(t *testing.T, api *fakeSheetsAPI) (*GoogleSheet, error) {
	t.Helper()
	if api.updates == nil {
		api.updates = make(map[string][][]any)
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	return NewGoogleSheet(context.Background(), "sheet-1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
}

func TestGoogleSheetOpenUsesFirstWorksheet(t *testing.T) {
	sheet, err := newFakeSheet(t, &fakeSheetsAPI{title: "Parts"})
	if err != nil {
		t.Fatalf("NewGoogleSheet failed: %v", err)
	}
	if sheet.Title() != "Parts" {
		t.Errorf("Expected title Parts, got %s", sheet.Title())
	}
	if sheet.Describe() != "google:sheet-1/Parts" {
		t.Errorf("Unexpected description %s", sheet.Describe())
	}
}

func TestGoogleSheetOpenErrors(t *testing.T) {
	tests := []struct {
		status   int
		expected error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrAuth},
		{http.StatusUnauthorized, ErrAuth},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			_, err := newFakeSheet(t, &fakeSheetsAPI{title: "Parts", openStatus: tt.status})
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestGoogleSheetReadColumn(t *testing.T) {
	api := &fakeSheetsAPI{
		title:  "Parts",
		column: [][]any{{"ABC123"}, {}, {"XYZ999"}, {42}},
	}
	sheet, err := newFakeSheet(t, api)
	if err != nil {
		t.Fatal(err)
	}

	got, err := sheet.ReadColumn(context.Background(), 1)
	if err != nil {
		t.Fatalf("ReadColumn failed: %v", err)
	}

	expected := []string{"ABC123", "", "XYZ999", "42"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("ReadColumn = %q, want %q", got, expected)
	}
}

func TestGoogleSheetWriteRange(t *testing.T) {
	api := &fakeSheetsAPI{title: "Parts"}
	sheet, err := newFakeSheet(t, api)
	if err != nil {
		t.Fatal(err)
	}

	if err := sheet.WriteRange(context.Background(), 3, 2, 3, []string{"Resistors", "N/A"}); err != nil {
		t.Fatalf("WriteRange failed: %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()

	values, ok := api.updates["'Parts'!C2:C3"]
	if !ok {
		t.Fatalf("Expected update of 'Parts'!C2:C3, got %v", api.updates)
	}
	if !reflect.DeepEqual(values, [][]any{{"Resistors"}, {"N/A"}}) {
		t.Errorf("Unexpected values %v", values)
	}
	if api.inputOption != "RAW" {
		t.Errorf("Expected RAW value input, got %s", api.inputOption)
	}
}

func TestGoogleSheetWriteRejected(t *testing.T) {
	api := &fakeSheetsAPI{title: "Parts", updateStatus: http.StatusForbidden}
	sheet, err := newFakeSheet(t, api)
	if err != nil {
		t.Fatal(err)
	}

	err = sheet.WriteRange(context.Background(), 2, 2, 2, []string{"Acme"})
	if !errors.Is(err, ErrWrite) {
		t.Errorf("Expected ErrWrite, got %v", err)
	}
}

func TestOpenGoogleSheetBadCredentials(t *testing.T) {
	if _, err := OpenGoogleSheet(context.Background(), "sheet-1", filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrAuth) {
		t.Errorf("Expected ErrAuth for missing credentials, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"type": "authorized_user"}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenGoogleSheet(context.Background(), "sheet-1", path); !errors.Is(err, ErrAuth) {
		t.Errorf("Expected ErrAuth for non service account credentials, got %v", err)
	}
}
