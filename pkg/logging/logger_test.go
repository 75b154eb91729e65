package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		baseDir string
		wantErr bool
	}{
		{
			name:    "valid directory",
			baseDir: t.TempDir(),
			wantErr: false,
		},
		{
			name:    "creates directories if not exist",
			baseDir: filepath.Join(t.TempDir(), "nested", "path"),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.baseDir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer logger.Close()

			if _, err := os.Stat(filepath.Join(tt.baseDir, "console.jsonl")); err != nil {
				t.Errorf("console log not created: %v", err)
			}
			if _, err := os.Stat(filepath.Join(tt.baseDir, "errors.jsonl")); err != nil {
				t.Errorf("error log not created: %v", err)
			}
		})
	}
}

func TestLogWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	if err := logger.Info(CategoryExport, "page_fetched", "fetched page", map[string]any{"offset": 2}); err != nil {
		t.Fatalf("Info: %v", err)
	}
	if err := logger.Error(CategoryEngine, "invoke_failed", "request failed", nil); err != nil {
		t.Fatalf("Error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "console.jsonl"))
	if len(events) != 2 {
		t.Fatalf("console log events = %d, want 2", len(events))
	}
	if events[0].Category != CategoryExport || events[0].EventType != "page_fetched" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp should be set automatically")
	}

	errEvents := readEvents(t, filepath.Join(dir, "errors.jsonl"))
	if len(errEvents) != 1 {
		t.Fatalf("error log events = %d, want 1", len(errEvents))
	}
	if errEvents[0].Level != LevelError {
		t.Errorf("error log level = %v, want error", errEvents[0].Level)
	}
}

func TestMinLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	// Default min level is info: debug should be dropped.
	if err := logger.Debug(CategoryWeb, "request", "debug event", nil); err != nil {
		t.Fatalf("Debug: %v", err)
	}
	if got := len(readEvents(t, filepath.Join(dir, "console.jsonl"))); got != 0 {
		t.Fatalf("events after filtered debug = %d, want 0", got)
	}

	logger.SetMinLevel(LevelDebug)
	if err := logger.Debug(CategoryWeb, "request", "debug event", nil); err != nil {
		t.Fatalf("Debug: %v", err)
	}
	if got := len(readEvents(t, filepath.Join(dir, "console.jsonl"))); got != 1 {
		t.Fatalf("events after debug min level = %d, want 1", got)
	}
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		events = append(events, ev)
	}
	return events
}
