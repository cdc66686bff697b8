// File path: internal/common/log_test.go
package common

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoggerSingleton(t *testing.T) {
	if Logger() == nil {
		t.Fatalf("logger is nil")
	}
	if Logger() != Logger() {
		t.Fatalf("logger is not a singleton")
	}
}

func TestLogEntriesCaptureComponent(t *testing.T) {
	Logger().Info("pipeline: dataset selected", "dataset", "fred_rates")
	entries := LogEntries()
	if len(entries) == 0 {
		t.Fatalf("no entries captured")
	}
	last := entries[len(entries)-1]
	if last.Component != "pipeline" {
		t.Fatalf("component = %q", last.Component)
	}
	if last.Message != "pipeline: dataset selected" {
		t.Fatalf("message = %q", last.Message)
	}
	if last.Attributes["dataset"] != "fred_rates" {
		t.Fatalf("attributes = %v", last.Attributes)
	}
}

func TestLogSinkBounded(t *testing.T) {
	sink := newLogSink(3)
	for i := 0; i < 10; i++ {
		record := slog.NewRecord(time.Now(), slog.LevelInfo, "catalog: query executed", 0)
		sink.capture(record)
	}
	if got := len(sink.entries()); got != 3 {
		t.Fatalf("history length = %d, want 3", got)
	}
}
