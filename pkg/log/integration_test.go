package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	scierrors "github.com/YuminosukeSato/gosurv/pkg/errors"
)

// TestLoggerInterface tests the TestLogger implementation of Logger
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", IntervalKey, 3)
	testLogger.Error("error message", fmt.Errorf("test error"), ErrorCodeKey, ErrorEmptyBucket)

	if buffer.Len() == 0 {
		t.Fatal("Expected log output, got empty buffer")
	}
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}
	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) {
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField("error", "test error") {
		t.Error("Leading error should be recorded under the error key")
	}
	if !testLogger.ContainsField(ErrorCodeKey, ErrorEmptyBucket) {
		t.Error("Expected error code field")
	}
	if got := testLogger.CountLevel("WARN"); got != 1 {
		t.Errorf("CountLevel(WARN) = %d, want 1", got)
	}
}

// TestLoggerWith tests context fields carried by With
func TestLoggerWith(t *testing.T) {
	base, _ := NewTestLogger(LevelInfo)
	logger := base.With(ModelNameKey, "DiscreteTimeEnsemble", EstimatorIDKey, "abc")

	logger.Info("Training started", SamplesKey, 100)
	logger.Debug("filtered out")

	if !base.ContainsField(ModelNameKey, "DiscreteTimeEnsemble") {
		t.Error("With fields should be present on records")
	}
	if base.ContainsMessage("filtered out") {
		t.Error("Debug record should be filtered at info level")
	}
	if !logger.Enabled(context.Background(), LevelWarn) || logger.Enabled(context.Background(), LevelDebug) {
		t.Error("Enabled should follow the configured level")
	}
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo).With(ModelNameKey, "DiscreteTimeEnsemble")

	logger.Debug("hidden")
	logger.Info("Fit completed", NBinsKey, 3, DurationMsKey, 12)
	logger.Error("Fit failed", scierrors.NewNoObservationsInBucketError(1), IntervalKey, 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %s", len(lines), buf.String())
	}

	var info map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &info); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if info["message"] != "Fit completed" || info[NBinsKey] != 3.0 || info[ModelNameKey] != "DiscreteTimeEnsemble" {
		t.Errorf("unexpected info record: %v", info)
	}

	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec["level"] != "error" || !strings.Contains(fmt.Sprint(rec["error"]), "time bucket 1") {
		t.Errorf("unexpected error record: %v", rec)
	}
}

func TestSetLoggerRoutesWarnings(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	SetLogger(testLogger)
	defer SetLogger(nil)

	if GetLogger() != Logger(testLogger) {
		t.Fatal("GetLogger should return the installed logger")
	}

	scierrors.Warn(scierrors.NewDegenerateIntervalWarning(2, 0, 40))

	if !testLogger.ContainsMessage("time interval 2 has a single observed class 0") {
		t.Error("errors.Warn should be routed through the installed logger")
	}
	if !testLogger.ContainsField(ErrorTypeKey, "*errors.DegenerateIntervalWarning") {
		t.Error("warning type should be recorded")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"error", LevelError, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
