package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
	}
	return entry
}

// TestLogger_IncludesOpFields verifies operation fields are present in log output.
func TestLogger_IncludesOpFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	opLogger := logger.WithOp(OpMeta{Operation: "add", Namespace: "CARS", Type: "car"})
	opLogger.Info(context.Background(), "test message")

	entry := decodeLine(t, buf.String())
	if entry["cache.op"] != "add" {
		t.Errorf("expected cache.op='add', got %v", entry["cache.op"])
	}
	if entry["cache.namespace"] != "CARS" {
		t.Errorf("expected cache.namespace='CARS', got %v", entry["cache.namespace"])
	}
	if entry["cache.type"] != "car" {
		t.Errorf("expected cache.type='car', got %v", entry["cache.type"])
	}
	if _, ok := entry["cache.key"]; ok {
		t.Error("empty key should not be logged")
	}
	if entry["msg"] != "test message" || entry["level"] != "info" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

// TestLogger_WithOpDoesNotMutateParent verifies derived loggers are independent.
func TestLogger_WithOpDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	_ = logger.WithOp(OpMeta{Namespace: "CARS"})
	logger.Info(context.Background(), "plain")

	entry := decodeLine(t, buf.String())
	if _, ok := entry["cache.namespace"]; ok {
		t.Error("parent logger picked up child fields")
	}
}

// TestLogger_LevelFiltering verifies entries below the level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if decodeLine(t, lines[0])["level"] != "warn" {
		t.Errorf("expected warn first, got %s", lines[0])
	}
	if decodeLine(t, lines[1])["level"] != "error" {
		t.Errorf("expected error second, got %s", lines[1])
	}
}

// TestLogger_RedactsSensitiveFields verifies payload and credentials never reach the sink.
func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "request",
		Field{Key: "body", Value: `{"model":"A4"}`},
		Field{Key: "authorization", Value: "Bearer abc"},
		Field{Key: "key", Value: "CARS_AUDI_A4"},
	)

	entry := decodeLine(t, buf.String())
	if entry["body"] != "[REDACTED]" {
		t.Errorf("expected body redacted, got %v", entry["body"])
	}
	if entry["authorization"] != "[REDACTED]" {
		t.Errorf("expected authorization redacted, got %v", entry["authorization"])
	}
	if entry["key"] != "CARS_AUDI_A4" {
		t.Errorf("expected key to be kept, got %v", entry["key"])
	}
}

// TestParseLogLevel verifies level parsing and the info fallback.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseLogLevel(tc.in); got != tc.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// TestNopLogger verifies the no-op logger is usable and returns itself.
func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "ignored", Field{Key: "k", Value: 1})
	if l.WithOp(OpMeta{Operation: "add"}) == nil {
		t.Fatal("WithOp returned nil")
	}
}
