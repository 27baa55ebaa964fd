package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// TestConfig_Validate covers the configuration error sentinels.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "minimal",
			cfg:  Config{ServiceName: "nscached"},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "bad tracing exporter",
			cfg: Config{ServiceName: "svc", Tracing: TracingConfig{
				Enabled: true, Exporter: "jaeger", SamplePct: 1,
			}},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "bad sample pct",
			cfg: Config{ServiceName: "svc", Tracing: TracingConfig{
				Enabled: true, Exporter: "stdout", SamplePct: 1.5,
			}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "bad metrics exporter",
			cfg: Config{ServiceName: "svc", Metrics: MetricsConfig{
				Enabled: true, Exporter: "statsd",
			}},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "bad log level",
			cfg: Config{ServiceName: "svc", Logging: LoggingConfig{
				Enabled: true, Level: "trace",
			}},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "disabled sections are not validated",
			cfg: Config{ServiceName: "svc",
				Tracing: TracingConfig{Exporter: "bogus"},
				Metrics: MetricsConfig{Exporter: "bogus"},
				Logging: LoggingConfig{Level: "bogus"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// TestNewObserver_AllDisabled verifies no-op providers are used when disabled.
func TestNewObserver_AllDisabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "nscached"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("expected non-nil telemetry primitives")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

// TestNewObserver_NoneExporters verifies the enabled "none" exporters wire up.
func TestNewObserver_NoneExporters(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "nscached",
		Version:     "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "error"},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	wrapped := mw.Wrap(func(ctx context.Context, m OpMeta) (any, error) { return nil, nil })
	if _, err := wrapped(context.Background(), OpMeta{Operation: "list"}); err != nil {
		t.Fatal(err)
	}
}

// TestNewObserver_LogOutput verifies log lines reach the configured writer.
func TestNewObserver_LogOutput(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "nscached",
		Logging:     LoggingConfig{Enabled: true, Level: "info", Output: &buf},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	obs.Logger().Info(context.Background(), "ready", Field{Key: "addr", Value: ":8080"})
	if got := buf.String(); !strings.Contains(got, `"msg":"ready"`) || !strings.Contains(got, `"addr":":8080"`) {
		t.Errorf("log output = %q", got)
	}
}

// TestObserver_ShutdownIdempotent verifies repeated shutdowns are harmless.
func TestObserver_ShutdownIdempotent(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "nscached",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	for range 2 {
		if err := obs.Shutdown(context.Background()); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
	}
}

// TestNewObserver_InvalidConfig verifies validation runs first.
func TestNewObserver_InvalidConfig(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("expected ErrMissingServiceName, got %v", err)
	}
}

// TestOpMeta verifies span naming and validation.
func TestOpMeta(t *testing.T) {
	meta := OpMeta{Operation: "list", Namespace: "CARS"}
	if got := meta.SpanName(); got != "cache.list" {
		t.Errorf("SpanName() = %q, want cache.list", got)
	}
	if err := meta.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (OpMeta{}).Validate(); !errors.Is(err, ErrMissingOperation) {
		t.Errorf("expected ErrMissingOperation, got %v", err)
	}
}

// TestRequestID verifies request id round-trips through the context.
func TestRequestID(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
	id := NewRequestID()
	if len(id) != 36 {
		t.Errorf("expected uuid string, got %q", id)
	}
	if got := RequestID(WithRequestID(context.Background(), id)); got != id {
		t.Errorf("RequestID() = %q, want %q", got, id)
	}
}
