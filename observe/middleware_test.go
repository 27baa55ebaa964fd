package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type telemetry struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
	mw     *Middleware
}

func newTelemetry(t *testing.T) telemetry {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	var logs bytes.Buffer
	mw := NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", &logs))
	return telemetry{spans: spans, reader: reader, logs: &logs, mw: mw}
}

func (tel telemetry) collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := tel.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterTotal(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

// TestMiddleware_SuccessPath verifies a successful operation records telemetry.
func TestMiddleware_SuccessPath(t *testing.T) {
	tel := newTelemetry(t)
	meta := OpMeta{Operation: "add", Namespace: "CARS", Type: "car", Key: "AUDI_A4"}

	wrapped := tel.mw.Wrap(func(ctx context.Context, m OpMeta) (any, error) {
		return true, nil
	})
	result, err := wrapped(WithRequestID(context.Background(), "req-1"), meta)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result != true {
		t.Errorf("expected result true, got %v", result)
	}

	spans := tel.spans.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "cache.add" {
		t.Errorf("expected span name 'cache.add', got %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", spans[0].Status().Code)
	}
	wantAttr := attribute.String("cache.namespace", "CARS")
	found := false
	for _, a := range spans[0].Attributes() {
		if a == wantAttr {
			found = true
		}
	}
	if !found {
		t.Errorf("span missing %v: %v", wantAttr, spans[0].Attributes())
	}

	rm := tel.collect(t)
	if got := counterTotal(t, findMetric(rm, MetricOpTotal)); got != 1 {
		t.Errorf("expected %s=1, got %d", MetricOpTotal, got)
	}
	if got := counterTotal(t, findMetric(rm, MetricOpErrors)); got != 0 {
		t.Errorf("expected %s=0, got %d", MetricOpErrors, got)
	}
	if findMetric(rm, MetricOpDuration) == nil {
		t.Errorf("%s metric not found", MetricOpDuration)
	}

	line := tel.logs.String()
	if !strings.Contains(line, `"request_id":"req-1"`) {
		t.Errorf("expected request id in log, got %s", line)
	}
	if !strings.Contains(line, `"cache.op":"add"`) {
		t.Errorf("expected cache.op in log, got %s", line)
	}
}

// TestMiddleware_ErrorPath verifies a failed operation records error telemetry
// and returns the error unchanged.
func TestMiddleware_ErrorPath(t *testing.T) {
	tel := newTelemetry(t)
	boom := errors.New("boom")

	wrapped := tel.mw.Wrap(func(ctx context.Context, m OpMeta) (any, error) {
		return nil, boom
	})
	_, err := wrapped(context.Background(), OpMeta{Operation: "remove"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	spans := tel.spans.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected 1 errored span, got %+v", spans)
	}

	rm := tel.collect(t)
	if got := counterTotal(t, findMetric(rm, MetricOpErrors)); got != 1 {
		t.Errorf("expected %s=1, got %d", MetricOpErrors, got)
	}
	if !strings.Contains(tel.logs.String(), `"level":"error"`) {
		t.Errorf("expected error log line, got %s", tel.logs.String())
	}
}

// TestMiddleware_PropagatesSpanContext verifies the wrapped function sees the span.
func TestMiddleware_PropagatesSpanContext(t *testing.T) {
	tel := newTelemetry(t)

	wrapped := tel.mw.Wrap(func(ctx context.Context, m OpMeta) (any, error) {
		_, child := NewTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tel.spans)).Tracer("inner")).
			StartSpan(ctx, OpMeta{Operation: "store"})
		child.End()
		return nil, nil
	})
	if _, err := wrapped(context.Background(), OpMeta{Operation: "list"}); err != nil {
		t.Fatal(err)
	}

	spans := tel.spans.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	inner, outer := spans[0], spans[1]
	if inner.Parent().SpanID() != outer.SpanContext().SpanID() {
		t.Error("inner span is not a child of the operation span")
	}
}

// TestNewNoopMiddleware verifies the no-op middleware passes results through.
func TestNewNoopMiddleware(t *testing.T) {
	wrapped := NewNoopMiddleware().Wrap(func(ctx context.Context, m OpMeta) (any, error) {
		return "ok", nil
	})
	got, err := wrapped(context.Background(), OpMeta{Operation: "add"})
	if err != nil || got != "ok" {
		t.Fatalf("got (%v, %v)", got, err)
	}
}

// TestMiddlewareFromObserver_Nil verifies a nil observer is rejected.
func TestMiddlewareFromObserver_Nil(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("expected ErrNilObserver, got %v", err)
	}
}
