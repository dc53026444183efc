package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*tracetest.InMemoryExporter, *OTelEmitter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return exporter, NewOTelEmitter(otel.Tracer("test"))
}

func attributeMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func TestOTelEmitter_Emit(t *testing.T) {
	exporter, emitter := newTestTracer(t)

	emitter.Emit(Event{
		Workflow: "orders",
		Node:     "Route",
		Msg:      "finding",
		Meta: map[string]any{
			"kind":     "incomplete_branch",
			"severity": "warning",
		},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]

	if span.Name != "finding" {
		t.Errorf("span name = %q, want %q", span.Name, "finding")
	}

	attrs := attributeMap(span.Attributes)
	if got := attrs["flowcheck.workflow"]; got != "orders" {
		t.Errorf("flowcheck.workflow = %v, want %q", got, "orders")
	}
	if got := attrs["flowcheck.node"]; got != "Route" {
		t.Errorf("flowcheck.node = %v, want %q", got, "Route")
	}
	if got := attrs["flowcheck.kind"]; got != "incomplete_branch" {
		t.Errorf("flowcheck.kind = %v, want %q", got, "incomplete_branch")
	}
	if span.Status.Code == codes.Error {
		t.Error("warning finding set error status")
	}
}

func TestOTelEmitter_ErrorFindingSetsStatus(t *testing.T) {
	exporter, emitter := newTestTracer(t)

	emitter.Emit(Event{
		Workflow: "orders",
		Node:     "Fetch",
		Msg:      "finding",
		Meta: map[string]any{
			"kind":     "missing_required_field",
			"severity": "error",
			"detail":   `node "Fetch": required field "url" is missing`,
		},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want error", spans[0].Status.Code)
	}
	if spans[0].Status.Description == "" {
		t.Error("error status has no description")
	}
}

func TestOTelEmitter_MetaTypes(t *testing.T) {
	exporter, emitter := newTestTracer(t)

	emitter.Emit(Event{
		Workflow: "orders",
		Msg:      "validate_start",
		Meta: map[string]any{
			"nodes":       5,
			"connections": int64(6),
			"ratio":       1.2,
			"lenient":     true,
			"other":       []int{1},
		},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	attrs := attributeMap(spans[0].Attributes)

	if got := attrs["flowcheck.nodes"]; got != int64(5) {
		t.Errorf("flowcheck.nodes = %v (%T), want 5", got, got)
	}
	if got := attrs["flowcheck.connections"]; got != int64(6) {
		t.Errorf("flowcheck.connections = %v, want 6", got)
	}
	if got := attrs["flowcheck.ratio"]; got != 1.2 {
		t.Errorf("flowcheck.ratio = %v, want 1.2", got)
	}
	if got := attrs["flowcheck.lenient"]; got != true {
		t.Errorf("flowcheck.lenient = %v, want true", got)
	}
	if got := attrs["flowcheck.other"]; got != "[1]" {
		t.Errorf("flowcheck.other = %v, want stringified fallback", got)
	}
}

func TestOTelEmitter_Flush(t *testing.T) {
	_, emitter := newTestTracer(t)

	emitter.Emit(Event{Workflow: "orders", Msg: "validate_end"})

	if err := emitter.Flush(context.Background()); err != nil {
		t.Errorf("Flush() error: %v", err)
	}
}
