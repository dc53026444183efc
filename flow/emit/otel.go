package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating OpenTelemetry spans.
//
// Each event becomes a span named after event.Msg, carrying the workflow
// and node as flowcheck.* attributes plus every Meta entry. Error-severity
// findings set the span status to error.
//
// Usage:
//
//	tracer := otel.Tracer("flowcheck")
//	emitter := emit.NewOTelEmitter(tracer)
//	v, _ := flow.NewValidator(flow.WithEmitter(emitter))
//
// The application configures the OpenTelemetry provider as usual:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter using the given tracer
// (typically otel.Tracer("flowcheck")).
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates an OpenTelemetry span for the event.
//
// Events are points in time, so each span is ended immediately after its
// attributes are attached.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("flowcheck.workflow", event.Workflow),
		attribute.String("flowcheck.node", event.Node),
	)
	o.addMetaAttributes(span, event.Meta)

	if sev, ok := event.Meta["severity"].(string); ok && sev == "error" {
		detail, _ := event.Meta["detail"].(string)
		span.SetStatus(codes.Error, detail)
	}
}

// Flush forces export of all pending spans. Call before shutdown so
// buffered spans reach the backend.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()

	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

// addMetaAttributes converts event metadata to span attributes under the
// flowcheck namespace.
func (o *OTelEmitter) addMetaAttributes(span trace.Span, meta map[string]any) {
	for key, value := range meta {
		attrKey := "flowcheck." + key
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
}
