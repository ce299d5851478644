package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/randalmurphal/stategraph"

// Span attribute keys.
const (
	AttrGraph    = attribute.Key("stategraph.graph")
	AttrRunID    = attribute.Key("stategraph.run_id")
	AttrThreadID = attribute.Key("stategraph.thread_id")
	AttrNodeID   = attribute.Key("stategraph.node_id")
)

// SpanManager handles trace span lifecycle. A run gets one
// "stategraph.run" span with a "stategraph.node.<id>" child per node.
// Use NewSpanManager for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	StartRunSpan(ctx context.Context, graphName, runID, threadID string) (context.Context, trace.Span)
	StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span)

	// EndSpanWithError ends span, marking it failed when err is non-nil.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span carried by ctx, if it is
	// recording.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager using the global OTel tracer
// provider at the time of the call.
func NewSpanManager() SpanManager {
	return NewSpanManagerWithProvider(otel.GetTracerProvider())
}

// NewSpanManagerWithProvider returns a SpanManager using tp.
func NewSpanManagerWithProvider(tp trace.TracerProvider) SpanManager {
	return &otelSpanManager{tracer: tp.Tracer(tracerName)}
}

func (m *otelSpanManager) StartRunSpan(ctx context.Context, graphName, runID, threadID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{AttrGraph.String(graphName), AttrRunID.String(runID)}
	if threadID != "" {
		attrs = append(attrs, AttrThreadID.String(threadID))
	}
	return m.tracer.Start(ctx, "stategraph.run", trace.WithAttributes(attrs...))
}

func (m *otelSpanManager) StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "stategraph.node."+nodeID, trace.WithAttributes(AttrNodeID.String(nodeID)))
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
