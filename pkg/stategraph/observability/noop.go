package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordNodeExecution(context.Context, string, time.Duration, error) {}
func (NoopMetrics) RecordGraphRun(context.Context, bool, time.Duration)               {}
func (NoopMetrics) RecordCheckpoint(context.Context, string, int64)                   {}
func (NoopMetrics) RecordInterrupt(context.Context, string)                           {}
func (NoopMetrics) RecordResume(context.Context, string, bool)                        {}

// Multi returns a recorder that forwards every call to each of recorders,
// skipping nils. With no recorders left it returns NoopMetrics.
func Multi(recorders ...MetricsRecorder) MetricsRecorder {
	var out multiMetrics
	for _, r := range recorders {
		switch r := r.(type) {
		case nil, NoopMetrics:
		case multiMetrics:
			out = append(out, r...)
		default:
			out = append(out, r)
		}
	}
	switch len(out) {
	case 0:
		return NoopMetrics{}
	case 1:
		return out[0]
	}
	return out
}

type multiMetrics []MetricsRecorder

func (m multiMetrics) RecordNodeExecution(ctx context.Context, nodeID string, d time.Duration, err error) {
	for _, r := range m {
		r.RecordNodeExecution(ctx, nodeID, d, err)
	}
}

func (m multiMetrics) RecordGraphRun(ctx context.Context, success bool, d time.Duration) {
	for _, r := range m {
		r.RecordGraphRun(ctx, success, d)
	}
}

func (m multiMetrics) RecordCheckpoint(ctx context.Context, nodeID string, size int64) {
	for _, r := range m {
		r.RecordCheckpoint(ctx, nodeID, size)
	}
}

func (m multiMetrics) RecordInterrupt(ctx context.Context, nodeID string) {
	for _, r := range m {
		r.RecordInterrupt(ctx, nodeID)
	}
}

func (m multiMetrics) RecordResume(ctx context.Context, nodeID string, withValue bool) {
	for _, r := range m {
		r.RecordResume(ctx, nodeID, withValue)
	}
}

// NoopSpanManager is a SpanManager that records nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

func (NoopSpanManager) StartRunSpan(ctx context.Context, _, _, _ string) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

func (NoopSpanManager) StartNodeSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

func (NoopSpanManager) EndSpanWithError(trace.Span, error)                          {}
func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
