package observability

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records stategraph metrics.
// Use NewMetricsRecorder for OTel, NewPrometheusMetrics for Prometheus,
// Multi to feed several, or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records one node attempt and whether it failed.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordGraphRun records a run finishing. Interrupted runs count as
	// successful.
	RecordGraphRun(ctx context.Context, success bool, duration time.Duration)

	// RecordCheckpoint records the encoded size of a saved checkpoint.
	RecordCheckpoint(ctx context.Context, nodeID string, sizeBytes int64)

	// RecordInterrupt records a run suspending at nodeID.
	RecordInterrupt(ctx context.Context, nodeID string)

	// RecordResume records a thread continuing at nodeID, and whether the
	// caller supplied a resume value.
	RecordResume(ctx context.Context, nodeID string, withValue bool)
}

const meterName = "github.com/randalmurphal/stategraph"

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	graphRuns      metric.Int64Counter
	graphLatency   metric.Float64Histogram
	checkpointSize metric.Int64Histogram
	interrupts     metric.Int64Counter
	resumes        metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider, shared by every caller. If the instruments cannot be
// created it logs a warning and returns NoopMetrics.
func NewMetricsRecorder() MetricsRecorder {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter(meterName))
	})
	if defaultMetricsErr != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", defaultMetricsErr.Error()))
		return NoopMetrics{}
	}
	return defaultMetrics
}

// NewMetricsRecorderWithProvider creates instruments on mp instead of the
// global provider.
func NewMetricsRecorderWithProvider(mp metric.MeterProvider) (MetricsRecorder, error) {
	return newOtelMetrics(mp.Meter(meterName))
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	latency := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("ms"))
		errs = append(errs, err)
		return h
	}

	m := &otelMetrics{
		nodeExecutions: counter("stategraph.node.executions", "Number of node executions"),
		nodeLatency:    latency("stategraph.node.latency_ms", "Node execution latency in milliseconds"),
		nodeErrors:     counter("stategraph.node.errors", "Number of node execution errors"),
		graphRuns:      counter("stategraph.graph.runs", "Number of graph runs"),
		graphLatency:   latency("stategraph.graph.latency_ms", "Graph run latency in milliseconds"),
		interrupts:     counter("stategraph.interrupts", "Number of runs suspended by an interrupt"),
		resumes:        counter("stategraph.resumes", "Number of threads resumed from a checkpoint"),
	}
	size, err := meter.Int64Histogram("stategraph.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint size in bytes"),
		metric.WithUnit("By"),
	)
	errs = append(errs, err)
	m.checkpointSize = size

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func nodeAttr(nodeID string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("node_id", nodeID))
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := nodeAttr(nodeID)
	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordGraphRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.graphRuns.Add(ctx, 1, attrs)
	m.graphLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordCheckpoint(ctx context.Context, nodeID string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes, nodeAttr(nodeID))
}

func (m *otelMetrics) RecordInterrupt(ctx context.Context, nodeID string) {
	m.interrupts.Add(ctx, 1, nodeAttr(nodeID))
}

func (m *otelMetrics) RecordResume(ctx context.Context, nodeID string, withValue bool) {
	m.resumes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_id", nodeID),
		attribute.String("with_value", strconv.FormatBool(withValue)),
	))
}
