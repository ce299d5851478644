package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest installs a manual-reader meter provider for the test.
func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown meter provider: %v", err)
		}
	})
	return reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterFor returns the int64 sum for the datapoint labelled node_id=nodeID.
func counterFor(t *testing.T, rm *metricdata.ResourceMetrics, name, nodeID string) int64 {
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] for %s", name)
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value("node_id"); ok && v.AsString() == nodeID {
			return dp.Value
		}
	}
	return 0
}

func TestNewMetricsRecorder(t *testing.T) {
	setupMetricsTest(t)

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "expected real metrics recorder")
}

func TestOtelMetrics_RecordNodeExecution(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics(otel.Meter(meterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordNodeExecution(ctx, "process", 50*time.Millisecond, nil)
	m.RecordNodeExecution(ctx, "process", 20*time.Millisecond, nil)
	m.RecordNodeExecution(ctx, "failing", 10*time.Millisecond, errors.New("node failed"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), counterFor(t, rm, "stategraph.node.executions", "process"))
	assert.Equal(t, int64(1), counterFor(t, rm, "stategraph.node.errors", "failing"))
	assert.Equal(t, int64(0), counterFor(t, rm, "stategraph.node.errors", "process"))

	latency := findMetric(rm, "stategraph.node.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.NotEmpty(t, hist.DataPoints)
}

func TestOtelMetrics_RecordGraphRun(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics(otel.Meter(meterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordGraphRun(ctx, true, 500*time.Millisecond)
	m.RecordGraphRun(ctx, false, 100*time.Millisecond)

	rm := collectMetrics(t, reader)
	runs := findMetric(rm, "stategraph.graph.runs")
	require.NotNil(t, runs)
	sum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2) // success=true and success=false

	assert.NotNil(t, findMetric(rm, "stategraph.graph.latency_ms"))
}

func TestOtelMetrics_RecordCheckpointAndInterrupt(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics(otel.Meter(meterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCheckpoint(ctx, "save_node", 2048)
	m.RecordInterrupt(ctx, "human_review")
	m.RecordInterrupt(ctx, "human_review")

	rm := collectMetrics(t, reader)

	size := findMetric(rm, "stategraph.checkpoint.size_bytes")
	require.NotNil(t, size)
	hist, ok := size.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	assert.Equal(t, int64(2), counterFor(t, rm, "stategraph.interrupts", "human_review"))
}

func TestNewMetricsRecorderWithProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetricsRecorderWithProvider(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordResume(ctx, "human_review", true)
	m.RecordResume(ctx, "human_review", false)

	rm := collectMetrics(t, reader)
	resumes := findMetric(rm, "stategraph.resumes")
	require.NotNil(t, resumes)
	sum, ok := resumes.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2, "one series per with_value label")
	assert.Nil(t, findMetric(rm, "stategraph.interrupts"), "nothing recorded, nothing exported")
}
