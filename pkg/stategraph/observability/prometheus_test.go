package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordNodeExecution(ctx, "fetch", 10*time.Millisecond, nil)
	m.RecordNodeExecution(ctx, "fetch", 10*time.Millisecond, errors.New("boom"))
	m.RecordGraphRun(ctx, true, time.Second)
	m.RecordCheckpoint(ctx, "fetch", 512)
	m.RecordInterrupt(ctx, "review")
	m.RecordResume(ctx, "review", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodeExecutions.WithLabelValues("fetch", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodeExecutions.WithLabelValues("fetch", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.graphRuns.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interrupts.WithLabelValues("review")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resumes.WithLabelValues("review", "true")))

	count, err := testutil.GatherAndCount(reg, "stategraph_checkpoint_size_bytes")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMetrics(reg)
	assert.Error(t, err)
}
