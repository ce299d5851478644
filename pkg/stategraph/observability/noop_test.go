package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordNodeExecution(ctx, "node", 100*time.Millisecond, nil)
		m.RecordNodeExecution(ctx, "node", 0, errors.New("test"))
		m.RecordGraphRun(ctx, true, time.Second)
		m.RecordCheckpoint(ctx, "node", 1024)
		m.RecordInterrupt(ctx, "node")
		m.RecordResume(ctx, "node", true)
	})
}

// countingMetrics counts every call it receives.
type countingMetrics struct{ calls int }

func (c *countingMetrics) RecordNodeExecution(context.Context, string, time.Duration, error) {
	c.calls++
}
func (c *countingMetrics) RecordGraphRun(context.Context, bool, time.Duration) { c.calls++ }
func (c *countingMetrics) RecordCheckpoint(context.Context, string, int64)     { c.calls++ }
func (c *countingMetrics) RecordInterrupt(context.Context, string)             { c.calls++ }
func (c *countingMetrics) RecordResume(context.Context, string, bool)          { c.calls++ }

func TestMulti(t *testing.T) {
	assert.Equal(t, NoopMetrics{}, Multi())
	assert.Equal(t, NoopMetrics{}, Multi(nil, NoopMetrics{}))

	only := &countingMetrics{}
	assert.Same(t, only, Multi(nil, only))

	a, b := &countingMetrics{}, &countingMetrics{}
	m := Multi(Multi(a, NoopMetrics{}, b), nil)
	assert.Len(t, m, 2, "nested fan-outs flatten")

	ctx := context.Background()
	m.RecordNodeExecution(ctx, "n", time.Millisecond, nil)
	m.RecordGraphRun(ctx, true, time.Millisecond)
	m.RecordCheckpoint(ctx, "n", 10)
	m.RecordInterrupt(ctx, "n")
	m.RecordResume(ctx, "n", false)

	assert.Equal(t, 5, a.calls)
	assert.Equal(t, 5, b.calls)
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}

	t.Run("returns same context", func(t *testing.T) {
		ctx := context.Background()
		runCtx, span := sm.StartRunSpan(ctx, "graph", "run-1", "thread-1")
		assert.Equal(t, ctx, runCtx)
		assert.False(t, span.IsRecording())

		nodeCtx, span := sm.StartNodeSpan(ctx, "process")
		assert.Equal(t, ctx, nodeCtx)
		assert.False(t, span.IsRecording())
	})

	t.Run("end and events do not panic", func(t *testing.T) {
		_, span := sm.StartRunSpan(context.Background(), "g", "r", "")
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(nil, nil)
			sm.EndSpanWithError(span, errors.New("test error"))
			sm.AddSpanEvent(context.Background(), "event", attribute.String("key", "value"))
		})
	})
}
