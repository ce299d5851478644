package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements MetricsRecorder with Prometheus collectors.
type PrometheusMetrics struct {
	nodeExecutions *prometheus.CounterVec
	nodeDuration   *prometheus.HistogramVec
	graphRuns      *prometheus.CounterVec
	graphDuration  prometheus.Histogram
	checkpointSize *prometheus.HistogramVec
	interrupts     *prometheus.CounterVec
	resumes        *prometheus.CounterVec
}

var _ MetricsRecorder = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		nodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stategraph_node_executions_total",
				Help: "Total number of node executions",
			},
			[]string{"node_id", "status"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stategraph_node_duration_seconds",
				Help:    "Duration of node executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node_id"},
		),
		graphRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stategraph_graph_runs_total",
				Help: "Total number of graph runs",
			},
			[]string{"success"},
		),
		graphDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stategraph_graph_duration_seconds",
				Help:    "Duration of graph runs",
				Buckets: prometheus.DefBuckets,
			},
		),
		checkpointSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stategraph_checkpoint_size_bytes",
				Help:    "Size of saved checkpoints",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"node_id"},
		),
		interrupts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stategraph_interrupts_total",
				Help: "Total number of runs suspended by an interrupt",
			},
			[]string{"node_id"},
		),
		resumes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stategraph_resumes_total",
				Help: "Total number of threads resumed from a checkpoint",
			},
			[]string{"node_id", "with_value"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.nodeExecutions, m.nodeDuration, m.graphRuns,
		m.graphDuration, m.checkpointSize, m.interrupts, m.resumes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordNodeExecution(_ context.Context, nodeID string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.nodeExecutions.WithLabelValues(nodeID, status).Inc()
	m.nodeDuration.WithLabelValues(nodeID).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordGraphRun(_ context.Context, success bool, duration time.Duration) {
	m.graphRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
	m.graphDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordCheckpoint(_ context.Context, nodeID string, sizeBytes int64) {
	m.checkpointSize.WithLabelValues(nodeID).Observe(float64(sizeBytes))
}

func (m *PrometheusMetrics) RecordInterrupt(_ context.Context, nodeID string) {
	m.interrupts.WithLabelValues(nodeID).Inc()
}

func (m *PrometheusMetrics) RecordResume(_ context.Context, nodeID string, withValue bool) {
	m.resumes.WithLabelValues(nodeID, strconv.FormatBool(withValue)).Inc()
}
