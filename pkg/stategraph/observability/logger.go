// Package observability provides structured logging, metrics and
// distributed tracing for stategraph runs.
//
// Logging uses log/slog. Metrics are recorded through OpenTelemetry or
// Prometheus, tracing through OpenTelemetry. Everything is opt-in and has
// a no-op implementation when disabled.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Attribute keys shared by every record the engine writes.
const (
	KeyGraph    = "graph"
	KeyRunID    = "run_id"
	KeyThreadID = "thread_id"
	KeyNodeID   = "node_id"
	KeyAttempt  = "attempt"
	KeyError    = "error"
)

// NodeLogger returns logger with the identity of one node attempt bound.
// thread_id is omitted when empty. A nil logger stays nil.
func NodeLogger(logger *slog.Logger, runID, threadID, nodeID string, attempt int) *slog.Logger {
	if logger == nil {
		return nil
	}
	attrs := make([]any, 0, 4)
	attrs = append(attrs, slog.String(KeyRunID, runID))
	if threadID != "" {
		attrs = append(attrs, slog.String(KeyThreadID, threadID))
	}
	attrs = append(attrs, slog.String(KeyNodeID, nodeID), slog.Int(KeyAttempt, attempt))
	return logger.With(attrs...)
}

// RunLog writes the lifecycle records of one run. Every record carries the
// run's graph, run_id and thread_id. A RunLog over a nil logger discards
// everything, so callers never check.
type RunLog struct {
	logger *slog.Logger
}

// NewRunLog binds a run's identity to logger. Empty values are left out.
func NewRunLog(logger *slog.Logger, graph, runID, threadID string) RunLog {
	if logger == nil {
		return RunLog{}
	}
	var attrs []any
	if runID != "" {
		attrs = append(attrs, slog.String(KeyRunID, runID))
	}
	if graph != "" {
		attrs = append(attrs, slog.String(KeyGraph, graph))
	}
	if threadID != "" {
		attrs = append(attrs, slog.String(KeyThreadID, threadID))
	}
	return RunLog{logger: logger.With(attrs...)}
}

func (l RunLog) log(level slog.Level, msg string, attrs ...slog.Attr) {
	if l.logger == nil {
		return
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func errAttr(err error) slog.Attr {
	return slog.String(KeyError, err.Error())
}

func ms(d time.Duration) slog.Attr {
	return slog.Float64("duration_ms", float64(d.Microseconds())/1000)
}

// Started logs the run beginning.
func (l RunLog) Started() {
	l.log(slog.LevelInfo, "graph run starting")
}

// Completed logs a run reaching END.
func (l RunLog) Completed(d time.Duration, nodes int) {
	l.log(slog.LevelInfo, "graph run completed", ms(d), slog.Int("nodes_executed", nodes))
}

// Failed logs a run stopping on err. lastNode may be empty.
func (l RunLog) Failed(err error, d time.Duration, lastNode string) {
	l.log(slog.LevelError, "graph run failed", errAttr(err), ms(d), slog.String("last_node", lastNode))
}

// Interrupted logs a run suspending at nodeID with pending questions.
func (l RunLog) Interrupted(nodeID string, pending int) {
	l.log(slog.LevelInfo, "graph run interrupted",
		slog.String(KeyNodeID, nodeID), slog.Int("pending_interrupts", pending))
}

// Resumed logs a thread continuing at nodeID from checkpoint sequence.
func (l RunLog) Resumed(nodeID string, sequence int, withValue bool) {
	l.log(slog.LevelInfo, "resuming from checkpoint",
		slog.String("next_node", nodeID),
		slog.Int("sequence", sequence),
		slog.Bool("resume_value", withValue))
}

// NodeStarted logs a node about to run.
func (l RunLog) NodeStarted(nodeID string) {
	l.log(slog.LevelDebug, "node starting", slog.String(KeyNodeID, nodeID))
}

// NodeCompleted logs a node that returned without error.
func (l RunLog) NodeCompleted(nodeID string, d time.Duration) {
	l.log(slog.LevelDebug, "node completed", slog.String(KeyNodeID, nodeID), ms(d))
}

// NodeFailed logs a node error after retries gave up.
func (l RunLog) NodeFailed(nodeID string, err error) {
	l.log(slog.LevelError, "node failed", slog.String(KeyNodeID, nodeID), errAttr(err))
}

// NodeRetry logs a failed attempt that will run again after delay.
func (l RunLog) NodeRetry(nodeID string, attempt int, delay time.Duration, err error) {
	l.log(slog.LevelWarn, "node attempt failed, retrying",
		slog.String(KeyNodeID, nodeID),
		slog.Int(KeyAttempt, attempt),
		slog.Duration("delay", delay),
		errAttr(err))
}

// ForkJoined logs parallel branches from forkID merging at joinID.
func (l RunLog) ForkJoined(forkID, joinID string, branches int, d time.Duration) {
	l.log(slog.LevelDebug, "fork/join completed",
		slog.String("fork_node", forkID),
		slog.String("join_node", joinID),
		slog.Int("branches", branches),
		ms(d))
}

// CheckpointSaved logs a checkpoint written after nodeID.
func (l RunLog) CheckpointSaved(nodeID string, sizeBytes int) {
	l.log(slog.LevelDebug, "checkpoint saved", slog.String(KeyNodeID, nodeID), slog.Int("size_bytes", sizeBytes))
}

// CheckpointFailed logs a non-fatal checkpoint error. op is the failed
// step: serialize, marshal or save.
func (l RunLog) CheckpointFailed(nodeID, op string, err error) {
	l.log(slog.LevelWarn, "checkpoint failed",
		slog.String(KeyNodeID, nodeID), slog.String("operation", op), errAttr(err))
}
