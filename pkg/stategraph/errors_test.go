package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

func TestNodeError_Error(t *testing.T) {
	err := &NodeError{NodeID: "process", Op: "execute", Err: errors.New("connection failed")}
	assert.Equal(t, "node process: execute: connection failed", err.Error())

	err.Attempts = 3
	assert.Equal(t, "node process: execute (after 3 attempts): connection failed", err.Error())
}

func TestNodeError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying")
	err := &NodeError{NodeID: "test", Op: "execute", Err: underlying}

	assert.ErrorIs(t, err, underlying)
}

func TestPanicError_Error(t *testing.T) {
	err := &PanicError{NodeID: "crash", Value: "unexpected nil", Stack: "goroutine 1 [running]:\n..."}

	assert.Equal(t, "node crash panicked: unexpected nil", err.Error())
}

func TestCancellationError(t *testing.T) {
	before := &CancellationError{NodeID: "pending", Cause: context.Canceled}
	assert.Equal(t, "cancelled before node pending: context canceled", before.Error())
	assert.ErrorIs(t, before, context.Canceled)

	during := &CancellationError{NodeID: "running", Cause: context.DeadlineExceeded, WasExecuting: true}
	assert.Equal(t, "cancelled during node running: context deadline exceeded", during.Error())
	assert.ErrorIs(t, during, context.DeadlineExceeded)
}

func TestRouterError(t *testing.T) {
	err := &RouterError{FromNode: "triage", Returned: "medium", Err: ErrUnknownRoute}

	assert.Equal(t, `router from triage returned "medium": router returned label missing from path map`, err.Error())
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestMaxIterationsError(t *testing.T) {
	err := &MaxIterationsError{Max: 10, LastNodeID: "loop"}

	assert.Equal(t, "exceeded maximum iterations (10) at node loop", err.Error())
	assert.ErrorIs(t, err, ErrMaxIterations)
}

func TestCheckpointError(t *testing.T) {
	underlying := errors.New("disk full")
	err := &CheckpointError{NodeID: "save", Op: "save", Err: underlying}

	assert.Equal(t, "checkpoint save at node save: disk full", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestForkJoinError(t *testing.T) {
	conflict := &ConflictError{Field: "summary", Branches: []string{"a", "b"}}
	err := &ForkJoinError{ForkNodeID: START, Err: conflict}

	assert.ErrorIs(t, err, ErrConflictingUpdate)
	assert.Contains(t, err.Error(), `field "summary" written by branches a, b`)

	var target *ConflictError
	assert.ErrorAs(t, err, &target)
	assert.Equal(t, "summary", target.Field)
}

func TestConflictError_NonObjectState(t *testing.T) {
	err := &ConflictError{Branches: []string{"x", "y"}}
	assert.Equal(t, "conflicting parallel updates: branches x, y", err.Error())
}

func TestInterruptError(t *testing.T) {
	err := &InterruptError{
		NodeID:   "approve",
		ThreadID: "t-1",
		Interrupts: []checkpoint.Interrupt{
			{NodeID: "approve", Index: 0, Value: json.RawMessage(`{"question":"ok?"}`)},
		},
	}

	assert.Equal(t, "graph interrupted at node approve (thread t-1)", err.Error())
	assert.ErrorIs(t, err, ErrInterrupted)

	var payload struct {
		Question string `json:"question"`
	}
	assert.NoError(t, err.Decode(&payload))
	assert.Equal(t, "ok?", payload.Question)

	empty := &InterruptError{NodeID: "approve"}
	assert.Equal(t, "graph interrupted at node approve", empty.Error())
	assert.Error(t, empty.Decode(&payload))
}
