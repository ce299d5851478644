package stategraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Compile errors.
var (
	ErrNoEntryPoint  = errors.New("entry point not set")
	ErrEntryNotFound = errors.New("entry point node not found")
	ErrNodeNotFound  = errors.New("node not found")
	ErrNoPathToEnd   = errors.New("no path to END from start")
)

// Run errors.
var (
	ErrMaxIterations        = errors.New("exceeded maximum iterations")
	ErrNilContext           = errors.New("context cannot be nil")
	ErrInvalidRouterResult  = errors.New("router returned empty string")
	ErrRouterTargetNotFound = errors.New("router returned unknown node")
	ErrUnknownRoute         = errors.New("router returned label missing from path map")
	ErrConflictingUpdate    = errors.New("conflicting parallel updates")
	ErrInvalidInput         = errors.New("invalid input")
)

// Interrupt errors. Every *InterruptError matches ErrInterrupted.
var (
	ErrInterrupted          = errors.New("graph interrupted")
	ErrInterruptInBranch    = errors.New("interrupt is not supported inside parallel branches")
	ErrInterruptOutsideNode = errors.New("interrupt called outside a graph node")
)

// Persistence errors, returned by checkpointing, Resume and the state
// inspection methods.
var (
	ErrThreadIDRequired          = errors.New("thread ID required for checkpointing")
	ErrSerializeState            = errors.New("failed to serialize state")
	ErrDeserializeState          = errors.New("failed to deserialize state")
	ErrNoCheckpoints             = errors.New("no checkpoints found for thread")
	ErrInvalidResumeNode         = errors.New("invalid resume node")
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")
	ErrInvalidUpdateNode         = errors.New("invalid update node")
)

// CheckpointError is a failed store or codec step. Op is one of save,
// load, serialize or marshal.
type CheckpointError struct {
	NodeID string
	Op     string
	Err    error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }

// NodeError is returned when a node's function fails. Attempts counts
// retries.
type NodeError struct {
	NodeID   string
	Op       string
	Attempts int
	Err      error
}

func (e *NodeError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("node %s: %s (after %d attempts): %v", e.NodeID, e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// PanicError is a recovered panic from a node, with the goroutine stack at
// the point of the panic.
type PanicError struct {
	NodeID string
	Value  any
	Stack  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError is returned when ctx ends mid-run. State holds the last
// merged state so callers can inspect or persist it.
type CancellationError struct {
	NodeID       string
	State        any
	Cause        error
	WasExecuting bool // cancelled inside the node rather than between nodes
}

func (e *CancellationError) Error() string {
	where := "before"
	if e.WasExecuting {
		where = "during"
	}
	return fmt.Sprintf("cancelled %s node %s: %v", where, e.NodeID, e.Cause)
}

func (e *CancellationError) Unwrap() error { return e.Cause }

// RouterError reports a conditional edge whose router picked something
// unusable.
type RouterError struct {
	FromNode string
	Returned string
	Err      error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromNode, e.Returned, e.Err)
}

func (e *RouterError) Unwrap() error { return e.Err }

// MaxIterationsError stops a run that kept looping. LastNodeID would have
// run next.
type MaxIterationsError struct {
	Max        int
	LastNodeID string
	State      any
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at node %s", e.Max, e.LastNodeID)
}

func (e *MaxIterationsError) Unwrap() error { return ErrMaxIterations }

// ForkJoinError is a branch failure inside a fan-out.
type ForkJoinError struct {
	ForkNodeID string
	BranchID   string
	Err        error
}

func (e *ForkJoinError) Error() string {
	return fmt.Sprintf("fork/join error at %s (branch %s): %v", e.ForkNodeID, e.BranchID, e.Err)
}

func (e *ForkJoinError) Unwrap() error { return e.Err }

// ConflictError reports two parallel branches writing different values to
// the same top-level state field. Field is empty for non-object states.
type ConflictError struct {
	Field    string
	Branches []string
}

func (e *ConflictError) Error() string {
	branches := strings.Join(e.Branches, ", ")
	if e.Field == "" {
		return fmt.Sprintf("%v: branches %s", ErrConflictingUpdate, branches)
	}
	return fmt.Sprintf("%v: field %q written by branches %s", ErrConflictingUpdate, e.Field, branches)
}

func (e *ConflictError) Unwrap() error { return ErrConflictingUpdate }

// InterruptError reports that a run suspended waiting for human input.
// NodeID re-executes when the thread is resumed. ThreadID is empty without
// checkpointing, in which case the run cannot be resumed.
type InterruptError struct {
	NodeID     string
	ThreadID   string
	Interrupts []checkpoint.Interrupt // oldest first
}

func (e *InterruptError) Error() string {
	msg := "graph interrupted at node " + e.NodeID
	if e.ThreadID != "" {
		msg += " (thread " + e.ThreadID + ")"
	}
	return msg
}

func (e *InterruptError) Unwrap() error { return ErrInterrupted }

// Decode unmarshals the most recent interrupt payload into v.
func (e *InterruptError) Decode(v any) error {
	if len(e.Interrupts) == 0 {
		return fmt.Errorf("interrupt at %s carries no payload", e.NodeID)
	}
	return json.Unmarshal(e.Interrupts[len(e.Interrupts)-1].Value, v)
}
