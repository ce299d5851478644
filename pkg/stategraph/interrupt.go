package stategraph

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// interruptScope tracks Interrupt calls during one node execution.
type interruptScope struct {
	mu       sync.Mutex
	nodeID   string
	resume   []json.RawMessage
	next     int
	pending  []checkpoint.Interrupt
	inBranch bool
}

func newInterruptScope(nodeID string, resume []json.RawMessage) *interruptScope {
	return &interruptScope{nodeID: nodeID, resume: resume}
}

// reset prepares the scope for another attempt of the same node.
func (s *interruptScope) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
	s.pending = nil
}

func (s *interruptScope) pendingInterrupts() []checkpoint.Interrupt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]checkpoint.Interrupt, len(s.pending))
	copy(out, s.pending)
	return out
}

func (s *interruptScope) resumeValues() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, len(s.resume))
	copy(out, s.resume)
	return out
}

// Interrupt pauses the run to ask a human for input.
//
// The first time a node calls Interrupt, it returns an *InterruptError
// carrying payload; the node must return that error. The engine checkpoints
// the state from before the node ran, and Run returns the error. Resuming
// the thread with WithResumeValue re-executes the node from the top, and
// this time the call returns the resume value decoded into T.
//
// A node may call Interrupt several times: the n-th call returns the n-th
// resume value supplied across resumes. Code before an Interrupt call runs
// again on every resume, so keep side effects after it.
//
//	func approve(ctx stategraph.Context, s Plan) (stategraph.Command[Plan], error) {
//	    answer, err := stategraph.Interrupt[string](ctx, map[string]string{
//	        "question": "Apply this plan?", "plan": s.Text,
//	    })
//	    if err != nil {
//	        return stategraph.Command[Plan]{}, err
//	    }
//	    if answer == "yes" {
//	        return stategraph.Command[Plan]{Update: s, Goto: "apply"}, nil
//	    }
//	    return stategraph.Command[Plan]{Update: s, Goto: stategraph.END}, nil
//	}
func Interrupt[T any](ctx Context, payload any) (T, error) {
	var zero T

	ec, ok := ctx.(*executionContext)
	if !ok || ec.interrupts == nil {
		return zero, ErrInterruptOutsideNode
	}
	scope := ec.interrupts

	scope.mu.Lock()
	defer scope.mu.Unlock()

	if scope.inBranch {
		return zero, ErrInterruptInBranch
	}

	idx := scope.next
	scope.next++

	if idx < len(scope.resume) {
		var value T
		if err := json.Unmarshal(scope.resume[idx], &value); err != nil {
			return zero, fmt.Errorf("decode resume value %d for node %s: %w", idx, scope.nodeID, err)
		}
		return value, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("encode interrupt payload: %w", err)
	}
	scope.pending = append(scope.pending, checkpoint.Interrupt{
		ID:     uuid.NewString(),
		NodeID: scope.nodeID,
		Index:  idx,
		Value:  raw,
	})

	return zero, &InterruptError{
		NodeID:     scope.nodeID,
		ThreadID:   ec.threadID,
		Interrupts: append([]checkpoint.Interrupt(nil), scope.pending...),
	}
}
