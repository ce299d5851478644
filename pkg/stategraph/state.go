package stategraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// StateSnapshot is a thread's state as of one checkpoint.
type StateSnapshot[S any] struct {
	Values   S
	ThreadID string
	RunID    string

	// NodeID is the node that produced Values.
	NodeID string

	// Next is the node Resume would run, END when the thread is finished.
	Next string

	// Interrupts are pending human-in-the-loop requests.
	Interrupts []checkpoint.Interrupt

	Sequence  int
	Timestamp time.Time
}

// Interrupted reports whether the thread is waiting for a resume value.
func (s StateSnapshot[S]) Interrupted() bool {
	return len(s.Interrupts) > 0
}

// Done reports whether the thread has reached END.
func (s StateSnapshot[S]) Done() bool {
	return s.Next == END
}

func snapshotOf[S any](cp *checkpoint.Checkpoint) (StateSnapshot[S], error) {
	values, err := decodeState[S](cp)
	if err != nil {
		return StateSnapshot[S]{}, err
	}
	return StateSnapshot[S]{
		Values:     values,
		ThreadID:   cp.ThreadID,
		RunID:      cp.RunID,
		NodeID:     cp.NodeID,
		Next:       cp.NextNode,
		Interrupts: cp.Interrupts,
		Sequence:   cp.Sequence,
		Timestamp:  cp.Timestamp,
	}, nil
}

// GetState returns the latest snapshot of a thread.
// Returns ErrNoCheckpoints if the thread has none.
func (cg *CompiledGraph[S]) GetState(ctx context.Context, store checkpoint.Store, threadID string) (StateSnapshot[S], error) {
	cp, err := latestCheckpoint(ctx, store, threadID)
	if err != nil {
		return StateSnapshot[S]{}, err
	}
	return snapshotOf[S](cp)
}

// History returns every stored snapshot of a thread, oldest first.
// The store keeps one checkpoint per node, so a node that ran several
// times appears once, at its latest position.
func (cg *CompiledGraph[S]) History(ctx context.Context, store checkpoint.Store, threadID string) ([]StateSnapshot[S], error) {
	infos, err := store.List(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	snapshots := make([]StateSnapshot[S], 0, len(infos))
	for _, info := range infos {
		cp, err := loadCheckpoint(ctx, store, threadID, info.NodeID)
		if err != nil {
			return nil, err
		}
		snap, err := snapshotOf[S](cp)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// UpdateState writes update into a thread as if asNode had produced it.
//
// The update is folded into the latest state with the graph reducer (or
// replaces it without one). With asNode empty, the latest checkpoint keeps
// its position: same next node, same pending interrupts. With asNode set,
// the next node is routed from asNode as if it had just run, and pending
// interrupts are dropped. asNode may be START to seed a thread, in which
// case the next Resume runs the graph from the beginning.
func (cg *CompiledGraph[S]) UpdateState(ctx context.Context, store checkpoint.Store, threadID string, update S, asNode string, opts ...RunOption) (StateSnapshot[S], error) {
	if ctx == nil {
		return StateSnapshot[S]{}, ErrNilContext
	}

	latest, err := latestCheckpoint(ctx, store, threadID)
	if err != nil && !errors.Is(err, ErrNoCheckpoints) {
		return StateSnapshot[S]{}, err
	}

	var previous S
	if latest != nil {
		if previous, err = decodeState[S](latest); err != nil {
			return StateSnapshot[S]{}, err
		}
	}
	state := cg.reduce(previous, update)

	cfg := newRunConfig(opts)
	cfg.checkpointStore = store
	cfg.threadID = threadID

	ec := asExecutionContext(ctx)
	ec.threadID = threadID
	ex := &execution[S]{cg: cg, cfg: &cfg, ec: ec, runID: ec.runID, threadID: threadID}
	if latest != nil {
		ex.sequence.Store(int64(latest.Sequence))
	}

	if asNode == "" && latest != nil {
		err = ex.save(latest.NodeID, latest.PrevNodeID, state, latest.NextNode, latest.Attempt, latest.Interrupts, latest.Resume, true)
	} else {
		err = cg.updateAs(ex, latest, state, asNode)
	}
	if err != nil {
		return StateSnapshot[S]{}, err
	}

	return cg.GetState(ctx, store, threadID)
}

// updateAs saves state under asNode with the next node routed from it.
func (cg *CompiledGraph[S]) updateAs(ex *execution[S], latest *checkpoint.Checkpoint, state S, asNode string) error {
	prev := ""
	if latest != nil {
		prev = latest.NodeID
	}

	if asNode == "" || asNode == START {
		return ex.save(START, prev, state, START, 1, nil, nil, true)
	}

	if !cg.HasNode(asNode) {
		return fmt.Errorf("%w: %s", ErrInvalidUpdateNode, asNode)
	}
	if cg.forkNodes[asNode] != nil {
		return fmt.Errorf("%w: %s fans out", ErrInvalidUpdateNode, asNode)
	}

	next, err := ex.nextNode(ex.ec, state, asNode, "")
	if err != nil {
		return err
	}
	return ex.save(asNode, prev, state, next, 1, nil, nil, true)
}
