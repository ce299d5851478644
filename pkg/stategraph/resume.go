package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// resumeConfig holds options for Resume and ResumeFrom.
type resumeConfig struct {
	stateOverride func(any) any
	validateState func(any) error
	replayNode    bool
	resumeValue   json.RawMessage
	hasValue      bool
	valueErr      error
	gotoNode      string
	runOptions    []RunOption
}

// ResumeOption configures Resume and ResumeFrom.
type ResumeOption func(*resumeConfig)

// WithResumeValue answers the pending interrupt. The interrupted node
// re-executes and its next Interrupt call returns v.
func WithResumeValue(v any) ResumeOption {
	return func(c *resumeConfig) {
		raw, err := json.Marshal(v)
		c.resumeValue, c.hasValue, c.valueErr = raw, true, err
	}
}

// WithResumeGoto continues at node instead of the checkpoint's next node.
// Pending interrupts are discarded unless node is the interrupted node.
func WithResumeGoto(node string) ResumeOption {
	return func(c *resumeConfig) {
		c.gotoNode = node
	}
}

// WithStateOverride modifies the loaded state before execution continues.
// fn receives the state as S (boxed) and must return an S.
func WithStateOverride(fn func(any) any) ResumeOption {
	return func(c *resumeConfig) {
		c.stateOverride = fn
	}
}

// WithStateValidation rejects the loaded (and overridden) state when fn fails.
func WithStateValidation(fn func(any) error) ResumeOption {
	return func(c *resumeConfig) {
		c.validateState = fn
	}
}

// WithReplayNode re-executes the checkpointed node instead of continuing
// after it.
func WithReplayNode() ResumeOption {
	return func(c *resumeConfig) {
		c.replayNode = true
	}
}

// WithRunOptions applies run options (logging, metrics, serializer, max
// iterations) to the resumed execution. Checkpointing and thread options
// are set by Resume itself.
func WithRunOptions(opts ...RunOption) ResumeOption {
	return func(c *resumeConfig) {
		c.runOptions = append(c.runOptions, opts...)
	}
}

// Resume continues a thread from its latest checkpoint.
//
// If the thread is suspended on an interrupt, the interrupted node runs
// again; pass WithResumeValue to answer it. Otherwise execution continues at
// the checkpoint's next node. Resuming a finished thread returns its final
// state without running anything.
//
// Example:
//
//	_, err := compiled.Run(ctx, req, stategraph.WithCheckpointing(store), stategraph.WithThreadID("t-1"))
//	if errors.Is(err, stategraph.ErrInterrupted) {
//	    result, err = compiled.Resume(ctx, store, "t-1", stategraph.WithResumeValue("approve"))
//	}
func (cg *CompiledGraph[S]) Resume(ctx context.Context, store checkpoint.Store, threadID string, opts ...ResumeOption) (S, error) {
	var zero S
	if ctx == nil {
		return zero, ErrNilContext
	}

	cp, err := latestCheckpoint(ctx, store, threadID)
	if err != nil {
		return zero, err
	}
	return cg.resumeFrom(ctx, store, threadID, cp, opts)
}

// ResumeFrom continues a thread from the checkpoint saved at nodeID rather
// than the latest one.
//
// Example:
//
//	// Retry from a specific node
//	result, err := compiled.ResumeFrom(ctx, store, "thread-1", "process", stategraph.WithReplayNode())
func (cg *CompiledGraph[S]) ResumeFrom(ctx context.Context, store checkpoint.Store, threadID, nodeID string, opts ...ResumeOption) (S, error) {
	var zero S
	if ctx == nil {
		return zero, ErrNilContext
	}

	cp, err := loadCheckpoint(ctx, store, threadID, nodeID)
	if err != nil {
		return zero, err
	}
	return cg.resumeFrom(ctx, store, threadID, cp, opts)
}

func (cg *CompiledGraph[S]) resumeFrom(ctx context.Context, store checkpoint.Store, threadID string, cp *checkpoint.Checkpoint, opts []ResumeOption) (S, error) {
	var zero S

	cfg := resumeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.valueErr != nil {
		return zero, fmt.Errorf("encode resume value: %w", cfg.valueErr)
	}

	state, err := decodeState[S](cp)
	if err != nil {
		return zero, err
	}

	if cfg.stateOverride != nil {
		if typed, ok := cfg.stateOverride(state).(S); ok {
			state = typed
		}
	}

	if cfg.validateState != nil {
		if err := cfg.validateState(state); err != nil {
			return state, fmt.Errorf("state validation failed: %w", err)
		}
	}

	// Determine start node
	startNode := cp.NextNode
	if cfg.replayNode {
		startNode = cp.NodeID
	}
	if cfg.gotoNode != "" {
		startNode = cfg.gotoNode
	}
	if startNode != END && startNode != START && !cg.HasNode(startNode) {
		return zero, fmt.Errorf("%w: %s", ErrInvalidResumeNode, startNode)
	}

	// Resume values only apply when re-entering the interrupted node.
	var resume []json.RawMessage
	if cp.Interrupted() && startNode == cp.NextNode {
		resume = append(resume, cp.Resume...)
		if cfg.hasValue {
			resume = append(resume, cfg.resumeValue)
		}
	}

	runCfg := newRunConfig(cfg.runOptions)
	runCfg.checkpointStore = store
	runCfg.threadID = threadID
	runCfg.sequence = cp.Sequence

	observability.NewRunLog(runCfg.logger, cg.name, "", threadID).Resumed(startNode, cp.Sequence, cfg.hasValue)
	runCfg.metrics.RecordResume(ctx, startNode, cfg.hasValue)

	prev := cp.PrevNodeID
	if !cp.Interrupted() {
		prev = cp.NodeID
	}
	return cg.execute(ctx, &runCfg, state, startNode, prev, resume)
}

// latestCheckpoint loads the highest-sequence checkpoint of a thread.
func latestCheckpoint(ctx context.Context, store checkpoint.Store, threadID string) (*checkpoint.Checkpoint, error) {
	infos, err := store.List(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	latest, ok := checkpoint.Latest(infos)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckpoints, threadID)
	}
	return loadCheckpoint(ctx, store, threadID, latest.NodeID)
}

// loadCheckpoint loads and decodes the checkpoint at (threadID, nodeID).
func loadCheckpoint(ctx context.Context, store checkpoint.Store, threadID, nodeID string) (*checkpoint.Checkpoint, error) {
	data, err := store.Load(ctx, threadID, nodeID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s at node %s", ErrNoCheckpoints, threadID, nodeID)
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	cp, err := checkpoint.DefaultSerializer().Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	if cp.Version != checkpoint.Version {
		return nil, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}
	return cp, nil
}

// decodeState unmarshals a checkpoint's state.
func decodeState[S any](cp *checkpoint.Checkpoint) (S, error) {
	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return state, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	return state, nil
}
