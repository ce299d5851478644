package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	sgerrors "github.com/randalmurphal/stategraph/pkg/stategraph/errors"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// Run executes the graph with the given input.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// Execution flow:
//  1. Start at START and follow its edge, conditional edge or fan-out
//  2. Check for cancellation
//  3. Execute the current node (with its retry policy) and apply the reducer
//  4. Determine the next node: command Goto, then conditional edge, then simple edge(s)
//  5. Checkpoint, then repeat until END is reached or an error occurs
//
// ctx may be a Context from NewContext (to supply a logger or LLM client)
// or any context.Context.
//
// With WithCheckpointing and WithThreadID, a thread that already has
// checkpoints is continued: the run starts from START with the reducer
// applied to the thread's last state and input (input alone without a
// reducer). Pending interrupts on the thread are discarded.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState)
//	if err != nil {
//	    // result contains state at point of failure
//	}
func (cg *CompiledGraph[S]) Run(ctx context.Context, input S, opts ...RunOption) (S, error) {
	if ctx == nil {
		return input, ErrNilContext
	}

	cfg := newRunConfig(opts)
	if cfg.checkpointStore != nil && cfg.threadID == "" {
		return input, ErrThreadIDRequired
	}

	state := input
	if cfg.checkpointStore != nil {
		cp, err := latestCheckpoint(ctx, cfg.checkpointStore, cfg.threadID)
		switch {
		case errors.Is(err, ErrNoCheckpoints):
		case err != nil:
			return input, err
		default:
			previous, err := decodeState[S](cp)
			if err != nil {
				return input, err
			}
			state = cg.reduce(previous, input)
			cfg.sequence = cp.Sequence
		}
	}

	return cg.execute(ctx, &cfg, state, START, "", nil)
}

// execution carries the per-invocation state shared by the main loop and
// parallel branches.
type execution[S any] struct {
	cg       *CompiledGraph[S]
	cfg      *runConfig
	ec       *executionContext
	runID    string
	threadID string

	// nested is the interrupt scope of an enclosing node when this run is a
	// subgraph without its own checkpointing.
	nested *interruptScope

	log       observability.RunLog
	nodeCount atomic.Int64
	sequence  atomic.Int64
}

// execute runs the graph from start with run-level logging, tracing and metrics.
func (cg *CompiledGraph[S]) execute(ctx context.Context, cfg *runConfig, state S, start, prev string, resume []json.RawMessage) (result S, runErr error) {
	ec := asExecutionContext(ctx)
	nested := ec.interrupts
	ec.interrupts = nil
	ec.nodeID = ""
	ec.attempt = 1

	if cfg.runID != "" {
		ec.runID = cfg.runID
	}
	if cfg.threadID != "" {
		ec.threadID = cfg.threadID
	}
	if cfg.checkpointStore != nil {
		nested = nil
		if ec.checkpointer == nil {
			ec.checkpointer = cfg.checkpointStore
		}
	}

	startTime := time.Now()
	runLog := observability.NewRunLog(cfg.logger, cg.name, ec.runID, cfg.threadID)
	runLog.Started()

	if cfg.tracingEnabled {
		spanCtx, runSpan := cfg.spans.StartRunSpan(ec, cg.name, ec.runID, cfg.threadID)
		ec = ec.withContext(spanCtx)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, spanError(runErr))
		}()
	}

	ex := &execution[S]{
		cg:       cg,
		cfg:      cfg,
		ec:       ec,
		runID:    ec.runID,
		threadID: cfg.threadID,
		nested:   nested,
		log:      runLog,
	}
	ex.sequence.Store(int64(cfg.sequence))

	result, runErr = ex.loop(state, start, prev, resume)

	duration := time.Since(startTime)

	var interruptErr *InterruptError
	switch {
	case errors.As(runErr, &interruptErr):
		cfg.metrics.RecordGraphRun(ec, true, duration)
		runLog.Interrupted(interruptErr.NodeID, len(interruptErr.Interrupts))
	case runErr != nil:
		cfg.metrics.RecordGraphRun(ec, false, duration)
		runLog.Failed(runErr, duration, lastNodeOf(runErr))
	default:
		cfg.metrics.RecordGraphRun(ec, true, duration)
		runLog.Completed(duration, int(ex.nodeCount.Load()))
	}

	return result, runErr
}

// loop executes nodes from current until END.
func (ex *execution[S]) loop(state S, current, prev string, resume []json.RawMessage) (S, error) {
	iterations := 0

	for current != END {
		if current != START {
			iterations++
			if iterations > ex.cfg.maxIterations {
				return state, &MaxIterationsError{
					Max:        ex.cfg.maxIterations,
					LastNodeID: current,
					State:      state,
				}
			}
		}

		// Check for cancellation before executing node
		if err := ex.ec.Err(); err != nil {
			return state, &CancellationError{
				NodeID:       current,
				State:        state,
				Cause:        err,
				WasExecuting: false,
			}
		}

		goTo := ""
		attempt := 1
		if current != START {
			scope := ex.nested
			if scope == nil {
				scope = newInterruptScope(current, resume)
			}
			resume = nil

			next, _, g, attempts, err := ex.runNode(ex.ec, current, state, scope)
			if err != nil {
				if errors.Is(err, ErrInterrupted) {
					return ex.suspend(state, current, prev, scope, attempts, err)
				}
				return next, err
			}
			state, goTo, attempt = next, g, attempts
		}

		if fork := ex.cg.forkNodes[current]; fork != nil && goTo == "" {
			merged, join, _, err := ex.forkJoin(ex.ec, fork, state)
			if err != nil {
				return state, err
			}
			state = merged
			if err := ex.checkpoint(current, prev, state, join, attempt); err != nil {
				return state, err
			}
			prev, current = current, join
			continue
		}

		next, err := ex.nextNode(ex.ec, state, current, goTo)
		if err != nil {
			return state, err
		}

		if current != START {
			if err := ex.checkpoint(current, prev, state, next, attempt); err != nil {
				return state, err
			}
		}

		prev, current = current, next
	}

	return state, nil
}

// suspend records a pending interrupt. The checkpoint holds the state from
// before nodeID ran, with nodeID as the next node.
func (ex *execution[S]) suspend(state S, nodeID, prev string, scope *interruptScope, attempt int, cause error) (S, error) {
	pending := scope.pendingInterrupts()
	if len(pending) == 0 {
		var ie *InterruptError
		if errors.As(cause, &ie) {
			pending = ie.Interrupts
		}
	}

	ex.cfg.metrics.RecordInterrupt(ex.ec, nodeID)
	ex.cfg.spans.AddSpanEvent(ex.ec, "interrupt",
		observability.AttrNodeID.String(nodeID),
		attribute.Int("stategraph.pending", len(pending)))

	if ex.cfg.checkpointStore != nil {
		if err := ex.save(nodeID, prev, state, nodeID, attempt, pending, scope.resumeValues(), true); err != nil {
			return state, err
		}
	}

	return state, &InterruptError{
		NodeID:     nodeID,
		ThreadID:   ex.threadID,
		Interrupts: pending,
	}
}

// nodeOutput is the raw result of one node attempt.
type nodeOutput[S any] struct {
	update S
	goTo   string
}

// runNode executes one node with logging, tracing, metrics and its retry
// policy, then folds the output into state. It returns the new state, the
// node's raw update, the command target, and the attempts made.
func (ex *execution[S]) runNode(ec *executionContext, nodeID string, state S, scope *interruptScope) (S, S, string, int, error) {
	n, ok := ex.cg.nodes[nodeID]
	if !ok {
		// This shouldn't happen if compilation was successful
		return state, state, "", 0, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	ex.log.NodeStarted(nodeID)

	nodeEC := ec
	var nodeSpan trace.Span
	if ex.cfg.tracingEnabled {
		var spanCtx context.Context
		spanCtx, nodeSpan = ex.cfg.spans.StartNodeSpan(ec, nodeID)
		nodeEC = ec.withContext(spanCtx)
	}

	nodeStart := time.Now()
	res := sgerrors.Do(nodeEC, ex.retryPolicy(nodeEC, nodeID), func(_ context.Context, attempt int) (nodeOutput[S], error) {
		if attempt > 1 && ex.nested == nil {
			scope.reset()
		}
		return invoke(nodeEC.forNode(nodeID, attempt, scope), n, nodeID, state)
	})
	nodeDuration := time.Since(nodeStart)
	attempts := max(res.Attempts, 1)

	err := ex.wrapNodeError(nodeEC, nodeID, state, attempts, res.Err)

	ex.cfg.metrics.RecordNodeExecution(nodeEC, nodeID, nodeDuration, spanError(err))
	if nodeSpan != nil {
		ex.cfg.spans.EndSpanWithError(nodeSpan, spanError(err))
	}

	if err != nil {
		if !errors.Is(err, ErrInterrupted) {
			ex.log.NodeFailed(nodeID, err)
		}
		if ex.cg.reducer == nil && res.Attempts > 0 {
			return res.Value.update, res.Value.update, "", attempts, err
		}
		return state, state, "", attempts, err
	}

	ex.log.NodeCompleted(nodeID, nodeDuration)
	ex.nodeCount.Add(1)

	return ex.cg.reduce(state, res.Value.update), res.Value.update, res.Value.goTo, attempts, nil
}

// invoke runs a single node attempt with panic recovery.
func invoke[S any](ctx *executionContext, n node[S], nodeID string, state S) (out nodeOutput[S], err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nodeOutput[S]{update: state}
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	var (
		update S
		goTo   string
	)
	update, goTo, err = n.invoke(ctx, state)
	return nodeOutput[S]{update: update, goTo: goTo}, err
}

// wrapNodeError attaches node context to a failed attempt. Interrupts and
// panics pass through unchanged.
func (ex *execution[S]) wrapNodeError(ec *executionContext, nodeID string, state S, attempts int, err error) error {
	if err == nil {
		return nil
	}

	var panicErr *PanicError
	if errors.Is(err, ErrInterrupted) || errors.As(err, &panicErr) {
		return err
	}

	if ctxErr := ec.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return &CancellationError{
			NodeID:       nodeID,
			State:        state,
			Cause:        ctxErr,
			WasExecuting: true,
		}
	}

	return &NodeError{
		NodeID:   nodeID,
		Op:       "execute",
		Attempts: attempts,
		Err:      err,
	}
}

// retryPolicy returns nodeID's retry configuration with logging attached.
// Interrupts and panics are never retried.
func (ex *execution[S]) retryPolicy(ctx context.Context, nodeID string) sgerrors.RetryConfig {
	policy, ok := ex.cg.retryPolicies[nodeID]
	if !ok {
		return sgerrors.NoRetry
	}

	retryable := policy.RetryableFunc
	if retryable == nil {
		retryable = sgerrors.IsRetryable
	}
	policy.RetryableFunc = func(err error) bool {
		var panicErr *PanicError
		if errors.Is(err, ErrInterrupted) || errors.Is(err, ErrInterruptInBranch) || errors.As(err, &panicErr) {
			return false
		}
		return retryable(err)
	}

	onRetry := policy.OnRetry
	runLog := ex.log
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		runLog.NodeRetry(nodeID, attempt, delay, err)
		ex.cfg.spans.AddSpanEvent(ctx, "retry",
			attribute.Int("stategraph.attempt", attempt),
			attribute.String("stategraph.error", err.Error()))
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	return policy
}

// checkpoint saves state after nodeID completed, honoring checkpointFailureFatal.
func (ex *execution[S]) checkpoint(nodeID, prevNodeID string, state S, nextNode string, attempt int) error {
	if ex.cfg.checkpointStore == nil {
		return nil
	}
	return ex.save(nodeID, prevNodeID, state, nextNode, attempt, nil, nil, ex.cfg.checkpointFailureFatal)
}

// save serializes and stores one checkpoint.
func (ex *execution[S]) save(nodeID, prevNodeID string, state S, nextNode string, attempt int, interrupts []checkpoint.Interrupt, resume []json.RawMessage, fatal bool) error {
	fail := func(op string, err error) error {
		if fatal {
			return &CheckpointError{NodeID: nodeID, Op: op, Err: err}
		}
		ex.log.CheckpointFailed(nodeID, op, err)
		return nil
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fail("serialize", fmt.Errorf("%w: %v", ErrSerializeState, err))
	}

	cp := checkpoint.New(ex.threadID, nodeID, int(ex.sequence.Add(1)), stateBytes, nextNode).
		WithPrevNode(prevNodeID).
		WithAttempt(attempt).
		WithRunID(ex.runID).
		WithInterrupts(interrupts, resume)

	data, err := ex.cfg.serializer.Encode(cp)
	if err != nil {
		return fail("marshal", err)
	}

	if err := ex.cfg.checkpointStore.Save(ex.ec, ex.threadID, nodeID, data); err != nil {
		return fail("save", err)
	}

	sizeBytes := len(data)
	ex.log.CheckpointSaved(nodeID, sizeBytes)
	ex.cfg.metrics.RecordCheckpoint(ex.ec, nodeID, int64(sizeBytes))
	ex.cfg.spans.AddSpanEvent(ex.ec, "checkpoint",
		observability.AttrNodeID.String(nodeID),
		attribute.Int64("stategraph.sequence", int64(cp.Sequence)),
		attribute.Int("stategraph.size_bytes", sizeBytes))

	return nil
}

// nextNode determines the next node to execute.
// A command's goTo wins, then a conditional edge, then the single simple edge.
func (ex *execution[S]) nextNode(ec *executionContext, state S, current, goTo string) (string, error) {
	cg := ex.cg

	if goTo != "" {
		if goTo != END && !cg.HasNode(goTo) {
			return "", &RouterError{FromNode: current, Returned: goTo, Err: ErrRouterTargetNotFound}
		}
		return goTo, nil
	}

	if ce, exists := cg.conditionalEdges[current]; exists {
		label := ce.router(ec.forNode(current, 1, nil), state)
		if label == "" {
			return "", &RouterError{FromNode: current, Returned: label, Err: ErrInvalidRouterResult}
		}

		next := label
		if ce.pathMap != nil {
			mapped, ok := ce.pathMap[label]
			if !ok {
				return "", &RouterError{FromNode: current, Returned: label, Err: ErrUnknownRoute}
			}
			next = mapped
		}

		if next != END && !cg.HasNode(next) {
			return "", &RouterError{FromNode: current, Returned: label, Err: ErrRouterTargetNotFound}
		}
		return next, nil
	}

	edges := cg.edges[current]
	if len(edges) == 0 {
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}
	return edges[0], nil
}

// spanError hides interrupts from span status and metrics; they are not failures.
func spanError(err error) error {
	if errors.Is(err, ErrInterrupted) {
		return nil
	}
	return err
}

// lastNodeOf extracts the failing node from a run error, if known.
func lastNodeOf(err error) string {
	var (
		nodeErr   *NodeError
		maxErr    *MaxIterationsError
		cancelErr *CancellationError
		panicErr  *PanicError
		routerErr *RouterError
		forkErr   *ForkJoinError
	)
	switch {
	case errors.As(err, &nodeErr):
		return nodeErr.NodeID
	case errors.As(err, &panicErr):
		return panicErr.NodeID
	case errors.As(err, &maxErr):
		return maxErr.LastNodeID
	case errors.As(err, &cancelErr):
		return cancelErr.NodeID
	case errors.As(err, &routerErr):
		return routerErr.FromNode
	case errors.As(err, &forkErr):
		return forkErr.ForkNodeID
	}
	return ""
}
