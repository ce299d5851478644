/*
Package stategraph provides a directed state-graph execution engine.

# Overview

A workflow is defined by a typed state, step functions (nodes) that
transform it, and edges that wire the nodes into a directed graph. The graph
is compiled once and invoked many times:

	type State struct {
	    Input  string
	    Output string
	}

	func process(ctx stategraph.Context, s State) (State, error) {
	    s.Output = "Processed: " + s.Input
	    return s, nil
	}

	func main() {
	    graph := stategraph.NewGraph[State]().
	        AddNode("process", process).
	        AddEdge(stategraph.START, "process").
	        AddEdge("process", stategraph.END)

	    compiled, err := graph.Compile()
	    if err != nil {
	        log.Fatal(err)
	    }

	    result, err := compiled.Run(context.Background(), State{Input: "hello"})
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(result.Output) // "Processed: hello"
	}

# Conditional Branching

Routers pick the next node at runtime. An optional path map translates
router labels into node IDs:

	graph.AddConditionalEdge("triage", func(ctx stategraph.Context, s Ticket) string {
	    return s.Priority // "high" or "low"
	}, map[string]string{"high": "urgent", "low": "standard"})

SetConditionalEntry routes from START the same way. Nodes added with
AddCommandNode return a Command whose Goto overrides the node's edges.

Loops are protected by max iterations (default 1000). Configure with
WithMaxIterations.

# Reducers

Without a reducer, a node's output replaces the state. SetReducer changes
that: node outputs become updates folded into the current state. The
message package provides the reducer used by conversational graphs:

	graph := stategraph.NewGraph[message.State]().
	    SetReducer(message.State{}.Reduce)

# Parallel Branches

Several simple edges out of one node (or out of START) fan out. The
branches run concurrently on copies of the state until the node where they
converge, then their results are merged: through ParallelState.Merge when
the state implements it, through the reducer when one is set, and
otherwise field by field, failing with ErrConflictingUpdate when two
branches write different values to the same field.

# Checkpointing and Threads

With a checkpoint store and a thread ID, the state is saved after every
step:

	store := checkpoint.NewMemoryStore()
	result, err := compiled.Run(ctx, input,
	    stategraph.WithCheckpointing(store),
	    stategraph.WithThreadID("user-42"))

Running again on the same thread continues the conversation from the
saved state. Resume picks up an interrupted or crashed thread, GetState
and History inspect it, and UpdateState edits it.

# Human in the Loop

A node suspends the run by calling Interrupt. Run returns an
*InterruptError (errors.Is(err, ErrInterrupted)); Resume with
WithResumeValue re-executes the node, and Interrupt returns the value:

	func confirm(ctx stategraph.Context, s Order) (Order, error) {
	    ok, err := stategraph.Interrupt[bool](ctx, "Place order "+s.ID+"?")
	    if err != nil {
	        return s, err
	    }
	    s.Confirmed = ok
	    return s, nil
	}

# Observability

	result, err := compiled.Run(ctx, state,
	    stategraph.WithObservabilityLogger(logger),
	    stategraph.WithMetrics(true),
	    stategraph.WithTracing(true))

Logs include structured fields: run_id, thread_id, node_id, duration_ms, attempt.
OpenTelemetry metrics: stategraph.node.executions, stategraph.node.latency_ms, etc.
OpenTelemetry tracing: stategraph.run > stategraph.node.{id} spans.

# Error Handling

Errors include context about which node failed:

	var nodeErr *stategraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("Node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}

Panics in nodes are recovered and converted to PanicError with stack trace.
SetRetryPolicy retries a node on transient errors with backoff.

# Thread Safety

  - Graph[S] is NOT safe for concurrent use during construction
  - CompiledGraph[S] IS safe for concurrent use (immutable)
  - Context IS safe for concurrent use
  - checkpoint.Store implementations are safe for concurrent use

# Subpackages

  - checkpoint: checkpoint stores (memory, SQLite, Postgres, Redis) and serializers
  - message: chat messages and the append-or-replace reducer
  - llm: model client interface and a deterministic rule-based client
  - prebuilt: tools, the tool-executing node and the ReAct agent
  - observability: logging, metrics, and tracing helpers
  - errors: error categories and retry with backoff
  - config, registry: configuration loading and keyed registries
*/
package stategraph
