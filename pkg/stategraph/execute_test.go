package stategraph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sgerrors "github.com/randalmurphal/stategraph/pkg/stategraph/errors"
)

func TestRun_LinearFlow(t *testing.T) {
	graph := NewGraph[Counter]().
		AddNode("inc1", increment).
		AddNode("inc2", increment).
		AddNode("inc3", increment).
		AddEdge(START, "inc1").
		AddEdge("inc1", "inc2").
		AddEdge("inc2", "inc3").
		AddEdge("inc3", END)

	compiled, err := graph.Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{Value: 0})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Value)
}

func TestRun_SetEntryIsStartEdge(t *testing.T) {
	graph := NewGraph[Counter]().
		AddNode("only", increment).
		AddEdge("only", END).
		SetEntry("only")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	assert.Equal(t, []string{"only"}, compiled.EntryPoints())

	result, err := compiled.Run(testCtx(), Counter{Value: 10})
	require.NoError(t, err)
	assert.Equal(t, 11, result.Value)
}

func TestRun_AcceptsPlainContext(t *testing.T) {
	var runID string
	graph := NewGraph[Counter]().
		AddNode("inc", func(ctx Context, s Counter) (Counter, error) {
			runID = ctx.RunID()
			return increment(ctx, s)
		}).
		AddEdge(START, "inc").
		AddEdge("inc", END)

	compiled := mustCompile(t, graph)

	result, err := compiled.Run(context.Background(), Counter{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Value)
	assert.NotEmpty(t, runID)
}

func TestRun_StatePassedBetweenNodes(t *testing.T) {
	var nodeAState, nodeBState State

	graph := NewGraph[State]().
		AddNode("a", func(ctx Context, s State) (State, error) {
			nodeAState = s
			s.Step = 1
			return s, nil
		}).
		AddNode("b", func(ctx Context, s State) (State, error) {
			nodeBState = s
			s.Step = 2
			return s, nil
		}).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END)

	compiled := mustCompile(t, graph)

	result, err := compiled.Run(testCtx(), State{Initial: "test"})

	require.NoError(t, err)
	assert.Equal(t, "test", nodeAState.Initial)
	assert.Equal(t, 1, nodeBState.Step)
	assert.Equal(t, 2, result.Step)
}

func TestRun_ConditionalEdge(t *testing.T) {
	router := func(ctx Context, s State) string {
		if s.GoLeft {
			return "left"
		}
		return "right"
	}

	tests := []struct {
		name   string
		goLeft bool
		want   []string
	}{
		{name: "left", goLeft: true, want: []string{"start", "left"}},
		{name: "right", goLeft: false, want: []string{"start", "right"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &tracker{}
			graph := NewGraph[State]().
				AddNode("start", makeTrackingNode("start", tr)).
				AddNode("left", makeTrackingNode("left", tr)).
				AddNode("right", makeTrackingNode("right", tr)).
				AddEdge(START, "start").
				AddConditionalEdge("start", router).
				AddEdge("left", END).
				AddEdge("right", END)

			compiled := mustCompile(t, graph)

			result, err := compiled.Run(testCtx(), State{GoLeft: tt.goLeft})
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.list())
			assert.Equal(t, tt.want, result.Progress)
		})
	}
}

func TestRun_ConditionalEdge_PathMap(t *testing.T) {
	byPriority := func(ctx Context, s Ticket) string {
		return s.Priority
	}
	assign := func(queue string) NodeFunc[Ticket] {
		return func(ctx Context, s Ticket) (Ticket, error) {
			s.Queue = queue
			return s, nil
		}
	}

	graph := NewGraph[Ticket]().
		AddNode("triage", passthrough[Ticket]).
		AddNode("urgent", assign("urgent")).
		AddNode("standard", assign("standard")).
		AddEdge(START, "triage").
		AddConditionalEdge("triage", byPriority, map[string]string{
			"high": "urgent",
			"low":  "standard",
			"spam": END,
		}).
		AddEdge("urgent", END).
		AddEdge("standard", END)

	compiled := mustCompile(t, graph)

	tests := []struct {
		priority string
		want     string
	}{
		{"high", "urgent"},
		{"low", "standard"},
		{"spam", ""},
	}
	for _, tt := range tests {
		t.Run(tt.priority, func(t *testing.T) {
			result, err := compiled.Run(testCtx(), Ticket{Priority: tt.priority})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Queue)
		})
	}

	t.Run("unknown label", func(t *testing.T) {
		_, err := compiled.Run(testCtx(), Ticket{Priority: "medium"})

		var routerErr *RouterError
		require.ErrorAs(t, err, &routerErr)
		assert.Equal(t, "triage", routerErr.FromNode)
		assert.Equal(t, "medium", routerErr.Returned)
		assert.ErrorIs(t, err, ErrUnknownRoute)
	})
}

func TestRun_ConditionalEntry(t *testing.T) {
	graph := NewGraph[Ticket]().
		AddNode("urgent", func(ctx Context, s Ticket) (Ticket, error) {
			s.Queue = "urgent"
			return s, nil
		}).
		AddNode("standard", func(ctx Context, s Ticket) (Ticket, error) {
			s.Queue = "standard"
			return s, nil
		}).
		SetConditionalEntry(func(ctx Context, s Ticket) string {
			return s.Priority
		}, map[string]string{"high": "urgent", "low": "standard"}).
		AddEdge("urgent", END).
		AddEdge("standard", END)

	compiled := mustCompile(t, graph)
	assert.Empty(t, compiled.EntryPoints())
	assert.True(t, compiled.IsConditional(START))

	result, err := compiled.Run(testCtx(), Ticket{Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, "urgent", result.Queue)
}

func TestRun_ConditionalEdge_ToEND(t *testing.T) {
	tr := &tracker{}
	router := func(ctx Context, s State) string {
		if s.Done {
			return END
		}
		return "continue"
	}

	graph := NewGraph[State]().
		AddNode("check", makeTrackingNode("check", tr)).
		AddNode("continue", makeTrackingNode("continue", tr)).
		AddEdge(START, "check").
		AddConditionalEdge("check", router).
		AddEdge("continue", END)

	compiled := mustCompile(t, graph)

	_, err := compiled.Run(testCtx(), State{Done: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"check"}, tr.list())
}

func TestRun_Loop(t *testing.T) {
	var iterations int

	graph := NewGraph[State]().
		AddNode("loop", func(ctx Context, s State) (State, error) {
			iterations++
			s.Count++
			return s, nil
		}).
		AddEdge(START, "loop").
		AddConditionalEdge("loop", func(ctx Context, s State) string {
			if s.Count >= 3 {
				return END
			}
			return "loop"
		})

	compiled := mustCompile(t, graph)

	result, err := compiled.Run(testCtx(), State{Count: 0})

	require.NoError(t, err)
	assert.Equal(t, 3, iterations)
	assert.Equal(t, 3, result.Count)
}

func TestRun_Reducer(t *testing.T) {
	graph := NewGraph[Log]().
		AddNode("a", logEntry("a")).
		AddNode("b", logEntry("b")).
		AddNode("c", logEntry("c")).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", END).
		SetReducer(appendLog)

	compiled := mustCompile(t, graph)

	result, err := compiled.Run(testCtx(), Log{Entries: []string{"input"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"input", "a", "b", "c"}, result.Entries)
	assert.Equal(t, 3, result.Count)
}

func TestRun_CommandNode(t *testing.T) {
	review := func(ctx Context, s Ticket) (Command[Ticket], error) {
		s.Notes = "reviewed"
		if s.Priority == "high" {
			return Command[Ticket]{Update: s, Goto: "escalate"}, nil
		}
		return Command[Ticket]{Update: s}, nil
	}

	tr := &tracker{}
	graph := NewGraph[Ticket]().
		AddCommandNode("review", review).
		AddNode("escalate", func(ctx Context, s Ticket) (Ticket, error) {
			tr.add("escalate")
			s.Queue = "escalated"
			return s, nil
		}).
		AddNode("file", func(ctx Context, s Ticket) (Ticket, error) {
			tr.add("file")
			s.Queue = "filed"
			return s, nil
		}).
		AddEdge(START, "review").
		AddEdge("review", "file").
		AddEdge("escalate", END).
		AddEdge("file", END)

	compiled := mustCompile(t, graph)
	assert.True(t, compiled.IsCommandNode("review"))

	t.Run("goto overrides edges", func(t *testing.T) {
		result, err := compiled.Run(testCtx(), Ticket{Priority: "high"})
		require.NoError(t, err)
		assert.Equal(t, "escalated", result.Queue)
		assert.Equal(t, "reviewed", result.Notes)
	})

	t.Run("empty goto follows edge", func(t *testing.T) {
		result, err := compiled.Run(testCtx(), Ticket{Priority: "low"})
		require.NoError(t, err)
		assert.Equal(t, "filed", result.Queue)
	})

	assert.Equal(t, []string{"escalate", "file"}, tr.list())
}

func TestRun_CommandNode_UnknownGoto(t *testing.T) {
	graph := NewGraph[Ticket]().
		AddCommandNode("route", func(ctx Context, s Ticket) (Command[Ticket], error) {
			return Command[Ticket]{Update: s, Goto: "nowhere"}, nil
		}).
		AddEdge(START, "route")

	compiled := mustCompile(t, graph)

	_, err := compiled.Run(testCtx(), Ticket{})

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "nowhere", routerErr.Returned)
	assert.ErrorIs(t, err, ErrRouterTargetNotFound)
}

func TestRun_NodeError_WrapsWithNodeID(t *testing.T) {
	errBoom := errors.New("boom")

	graph := NewGraph[State]().
		AddNode("ok", passthrough[State]).
		AddNode("fail", makeFailingNode(errBoom)).
		AddEdge(START, "ok").
		AddEdge("ok", "fail").
		AddEdge("fail", END)

	compiled := mustCompile(t, graph)

	_, err := compiled.Run(testCtx(), State{})

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "fail", nodeErr.NodeID)
	assert.Equal(t, "execute", nodeErr.Op)
	assert.Equal(t, 1, nodeErr.Attempts)
	assert.ErrorIs(t, err, errBoom)
}

func TestRun_NodeError_StatePreserved(t *testing.T) {
	graph := NewGraph[State]().
		AddNode("track", func(ctx Context, s State) (State, error) {
			s.Progress = append(s.Progress, "tracked")
			return s, nil
		}).
		AddNode("fail", func(ctx Context, s State) (State, error) {
			s.Progress = append(s.Progress, "failed")
			return s, errors.New("failed")
		}).
		AddEdge(START, "track").
		AddEdge("track", "fail").
		AddEdge("fail", END)

	compiled := mustCompile(t, graph)

	result, err := compiled.Run(testCtx(), State{})

	require.Error(t, err)
	assert.Equal(t, []string{"tracked", "failed"}, result.Progress)
}

func TestRun_NodeError_WithReducerKeepsPriorState(t *testing.T) {
	graph := NewGraph[Log]().
		AddNode("a", logEntry("a")).
		AddNode("fail", func(ctx Context, _ Log) (Log, error) {
			return Log{Entries: []string{"partial"}}, errors.New("failed")
		}).
		AddEdge(START, "a").
		AddEdge("a", "fail").
		AddEdge("fail", END).
		SetReducer(appendLog)

	compiled := mustCompile(t, graph)

	result, err := compiled.Run(testCtx(), Log{})

	require.Error(t, err)
	assert.Equal(t, []string{"a"}, result.Entries)
}

func TestRun_PanicRecovery(t *testing.T) {
	graph := NewGraph[State]().
		AddNode("panic", makePanicNode("unexpected error")).
		AddEdge(START, "panic").
		AddEdge("panic", END)

	compiled := mustCompile(t, graph)

	_, err := compiled.Run(testCtx(), State{})

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "panic", panicErr.NodeID)
	assert.Equal(t, "unexpected error", panicErr.Value)
	assert.Contains(t, panicErr.Stack, "makePanicNode")
}

func TestRun_PanicRecovery_NonStringValue(t *testing.T) {
	graph := NewGraph[State]().
		AddNode("panic", makePanicNode(42)).
		AddEdge(START, "panic").
		AddEdge("panic", END)

	compiled := mustCompile(t, graph)

	_, err := compiled.Run(testCtx(), State{})

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, 42, panicErr.Value)
}

func TestRun_CancellationBetweenNodes(t *testing.T) {
	tr := &tracker{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	graph := NewGraph[State]().
		AddNode("first", func(sgCtx Context, s State) (State, error) {
			tr.add("first")
			cancel()
			return s, nil
		}).
		AddNode("second", makeTrackingNode("second", tr)).
		AddEdge(START, "first").
		AddEdge("first", "second").
		AddEdge("second", END)

	compiled := mustCompile(t, graph)

	_, err := compiled.Run(NewContext(ctx), State{})

	assert.ErrorIs(t, err, context.Canceled)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "second", cancelErr.NodeID)
	assert.False(t, cancelErr.WasExecuting)
	assert.Equal(t, []string{"first"}, tr.list())
}

func TestRun_CancellationDuringNode(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	graph := NewGraph[State]().
		AddNode("slow", func(sgCtx Context, s State) (State, error) {
			<-sgCtx.Done()
			return s, sgCtx.Err()
		}).
		AddEdge(START, "slow").
		AddEdge("slow", END)

	compiled := mustCompile(t, graph)

	_, err := compiled.Run(ctx, State{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "slow", cancelErr.NodeID)
	assert.True(t, cancelErr.WasExecuting)
}

func TestRun_MaxIterations_PreventsInfiniteLoop(t *testing.T) {
	graph := NewGraph[State]().
		AddNode("loop", func(ctx Context, s State) (State, error) {
			s.Count++
			return s, nil
		}).
		AddEdge(START, "loop").
		AddConditionalEdge("loop", func(ctx Context, s State) string {
			return "loop"
		})

	compiled := mustCompile(t, graph)

	result, err := compiled.Run(testCtx(), State{}, WithMaxIterations(10))

	assert.ErrorIs(t, err, ErrMaxIterations)

	var maxIterErr *MaxIterationsError
	require.ErrorAs(t, err, &maxIterErr)
	assert.Equal(t, 10, maxIterErr.Max)
	assert.Equal(t, "loop", maxIterErr.LastNodeID)
	assert.Equal(t, 10, result.Count)
}

func TestRun_NilContext_Error(t *testing.T) {
	graph := NewGraph[Counter]().
		AddNode("a", increment).
		AddEdge(START, "a").
		AddEdge("a", END)

	compiled := mustCompile(t, graph)

	//nolint:staticcheck // nil context is the case under test
	_, err := compiled.Run(nil, Counter{})

	assert.ErrorIs(t, err, ErrNilContext)
}

func TestRun_RouterReturnsEmpty_Error(t *testing.T) {
	graph := NewGraph[State]().
		AddNode("route", passthrough[State]).
		AddEdge(START, "route").
		AddConditionalEdge("route", func(ctx Context, s State) string {
			return ""
		})

	compiled := mustCompile(t, graph)

	_, err := compiled.Run(testCtx(), State{})

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "route", routerErr.FromNode)
	assert.ErrorIs(t, err, ErrInvalidRouterResult)
}

func TestRun_RouterReturnsUnknown_Error(t *testing.T) {
	graph := NewGraph[State]().
		AddNode("route", passthrough[State]).
		AddEdge(START, "route").
		AddConditionalEdge("route", func(ctx Context, s State) string {
			return "nonexistent"
		})

	compiled := mustCompile(t, graph)

	_, err := compiled.Run(testCtx(), State{})

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "route", routerErr.FromNode)
	assert.Equal(t, "nonexistent", routerErr.Returned)
	assert.ErrorIs(t, err, ErrRouterTargetNotFound)
}

func TestRun_ContextPropagated(t *testing.T) {
	var capturedCtx Context

	graph := NewGraph[State]().
		AddNode("capture", func(ctx Context, s State) (State, error) {
			capturedCtx = ctx
			return s, nil
		}).
		AddEdge(START, "capture").
		AddEdge("capture", END)

	compiled := mustCompile(t, graph)

	ctx := NewContext(context.Background(), WithContextRunID("test-123"))
	_, err := compiled.Run(ctx, State{})

	require.NoError(t, err)
	assert.Equal(t, "test-123", capturedCtx.RunID())
	assert.Equal(t, "capture", capturedCtx.NodeID())
	assert.Equal(t, 1, capturedCtx.Attempt())
	assert.Empty(t, capturedCtx.ThreadID())
}

func TestRun_WithRunIDOverridesContext(t *testing.T) {
	var runID string
	graph := NewGraph[State]().
		AddNode("capture", func(ctx Context, s State) (State, error) {
			runID = ctx.RunID()
			return s, nil
		}).
		AddEdge(START, "capture").
		AddEdge("capture", END)

	compiled := mustCompile(t, graph)

	ctx := NewContext(context.Background(), WithContextRunID("from-context"))
	_, err := compiled.Run(ctx, State{}, WithRunID("from-option"))
	require.NoError(t, err)
	assert.Equal(t, "from-option", runID)
}

func TestRun_InitialStateNotMutated(t *testing.T) {
	graph := NewGraph[Counter]().
		AddNode("inc", increment).
		AddEdge(START, "inc").
		AddEdge("inc", END)

	compiled := mustCompile(t, graph)

	initial := Counter{Value: 5}
	result, err := compiled.Run(testCtx(), initial)

	require.NoError(t, err)
	assert.Equal(t, 5, initial.Value)
	assert.Equal(t, 6, result.Value)
}

func TestRun_ReusableCompiledGraph(t *testing.T) {
	graph := NewGraph[Counter]().
		AddNode("inc", increment).
		AddEdge(START, "inc").
		AddEdge("inc", END)

	compiled := mustCompile(t, graph)

	results := make([]int, 3)
	for i := range 3 {
		result, err := compiled.Run(testCtx(), Counter{Value: i * 10})
		require.NoError(t, err)
		results[i] = result.Value
	}

	assert.Equal(t, []int{1, 11, 21}, results)
}

func TestRun_ConcurrentRuns(t *testing.T) {
	graph := NewGraph[Counter]().
		AddNode("inc1", increment).
		AddNode("inc2", increment).
		AddEdge(START, "inc1").
		AddEdge("inc1", "inc2").
		AddEdge("inc2", END)

	compiled := mustCompile(t, graph)

	var wg sync.WaitGroup
	results := make([]int, 20)
	errs := make([]error, 20)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := compiled.Run(context.Background(), Counter{Value: i})
			results[i], errs[i] = out.Value, err
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, i+2, results[i])
	}
}

func TestRun_RetryPolicy(t *testing.T) {
	fast := sgerrors.NewRetryConfig(
		sgerrors.WithMaxAttempts(3),
		sgerrors.WithInitialBackoff(time.Millisecond),
		sgerrors.WithJitter(0),
	)

	t.Run("transient error retried until success", func(t *testing.T) {
		var attempts []int
		graph := NewGraph[Counter]().
			AddNode("flaky", func(ctx Context, s Counter) (Counter, error) {
				attempts = append(attempts, ctx.Attempt())
				if ctx.Attempt() < 3 {
					return s, sgerrors.Transient("call api", errors.New("rate limited"))
				}
				s.Value = 42
				return s, nil
			}).
			AddEdge(START, "flaky").
			AddEdge("flaky", END).
			SetRetryPolicy("flaky", fast)

		result, err := mustCompile(t, graph).Run(testCtx(), Counter{})
		require.NoError(t, err)
		assert.Equal(t, 42, result.Value)
		assert.Equal(t, []int{1, 2, 3}, attempts)
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		graph := NewGraph[Counter]().
			AddNode("down", func(ctx Context, s Counter) (Counter, error) {
				return s, &sgerrors.ServiceError{Service: "api", Status: 503}
			}).
			AddEdge(START, "down").
			AddEdge("down", END).
			SetRetryPolicy("down", fast)

		_, err := mustCompile(t, graph).Run(testCtx(), Counter{})

		var nodeErr *NodeError
		require.ErrorAs(t, err, &nodeErr)
		assert.Equal(t, 3, nodeErr.Attempts)
		assert.Contains(t, err.Error(), "after 3 attempts")
	})

	t.Run("permanent error not retried", func(t *testing.T) {
		calls := 0
		graph := NewGraph[Counter]().
			AddNode("bad", func(ctx Context, s Counter) (Counter, error) {
				calls++
				return s, sgerrors.Permanent("validate", errors.New("invalid"))
			}).
			AddEdge(START, "bad").
			AddEdge("bad", END).
			SetRetryPolicy("bad", fast)

		_, err := mustCompile(t, graph).Run(testCtx(), Counter{})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("panic not retried", func(t *testing.T) {
		calls := 0
		graph := NewGraph[Counter]().
			AddNode("boom", func(ctx Context, s Counter) (Counter, error) {
				calls++
				panic("boom")
			}).
			AddEdge(START, "boom").
			AddEdge("boom", END).
			SetRetryPolicy("boom", sgerrors.NewRetryConfig(
				sgerrors.WithMaxAttempts(3),
				sgerrors.WithInitialBackoff(time.Millisecond),
				sgerrors.WithRetryableFunc(func(error) bool { return true }),
			))

		_, err := mustCompile(t, graph).Run(testCtx(), Counter{})

		var panicErr *PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, 1, calls)
	})
}

func TestContext_DefaultValues(t *testing.T) {
	ctx := NewContext(context.Background())

	assert.NotNil(t, ctx.Logger())
	assert.Nil(t, ctx.LLM())
	assert.Nil(t, ctx.Checkpointer())
	assert.NotEmpty(t, ctx.RunID())
	assert.Equal(t, "", ctx.ThreadID())
	assert.Equal(t, "", ctx.NodeID())
	assert.Equal(t, 1, ctx.Attempt())
}

func TestContext_WithOptions(t *testing.T) {
	ctx := NewContext(context.Background(), WithContextRunID("custom-run-id"))

	assert.Equal(t, "custom-run-id", ctx.RunID())
}

func TestContext_CancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sgCtx := NewContext(ctx)

	cancel()

	assert.ErrorIs(t, sgCtx.Err(), context.Canceled)
}

func TestContext_DeadlinePropagates(t *testing.T) {
	deadline := time.Now().Add(1 * time.Hour)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	sgCtx := NewContext(ctx)

	d, ok := sgCtx.Deadline()
	assert.True(t, ok)
	assert.Equal(t, deadline, d)
}

func TestContext_ValuesFromParent(t *testing.T) {
	type keyType string
	key := keyType("custom")

	parentCtx := context.WithValue(context.Background(), key, "value")
	sgCtx := NewContext(parentCtx)

	assert.Equal(t, "value", sgCtx.Value(key))
}
