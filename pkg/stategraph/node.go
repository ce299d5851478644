package stategraph

// START is the virtual node every run begins at. Use it as an edge source to
// declare entry points; a node ID may not be START.
const START = "__start__"

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state,
// and return the updated state (or the same state) and any error.
//
// The state parameter is passed by value. Nodes should modify and return
// a new state value, not rely on pointer mutation. When the graph has a
// reducer, the returned value is an update that is folded into the current
// state instead of replacing it.
//
// Example:
//
//	func increment(ctx stategraph.Context, s Counter) (Counter, error) {
//	    s.Value++
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc determines the next node based on state.
// It is used for conditional edges where the next node depends on runtime state.
//
// The router returns a node ID, stategraph.END, or a label translated by the
// edge's path map. Returning an empty string or an unknown target causes a
// runtime error.
//
// Example:
//
//	func router(ctx stategraph.Context, s State) string {
//	    if s.Done {
//	        return stategraph.END
//	    }
//	    return "process"
//	}
type RouterFunc[S any] func(ctx Context, state S) string

// Command combines a state update with a routing decision.
// An empty Goto falls back to the node's edges.
type Command[S any] struct {
	Update S
	Goto   string
}

// CommandFunc is a node that chooses its own successor.
//
//	func review(ctx stategraph.Context, s Plan) (stategraph.Command[Plan], error) {
//	    if s.Risky {
//	        return stategraph.Command[Plan]{Update: s, Goto: "human_review"}, nil
//	    }
//	    return stategraph.Command[Plan]{Update: s, Goto: "apply"}, nil
//	}
type CommandFunc[S any] func(ctx Context, state S) (Command[S], error)

// Reducer folds a node's output into the current state.
type Reducer[S any] func(current, update S) S

// node is the compiled form of a node. Exactly one of fn and command is set.
type node[S any] struct {
	fn      NodeFunc[S]
	command CommandFunc[S]
}

// invoke runs the node and normalizes both kinds to (update, goto).
func (n node[S]) invoke(ctx Context, state S) (S, string, error) {
	if n.command != nil {
		cmd, err := n.command(ctx, state)
		return cmd.Update, cmd.Goto, err
	}
	out, err := n.fn(ctx, state)
	return out, "", err
}
