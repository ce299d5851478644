package stategraph

import "fmt"

// Subgraph adapts a compiled child graph into a node of a parent graph.
//
// toChild builds the child's input from the parent state; fromChild folds
// the child's final state back into the parent state. The child runs with
// the parent node's context, so it shares its logger, LLM client and run ID.
// An Interrupt inside the child suspends the parent thread; on resume the
// child runs again from its start and receives the resume value.
//
//	retrieve := stategraph.Subgraph(retrieval,
//	    func(s Answer) Search { return Search{Query: s.Question} },
//	    func(s Answer, r Search) Answer { s.Documents = r.Documents; return s },
//	)
//	parent.AddNode("retrieve", retrieve)
func Subgraph[P, C any](child *CompiledGraph[C], toChild func(P) C, fromChild func(P, C) P, opts ...RunOption) NodeFunc[P] {
	if child == nil || toChild == nil || fromChild == nil {
		panic("stategraph: subgraph requires a child graph and both mappers")
	}

	return func(ctx Context, state P) (P, error) {
		out, err := child.Run(ctx, toChild(state), opts...)
		if err != nil {
			return state, fmt.Errorf("subgraph %s: %w", child.Name(), err)
		}
		return fromChild(state, out), nil
	}
}
