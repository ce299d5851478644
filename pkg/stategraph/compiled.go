package stategraph

import (
	"cmp"
	"maps"
	"slices"

	sgerrors "github.com/randalmurphal/stategraph/pkg/stategraph/errors"
)

// CompiledGraph is the validated, runnable form of a Graph. It never
// changes after Compile, so one value can serve any number of concurrent
// Run and Resume calls.
type CompiledGraph[S any] struct {
	name             string
	nodes            map[string]node[S]
	order            []string
	edges            map[string][]string
	conditionalEdges map[string]conditionalEdge[S]
	reducer          Reducer[S]
	retryPolicies    map[string]sgerrors.RetryConfig

	// derived at compile time
	predecessors  map[string][]string
	isConditional map[string]bool
	forkNodes     map[string]*ForkNode
	joinNodes     map[string]*JoinNode

	branchHook     BranchHook[S]
	forkJoinConfig ForkJoinConfig
}

func (cg *CompiledGraph[S]) Name() string { return cg.name }

// NodeIDs lists nodes in the order they were added.
func (cg *CompiledGraph[S]) NodeIDs() []string { return slices.Clone(cg.order) }

func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, ok := cg.nodes[id]
	return ok
}

// IsCommandNode reports whether id was added with AddCommandNode.
func (cg *CompiledGraph[S]) IsCommandNode(id string) bool {
	return cg.nodes[id].command != nil
}

// EntryPoints lists the fixed edges out of START. A conditional entry has
// none.
func (cg *CompiledGraph[S]) EntryPoints() []string { return slices.Clone(cg.edges[START]) }

// Successors lists id's fixed edges. Router targets are decided at run time
// and are not included.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return slices.Clone(cg.edges[id])
}

// Predecessors lists the nodes with a fixed edge into id.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return slices.Clone(cg.predecessors[id])
}

func (cg *CompiledGraph[S]) IsConditional(id string) bool { return cg.isConditional[id] }

// PathMap copies the label-to-node map of id's conditional edge. It is nil
// when id has no conditional edge or its router names nodes directly.
func (cg *CompiledGraph[S]) PathMap(id string) map[string]string {
	return maps.Clone(cg.conditionalEdges[id].pathMap)
}

// IsForkNode reports whether id fans out to parallel branches.
func (cg *CompiledGraph[S]) IsForkNode(id string) bool {
	_, ok := cg.forkNodes[id]
	return ok
}

// GetForkNode returns nil unless id is a fork.
func (cg *CompiledGraph[S]) GetForkNode(id string) *ForkNode { return cg.forkNodes[id] }

// IsJoinNode reports whether parallel branches converge at id.
func (cg *CompiledGraph[S]) IsJoinNode(id string) bool {
	_, ok := cg.joinNodes[id]
	return ok
}

// GetJoinNode returns nil unless id is a join.
func (cg *CompiledGraph[S]) GetJoinNode(id string) *JoinNode { return cg.joinNodes[id] }

// ForkNodes lists every fork, ordered by node ID.
func (cg *CompiledGraph[S]) ForkNodes() []*ForkNode {
	forks := slices.Collect(maps.Values(cg.forkNodes))
	slices.SortFunc(forks, func(a, b *ForkNode) int { return cmp.Compare(a.NodeID, b.NodeID) })
	if forks == nil {
		forks = []*ForkNode{}
	}
	return forks
}

func (cg *CompiledGraph[S]) HasParallelExecution() bool { return len(cg.forkNodes) > 0 }

// reduce merges update into current, or replaces current when the graph
// has no reducer.
func (cg *CompiledGraph[S]) reduce(current, update S) S {
	if cg.reducer == nil {
		return update
	}
	return cg.reducer(current, update)
}
