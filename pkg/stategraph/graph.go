package stategraph

import (
	"fmt"
	"maps"
	"strings"
	"sync"

	sgerrors "github.com/randalmurphal/stategraph/pkg/stategraph/errors"
)

// Graph collects nodes and edges for a state type S. Builder methods
// chain and may be called in any order; nothing is checked until Compile,
// except node IDs and nil functions, which panic immediately.
//
//	compiled, err := stategraph.NewGraph[Claim]().
//	    AddNode("fetch", fetch).
//	    AddNode("decide", decide).
//	    AddEdge(stategraph.START, "fetch").
//	    AddEdge("fetch", "decide").
//	    AddEdge("decide", stategraph.END).
//	    Compile()
//
// Build a Graph from one goroutine and share the CompiledGraph instead.
type Graph[S any] struct {
	mu               sync.RWMutex
	name             string
	nodes            map[string]node[S]
	order            []string
	edges            map[string][]string
	conditionalEdges map[string]conditionalEdge[S]
	reducer          Reducer[S]
	retryPolicies    map[string]sgerrors.RetryConfig
	branchHook       BranchHook[S]
	forkJoinConfig   ForkJoinConfig
}

type conditionalEdge[S any] struct {
	router  RouterFunc[S]
	pathMap map[string]string // nil when the router returns node IDs
}

func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		name:             "stategraph",
		nodes:            map[string]node[S]{},
		edges:            map[string][]string{},
		conditionalEdges: map[string]conditionalEdge[S]{},
		retryPolicies:    map[string]sgerrors.RetryConfig{},
	}
}

// with runs fn holding the builder lock.
func (g *Graph[S]) with(fn func()) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
	return g
}

// SetName names the graph in logs, traces and diagrams. Empty names are
// ignored.
func (g *Graph[S]) SetName(name string) *Graph[S] {
	return g.with(func() {
		if name != "" {
			g.name = name
		}
	})
}

// AddNode registers fn under id. It panics on a nil fn, an empty or
// duplicate id, an id containing whitespace, or the START or END sentinel
// in any case. Plain "start" and "end" are ordinary names.
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}
	return g.addNode(id, node[S]{fn: fn})
}

// AddCommandNode registers a node that chooses its own successor through
// Command.Goto. Fixed edges out of it apply when Goto is empty.
func (g *Graph[S]) AddCommandNode(id string, fn CommandFunc[S]) *Graph[S] {
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}
	return g.addNode(id, node[S]{command: fn})
}

func checkNodeID(id string) string {
	switch {
	case id == "":
		return "stategraph: node ID cannot be empty"
	case strings.EqualFold(id, END):
		return "stategraph: node ID cannot be reserved word 'END'"
	case strings.EqualFold(id, START):
		return "stategraph: node ID cannot be reserved word 'START'"
	case strings.ContainsAny(id, " \t\n\r"):
		return "stategraph: node ID cannot contain whitespace"
	}
	return ""
}

func (g *Graph[S]) addNode(id string, n node[S]) *Graph[S] {
	if msg := checkNodeID(id); msg != "" {
		panic(msg)
	}
	return g.with(func() {
		if _, dup := g.nodes[id]; dup {
			panic(fmt.Sprintf("stategraph: duplicate node ID: %s", id))
		}
		g.nodes[id] = n
		g.order = append(g.order, id)
	})
}

// AddEdge adds a fixed edge. from may be START and to may be END. Two or
// more edges out of one node run their targets as parallel branches.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	return g.with(func() { g.edges[from] = append(g.edges[from], to) })
}

// AddConditionalEdge lets router pick the node after from. Path maps, when
// given, translate the router's labels into node IDs and every label must
// then be listed:
//
//	graph.AddConditionalEdge("triage", byPriority, map[string]string{
//	    "high": "urgent",
//	    "low":  "standard",
//	})
//
// A conditional edge overrides fixed edges out of the same node.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S], pathMap ...map[string]string) *Graph[S] {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}
	var labels map[string]string
	for _, m := range pathMap {
		if labels == nil {
			labels = make(map[string]string, len(m))
		}
		maps.Copy(labels, m)
	}
	return g.with(func() {
		g.conditionalEdges[from] = conditionalEdge[S]{router: router, pathMap: labels}
	})
}

// SetEntry makes id the only node after START.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	return g.with(func() { g.edges[START] = []string{id} })
}

// SetConditionalEntry routes from START with a router.
func (g *Graph[S]) SetConditionalEntry(router RouterFunc[S], pathMap ...map[string]string) *Graph[S] {
	return g.AddConditionalEdge(START, router, pathMap...)
}

// SetReducer decides how a node's output combines with the state. Without
// one the output replaces the state.
func (g *Graph[S]) SetReducer(r Reducer[S]) *Graph[S] {
	return g.with(func() { g.reducer = r })
}

// SetRetryPolicy reruns nodeID after errors the errors package classifies
// as transient.
func (g *Graph[S]) SetRetryPolicy(nodeID string, cfg sgerrors.RetryConfig) *Graph[S] {
	return g.with(func() { g.retryPolicies[nodeID] = cfg })
}
