package stategraph

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Compile checks the graph and freezes it. Every problem found is
// reported, joined into one error:
//
//   - START needs an edge or a conditional edge
//   - edges, path maps and retry policies may only name added nodes
//     (END is allowed as a target)
//   - END must be reachable from START
//
// Nodes that START cannot reach only produce a warning through slog.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for _, check := range []func() []error{g.checkEntry, g.checkEdges, g.checkRoutes, g.checkRetryPolicies} {
		errs = append(errs, check()...)
	}
	if len(errs) == 0 && !g.reachesEnd() {
		errs = append(errs, ErrNoPathToEnd)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cg := g.freeze()
	reachable := g.reachable()
	for _, id := range g.order {
		if _, ok := reachable[id]; !ok {
			slog.Warn("node is unreachable from start", "graph", g.name, "node_id", id)
		}
	}
	return cg, nil
}

func (g *Graph[S]) known(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph[S]) checkEntry() []error {
	_, routed := g.conditionalEdges[START]
	if len(g.edges[START]) == 0 && !routed {
		return []error{ErrNoEntryPoint}
	}
	var errs []error
	for _, to := range g.edges[START] {
		if !g.known(to) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, to))
		}
	}
	return errs
}

func (g *Graph[S]) checkEdges() []error {
	var errs []error
	for _, from := range slices.Sorted(maps.Keys(g.edges)) {
		if from != START && !g.known(from) {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		if from == START {
			continue
		}
		for _, to := range g.edges[from] {
			if to != END && !g.known(to) {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}
	return errs
}

func (g *Graph[S]) checkRoutes() []error {
	var errs []error
	for _, from := range slices.Sorted(maps.Keys(g.conditionalEdges)) {
		if from != START && !g.known(from) {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		pathMap := g.conditionalEdges[from].pathMap
		for _, label := range slices.Sorted(maps.Keys(pathMap)) {
			if to := pathMap[label]; to != END && !g.known(to) {
				errs = append(errs, fmt.Errorf("%w: path map of '%s' routes %q to '%s'", ErrNodeNotFound, from, label, to))
			}
		}
	}
	return errs
}

func (g *Graph[S]) checkRetryPolicies() []error {
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(g.retryPolicies)) {
		if !g.known(id) {
			errs = append(errs, fmt.Errorf("%w: retry policy for '%s'", ErrNodeNotFound, id))
		}
	}
	return errs
}

// dynamic reports whether id picks its successor at run time.
func (g *Graph[S]) dynamic(id string) bool {
	_, routed := g.conditionalEdges[id]
	return routed || g.nodes[id].command != nil
}

// reachesEnd walks fixed edges backwards from END. Routers and command
// nodes count as reaching END because their targets are only known at run
// time.
func (g *Graph[S]) reachesEnd() bool {
	into := make(map[string][]string)
	for from, targets := range g.edges {
		for _, to := range targets {
			into[to] = append(into[to], from)
		}
	}
	seeds := []string{END}
	for _, id := range slices.Sorted(maps.Keys(g.conditionalEdges)) {
		seeds = append(seeds, id)
	}
	for _, id := range g.order {
		if g.nodes[id].command != nil {
			seeds = append(seeds, id)
		}
	}
	_, ok := walk(seeds, func(id string) []string { return into[id] })[START]
	return ok
}

// reachable is every node START can get to. A path map bounds a router's
// targets; without one, or after a command node, any node may follow.
func (g *Graph[S]) reachable() map[string]int {
	return walk([]string{START}, func(id string) []string {
		next := slices.Clone(g.edges[id])
		switch ce, routed := g.conditionalEdges[id]; {
		case routed && ce.pathMap != nil:
			next = append(next, slices.Collect(maps.Values(ce.pathMap))...)
		case g.dynamic(id):
			next = append(next, g.order...)
		}
		return next
	})
}

// walk is a breadth-first search returning each visited node's distance
// from the nearest seed. END is never entered.
func walk(seeds []string, next func(string) []string) map[string]int {
	dist := make(map[string]int, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if _, seen := dist[s]; !seen {
			dist[s] = 0
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next(cur) {
			if _, seen := dist[n]; seen || n == END {
				continue
			}
			dist[n] = dist[cur] + 1
			queue = append(queue, n)
		}
	}
	return dist
}

func (g *Graph[S]) freeze() *CompiledGraph[S] {
	edges := make(map[string][]string, len(g.edges))
	predecessors := make(map[string][]string)
	for _, from := range slices.Sorted(maps.Keys(g.edges)) {
		edges[from] = slices.Clone(g.edges[from])
		for _, to := range edges[from] {
			if to != END {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}

	routes := make(map[string]conditionalEdge[S], len(g.conditionalEdges))
	isConditional := make(map[string]bool, len(g.conditionalEdges))
	for from, ce := range g.conditionalEdges {
		routes[from] = conditionalEdge[S]{router: ce.router, pathMap: maps.Clone(ce.pathMap)}
		isConditional[from] = true
	}

	forks, joins := findForks(edges, isConditional)

	return &CompiledGraph[S]{
		name:             g.name,
		nodes:            maps.Clone(g.nodes),
		order:            slices.Clone(g.order),
		edges:            edges,
		conditionalEdges: routes,
		reducer:          g.reducer,
		retryPolicies:    maps.Clone(g.retryPolicies),
		predecessors:     predecessors,
		isConditional:    isConditional,
		forkNodes:        forks,
		joinNodes:        joins,
		branchHook:       g.branchHook,
		forkJoinConfig:   g.forkJoinConfig,
	}
}

// findForks marks every node with two or more fixed edges and no router
// as a fork, START included. Its join is the nearest node that every
// branch reaches; none means the branches only meet at END.
func findForks(edges map[string][]string, isConditional map[string]bool) (map[string]*ForkNode, map[string]*JoinNode) {
	forks := make(map[string]*ForkNode)
	joins := make(map[string]*JoinNode)
	follow := func(id string) []string { return edges[id] }

	for from, targets := range edges {
		if len(targets) < 2 || isConditional[from] {
			continue
		}
		fork := &ForkNode{NodeID: from, Branches: slices.Clone(targets)}
		fork.JoinNodeID = convergence(targets, follow)
		forks[from] = fork

		if fork.JoinNodeID != "" {
			joins[fork.JoinNodeID] = &JoinNode{
				NodeID:           fork.JoinNodeID,
				ForkNodeID:       from,
				ExpectedBranches: fork.Branches,
			}
		}
	}
	return forks, joins
}

// convergence returns the node reachable from all branches that is closest
// to the first branch, ties broken by name.
func convergence(branches []string, follow func(string) []string) string {
	if len(branches) == 0 {
		return ""
	}
	fromFirst := walk(branches[:1], follow)
	common := maps.Clone(fromFirst)
	for _, b := range branches[1:] {
		other := walk([]string{b}, follow)
		maps.DeleteFunc(common, func(id string, _ int) bool {
			_, ok := other[id]
			return !ok
		})
	}
	if len(common) == 0 {
		return ""
	}
	ids := slices.Collect(maps.Keys(common))
	return slices.MinFunc(ids, func(a, b string) int {
		return cmp.Or(cmp.Compare(fromFirst[a], fromFirst[b]), cmp.Compare(a, b))
	})
}
