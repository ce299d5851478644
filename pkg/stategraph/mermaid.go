package stategraph

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Mermaid renders the graph as a Mermaid flowchart.
//
// Simple edges are solid arrows. Conditional edges are dotted arrows,
// labeled with their path map keys; a router without a path map (and a
// command node) may go anywhere, so it gets a dotted arrow to every node
// and END.
func (cg *CompiledGraph[S]) Mermaid() string {
	var b strings.Builder

	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", cg.name)
	b.WriteString("---\n")
	b.WriteString("graph TD;\n")

	fmt.Fprintf(&b, "\t%s([<p>%s</p>]):::first\n", START, START)
	for _, id := range cg.order {
		fmt.Fprintf(&b, "\t%s(%s)\n", id, id)
	}
	fmt.Fprintf(&b, "\t%s([<p>%s</p>]):::last\n", END, END)

	sources := append([]string{START}, cg.order...)
	for _, from := range sources {
		for _, to := range cg.edges[from] {
			if _, conditional := cg.conditionalEdges[from]; conditional {
				continue
			}
			fmt.Fprintf(&b, "\t%s --> %s;\n", from, to)
		}

		ce, conditional := cg.conditionalEdges[from]
		switch {
		case conditional && ce.pathMap != nil:
			for _, label := range slices.Sorted(maps.Keys(ce.pathMap)) {
				to := ce.pathMap[label]
				if label == to {
					fmt.Fprintf(&b, "\t%s -.-> %s;\n", from, to)
				} else {
					fmt.Fprintf(&b, "\t%s -. &nbsp;%s&nbsp; .-> %s;\n", from, label, to)
				}
			}
		case conditional || cg.IsCommandNode(from):
			for _, to := range append(slices.Clone(cg.order), END) {
				if to != from {
					fmt.Fprintf(&b, "\t%s -.-> %s;\n", from, to)
				}
			}
		}
	}

	b.WriteString("\tclassDef default fill:#f2f0ff,line-height:1.2\n")
	b.WriteString("\tclassDef first fill-opacity:0\n")
	b.WriteString("\tclassDef last fill:#bfb6fc\n")
	return b.String()
}
