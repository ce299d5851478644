// Package workflows holds the tutorial graphs served by the stategraph
// command: small, self-contained workflows that each exercise one part of
// the engine (routing, reducers, tools, interrupts, fan-out, subgraphs).
//
// Workflows that would call a model, a retriever or a clinical API take a
// small interface instead. The catalog wires them to deterministic
// in-process implementations so every workflow runs offline.
package workflows

import (
	"context"
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/registry"
)

// Workflow is a compiled graph with its state type erased, so the CLI can
// drive any entry of the catalog.
type Workflow interface {
	Name() string
	Description() string
	Mermaid() string

	// Run decodes input into the workflow state and runs the graph.
	Run(ctx context.Context, input map[string]any, opts ...stategraph.RunOption) (any, error)

	// Resume continues a thread from its latest checkpoint.
	Resume(ctx context.Context, store checkpoint.Store, threadID string, opts ...stategraph.ResumeOption) (any, error)

	// State returns the thread's latest snapshot.
	State(ctx context.Context, store checkpoint.Store, threadID string) (Snapshot, error)
}

// Snapshot is a type-erased stategraph.StateSnapshot.
type Snapshot struct {
	Values     any                    `json:"values"`
	ThreadID   string                 `json:"thread_id"`
	RunID      string                 `json:"run_id,omitempty"`
	NodeID     string                 `json:"node_id"`
	Next       string                 `json:"next"`
	Interrupts []checkpoint.Interrupt `json:"interrupts,omitempty"`
	Sequence   int                    `json:"sequence"`
}

type entry[S any] struct {
	name        string
	description string
	graph       *stategraph.CompiledGraph[S]
}

func newEntry[S any](name, description string, graph *stategraph.CompiledGraph[S]) *entry[S] {
	return &entry[S]{name: name, description: description, graph: graph}
}

func (e *entry[S]) Name() string        { return e.name }
func (e *entry[S]) Description() string { return e.description }
func (e *entry[S]) Mermaid() string     { return e.graph.Mermaid() }

func (e *entry[S]) Run(ctx context.Context, input map[string]any, opts ...stategraph.RunOption) (any, error) {
	state, err := stategraph.DecodeInput[S](input)
	if err != nil {
		return nil, err
	}
	return e.graph.Run(ctx, state, opts...)
}

func (e *entry[S]) Resume(ctx context.Context, store checkpoint.Store, threadID string, opts ...stategraph.ResumeOption) (any, error) {
	return e.graph.Resume(ctx, store, threadID, opts...)
}

func (e *entry[S]) State(ctx context.Context, store checkpoint.Store, threadID string) (Snapshot, error) {
	snap, err := e.graph.GetState(ctx, store, threadID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Values:     snap.Values,
		ThreadID:   snap.ThreadID,
		RunID:      snap.RunID,
		NodeID:     snap.NodeID,
		Next:       snap.Next,
		Interrupts: snap.Interrupts,
		Sequence:   snap.Sequence,
	}, nil
}

// Catalog indexes workflows by name.
type Catalog = registry.Registry[string, Workflow]

// NewCatalog compiles every workflow with deps.
func NewCatalog(deps Deps) (*Catalog, error) {
	deps = deps.withDefaults()
	catalog := registry.New[string, Workflow]()

	builders := []func(Deps) (Workflow, error){
		helloWorkflow,
		supportWorkflow,
		salesWorkflow,
		restaurantWorkflow,
		terraformWorkflow,
		claimsWorkflow,
		reflectionWorkflow,
		strategyWorkflow,
		marketWorkflow,
		newsWorkflow,
	}
	for _, build := range builders {
		wf, err := build(deps)
		if err != nil {
			return nil, err
		}
		if err := catalog.Register(wf.Name(), wf); err != nil {
			return nil, fmt.Errorf("register %s: %w", wf.Name(), err)
		}
	}
	return catalog, nil
}
