package stategraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// Context is what a node receives: a context.Context plus the services and
// identity of the run it belongs to.
//
// Each node attempt gets its own copy with NodeID, Attempt and the logger
// attributes filled in, so nodes may keep a Context past their return
// without seeing later changes.
type Context interface {
	context.Context

	// Logger is never nil. It carries run_id, node_id and attempt, and
	// thread_id when the run checkpoints.
	Logger() *slog.Logger

	// LLM and Checkpointer return nil when not configured.
	LLM() llm.Client
	Checkpointer() checkpoint.Store

	RunID() string
	ThreadID() string
	NodeID() string // empty outside a node
	Attempt() int   // 1 on the first try
}

type executionContext struct {
	context.Context

	logger       *slog.Logger
	llmClient    llm.Client
	checkpointer checkpoint.Store

	runID    string
	threadID string
	nodeID   string
	attempt  int

	// interrupts collects Interrupt calls while a node runs.
	interrupts *interruptScope
}

func (c *executionContext) Logger() *slog.Logger           { return c.logger }
func (c *executionContext) LLM() llm.Client                { return c.llmClient }
func (c *executionContext) Checkpointer() checkpoint.Store { return c.checkpointer }
func (c *executionContext) RunID() string                  { return c.runID }
func (c *executionContext) ThreadID() string               { return c.threadID }
func (c *executionContext) NodeID() string                 { return c.nodeID }
func (c *executionContext) Attempt() int                   { return c.attempt }

// ContextOption configures NewContext.
type ContextOption func(*executionContext)

// WithLogger replaces slog.Default. A nil logger is ignored.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLLM makes client available to nodes through Context.LLM.
func WithLLM(client llm.Client) ContextOption {
	return func(c *executionContext) { c.llmClient = client }
}

// WithCheckpointer exposes store to nodes. Runs that checkpoint set it
// themselves when it is missing.
func WithCheckpointer(store checkpoint.Store) ContextOption {
	return func(c *executionContext) { c.checkpointer = store }
}

// WithContextRunID fixes the run ID instead of generating a UUID. The
// WithRunID run option wins over it.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) { c.runID = id }
}

// NewContext wraps ctx for Run, Resume and the state methods:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithLogger(logger),
//	    stategraph.WithLLM(client))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	c := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.NewString(),
		attempt: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// asExecutionContext copies ctx's execution context so a run can change
// it freely. Plain contexts get the defaults.
func asExecutionContext(ctx context.Context) *executionContext {
	ec, ok := ctx.(*executionContext)
	if !ok {
		return NewContext(ctx).(*executionContext)
	}
	clone := *ec
	return &clone
}

// withContext swaps the underlying context.Context, for spans and
// cancellation, keeping everything else.
func (c *executionContext) withContext(ctx context.Context) *executionContext {
	clone := *c
	clone.Context = ctx
	return &clone
}

func (c *executionContext) forNode(nodeID string, attempt int, scope *interruptScope) *executionContext {
	clone := *c
	clone.nodeID = nodeID
	clone.attempt = attempt
	clone.interrupts = scope
	clone.logger = observability.NodeLogger(c.logger, c.runID, c.threadID, nodeID, attempt)
	return &clone
}
