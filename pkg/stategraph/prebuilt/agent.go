package prebuilt

import (
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
)

// AgentNodeID is the node that calls the model.
const AgentNodeID = "agent"

type agentConfig struct {
	name         string
	systemPrompt string
	model        string
}

// AgentOption configures NewAgent.
type AgentOption func(*agentConfig)

// WithSystemPrompt sets the system prompt sent with every model call.
func WithSystemPrompt(prompt string) AgentOption {
	return func(c *agentConfig) {
		c.systemPrompt = prompt
	}
}

// WithModel sets the model name passed to the client.
func WithModel(model string) AgentOption {
	return func(c *agentConfig) {
		c.model = model
	}
}

// WithName sets the graph name.
func WithName(name string) AgentOption {
	return func(c *agentConfig) {
		c.name = name
	}
}

// NewAgent builds and compiles the agent loop: the model is called with
// the conversation and the tool definitions, requested tools run, and
// the model is called again until it answers without tool calls.
//
// When client is nil the agent uses the client from the execution context
// (stategraph.WithLLM).
func NewAgent(client llm.Client, tools []Tool, opts ...AgentOption) (*stategraph.CompiledGraph[message.State], error) {
	cfg := agentConfig{name: "agent"}
	for _, opt := range opts {
		opt(&cfg)
	}

	toolNode := NewToolNode(tools...)
	defs := toolNode.Definitions()

	callModel := func(ctx stategraph.Context, s message.State) (message.State, error) {
		c := client
		if c == nil {
			c = ctx.LLM()
		}
		if c == nil {
			return message.State{}, llm.ErrNoClient
		}

		resp, err := c.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: cfg.systemPrompt,
			Messages:     s.Messages,
			Model:        cfg.model,
			Tools:        defs,
		})
		if err != nil {
			return message.State{}, fmt.Errorf("call model: %w", err)
		}
		return message.State{Messages: []message.Message{resp.Message()}}, nil
	}

	g := stategraph.NewGraph[message.State]().
		SetName(cfg.name).
		SetReducer(message.State{}.Reduce).
		AddNode(AgentNodeID, callModel).
		AddEdge(stategraph.START, AgentNodeID)

	if len(defs) == 0 {
		g.AddEdge(AgentNodeID, stategraph.END)
		return g.Compile()
	}

	g.AddNode(ToolsNodeID, toolNode.Node()).
		AddConditionalEdge(AgentNodeID, ToolsCondition, map[string]string{
			ToolsNodeID:    ToolsNodeID,
			stategraph.END: stategraph.END,
		}).
		AddEdge(ToolsNodeID, AgentNodeID)

	return g.Compile()
}
