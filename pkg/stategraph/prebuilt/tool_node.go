package prebuilt

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
)

// ToolsNodeID is the node ID NewAgent gives its ToolNode, and the label
// ToolsCondition returns.
const ToolsNodeID = "tools"

// ToolNode executes tool calls requested by the model.
type ToolNode struct {
	tools map[string]Tool
	order []string
}

// NewToolNode creates a ToolNode. Later tools with a duplicate name
// replace earlier ones.
func NewToolNode(tools ...Tool) *ToolNode {
	n := &ToolNode{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Definition().Name
		if _, dup := n.tools[name]; !dup {
			n.order = append(n.order, name)
		}
		n.tools[name] = t
	}
	return n
}

// Definitions returns the tool definitions in registration order.
func (n *ToolNode) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(n.order))
	for _, name := range n.order {
		defs = append(defs, n.tools[name].Definition())
	}
	return defs
}

// Execute runs calls concurrently and returns one tool message per call,
// in call order. A failing or unknown tool yields an error message for the
// model to read instead of failing the run.
func (n *ToolNode) Execute(ctx context.Context, calls []message.ToolCall) []message.Message {
	results := make([]message.Message, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = message.ToolResult(call, n.call(ctx, call))
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (n *ToolNode) call(ctx context.Context, call message.ToolCall) string {
	tool, ok := n.tools[call.Name]
	if !ok {
		return fmt.Sprintf("Error: %s is not a valid tool, try one of %v.", call.Name, n.order)
	}
	out, err := tool.Call(ctx, call.Arguments)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

// Node runs the tool calls of the last message in the conversation. It
// returns only the new tool messages, so the graph needs a messages
// reducer such as message.State{}.Reduce.
func (n *ToolNode) Node() stategraph.NodeFunc[message.State] {
	return func(ctx stategraph.Context, s message.State) (message.State, error) {
		last, ok := s.Last()
		if !ok || !last.HasToolCalls() {
			return message.State{}, nil
		}

		results := n.Execute(ctx, last.ToolCalls)
		for _, r := range results {
			ctx.Logger().Debug("tool called", "tool", r.Name, "call_id", r.ToolCallID)
		}
		return message.State{Messages: results}, nil
	}
}

// ToolsCondition routes to ToolsNodeID when the last message asks for
// tools and to END otherwise.
func ToolsCondition(_ stategraph.Context, s message.State) string {
	if last, ok := s.Last(); ok && last.HasToolCalls() {
		return ToolsNodeID
	}
	return stategraph.END
}
