// Package message provides the chat message type and the append-or-replace
// reducer used by conversational graphs.
package message

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ToolCall is a tool invocation requested by an assistant message.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is a conversation turn.
type Message struct {
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Name identifies the tool for tool messages.
	Name string `json:"name,omitempty"`

	// ToolCalls is set on assistant messages that request tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// User returns a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant returns an assistant message.
func Assistant(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// System returns a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ToolResult returns a tool message answering call.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Name: call.Name, Content: content, ToolCallID: call.ID}
}

// HasToolCalls reports whether the message requests tool execution.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// AddMessages merges right into left.
//
// Messages without an ID are assigned a new UUID. A message in right whose
// ID matches one in left replaces it in place; all others are appended in
// order. Neither input slice is modified.
func AddMessages(left, right []Message) []Message {
	merged := make([]Message, len(left), len(left)+len(right))
	copy(merged, left)

	index := make(map[string]int, len(merged))
	for i := range merged {
		if merged[i].ID == "" {
			merged[i].ID = uuid.NewString()
		}
		index[merged[i].ID] = i
	}

	for _, m := range right {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if i, ok := index[m.ID]; ok {
			merged[i] = m
			continue
		}
		index[m.ID] = len(merged)
		merged = append(merged, m)
	}
	return merged
}

// State is a graph state holding only a conversation.
// Use State.Reduce as the graph reducer so nodes return just the new
// messages.
type State struct {
	Messages []Message `json:"messages"`
}

// Reduce appends update's messages to current's.
func (State) Reduce(current, update State) State {
	return State{Messages: AddMessages(current.Messages, update.Messages)}
}

// Last returns the most recent message, or false if there are none.
func (s State) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
