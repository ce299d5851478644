package llm

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
)

// CompletionRequest is one call to a chat model. Zero model settings leave
// the choice to the client.
type CompletionRequest struct {
	SystemPrompt string            `json:"system_prompt,omitempty"`
	Messages     []message.Message `json:"messages"`
	Tools        []Tool            `json:"tools,omitempty"`

	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// LastUserContent is the newest user turn, or "" when there is none.
func (r CompletionRequest) LastUserContent() string {
	for _, m := range slices.Backward(r.Messages) {
		if m.Role == message.RoleUser {
			return m.Content
		}
	}
	return ""
}

func (r CompletionRequest) LastMessage() (message.Message, bool) {
	if n := len(r.Messages); n > 0 {
		return r.Messages[n-1], true
	}
	return message.Message{}, false
}

// Tool advertises a callable function. Parameters is a JSON Schema object.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// CompletionResponse is the model's answer: text, tool calls, or both.
type CompletionResponse struct {
	Content      string             `json:"content"`
	ToolCalls    []message.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string             `json:"finish_reason"`
	Model        string             `json:"model"`
	Usage        TokenUsage         `json:"usage"`
	Duration     time.Duration      `json:"duration"`
}

// Message turns the response into the assistant turn to append to the
// conversation.
func (r *CompletionResponse) Message() message.Message {
	return message.Assistant(r.Content, r.ToolCalls...)
}

type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates other, for totals across several calls.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}
