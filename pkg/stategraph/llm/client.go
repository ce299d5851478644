// Package llm defines the model client seam used by graph nodes.
//
// Graphs never talk to a provider directly. Nodes obtain a Client from the
// execution context (stategraph.Context.LLM) or receive one when the graph is
// built. RuleClient gives deterministic, offline responses for demos and
// tests.
package llm

import (
	"context"
	"errors"

	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
)

// ErrNoClient is returned when a node requests an LLM but none is configured.
var ErrNoClient = errors.New("no LLM client configured")

// Client produces completions.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// Text runs a single-turn completion and returns its content.
func Text(ctx context.Context, c Client, system, prompt string) (string, error) {
	if c == nil {
		return "", ErrNoClient
	}
	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: system,
		Messages:     []message.Message{message.User(prompt)},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
