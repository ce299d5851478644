package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
)

// Matcher decides whether a rule applies to a request.
type Matcher func(req CompletionRequest) bool

// Responder builds the response for a matched request.
type Responder func(req CompletionRequest) (*CompletionResponse, error)

// Rule pairs a matcher with a responder.
type Rule struct {
	Name    string
	Match   Matcher
	Respond Responder
}

// RuleClient answers requests with the first matching rule.
// It is deterministic and safe for concurrent use.
type RuleClient struct {
	rules    []Rule
	fallback Responder

	mu    sync.Mutex
	calls int
}

// NewRuleClient creates a client evaluating rules in order.
func NewRuleClient(rules ...Rule) *RuleClient {
	return &RuleClient{rules: rules}
}

// On appends a rule and returns the client for chaining.
func (c *RuleClient) On(name string, match Matcher, respond Responder) *RuleClient {
	c.rules = append(c.rules, Rule{Name: name, Match: match, Respond: respond})
	return c
}

// Otherwise sets the responder used when no rule matches.
func (c *RuleClient) Otherwise(respond Responder) *RuleClient {
	c.fallback = respond
	return c
}

// Complete implements Client.
func (c *RuleClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	for _, r := range c.rules {
		if r.Match == nil || r.Match(req) {
			return finish(r.Respond(req))
		}
	}
	if c.fallback != nil {
		return finish(c.fallback(req))
	}
	return nil, fmt.Errorf("rule client: no rule matched %q", req.LastUserContent())
}

// Calls returns how many completions were requested.
func (c *RuleClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func finish(resp *CompletionResponse, err error) (*CompletionResponse, error) {
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = "rule"
	}
	if resp.FinishReason == "" {
		if len(resp.ToolCalls) > 0 {
			resp.FinishReason = "tool_use"
		} else {
			resp.FinishReason = "stop"
		}
	}
	return resp, nil
}

// UserContains matches when the latest user message contains any of the
// substrings, case-insensitively.
func UserContains(substrs ...string) Matcher {
	return func(req CompletionRequest) bool {
		content := strings.ToLower(req.LastUserContent())
		for _, s := range substrs {
			if strings.Contains(content, strings.ToLower(s)) {
				return true
			}
		}
		return false
	}
}

// SystemContains matches on the system prompt.
func SystemContains(substr string) Matcher {
	return func(req CompletionRequest) bool {
		return strings.Contains(strings.ToLower(req.SystemPrompt), strings.ToLower(substr))
	}
}

// AfterTool matches when the final message is a tool result.
func AfterTool() Matcher {
	return func(req CompletionRequest) bool {
		last, ok := req.LastMessage()
		return ok && last.Role == message.RoleTool
	}
}

// Reply responds with fixed text.
func Reply(text string) Responder {
	return func(CompletionRequest) (*CompletionResponse, error) {
		return &CompletionResponse{Content: text}, nil
	}
}

// Replyf responds with text computed from the request.
func Replyf(fn func(req CompletionRequest) string) Responder {
	return func(req CompletionRequest) (*CompletionResponse, error) {
		return &CompletionResponse{Content: fn(req)}, nil
	}
}

// CallTool responds with a single tool call. args is JSON encoded.
func CallTool(name string, args any) Responder {
	return func(CompletionRequest) (*CompletionResponse, error) {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode %s arguments: %w", name, err)
		}
		return &CompletionResponse{
			ToolCalls: []message.ToolCall{{ID: "call_" + uuid.NewString()[:8], Name: name, Arguments: raw}},
		}, nil
	}
}
