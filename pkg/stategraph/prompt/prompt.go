// Package prompt renders chat prompts from templates with {name}
// placeholders.
//
//	validate := prompt.Chat("You are a claims reviewer.",
//	    "Claim: {claim}\nPolicies:\n{policies}")
//	text, err := validate.Invoke(ctx, client, map[string]any{
//	    "claim":    s.ClaimDetails,
//	    "policies": s.PolicyDocs, // []string joins with newlines
//	})
//
// Write {{ and }} for literal braces. Missing variables are an error by
// default; see WithMissingAction.
package prompt

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
)

// placeholder matches {name}, {{ and }}.
var placeholder = regexp.MustCompile(`\{\{|\}\}|\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// MissingAction specifies how to handle variables without a value.
type MissingAction int

const (
	// MissingError fails the render. This is the default.
	MissingError MissingAction = iota

	// MissingKeep leaves the placeholder in the output.
	MissingKeep

	// MissingEmpty replaces the placeholder with an empty string.
	MissingEmpty
)

// Option configures a Template.
type Option func(*Template)

// WithMissingAction sets how missing variables are handled.
func WithMissingAction(action MissingAction) Option {
	return func(t *Template) {
		t.missing = action
	}
}

// Template is an immutable prompt: an optional system part and a user
// part. It is safe for concurrent use.
type Template struct {
	system  string
	user    string
	partial map[string]any
	missing MissingAction
}

// New creates a user-only template.
func New(user string, opts ...Option) *Template {
	return Chat("", user, opts...)
}

// Chat creates a template with a system prompt.
func Chat(system, user string, opts ...Option) *Template {
	t := &Template{system: system, user: user}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Partial returns a copy of t with some variables bound. Values passed at
// render time take precedence.
func (t *Template) Partial(vars map[string]any) *Template {
	c := *t
	c.partial = maps.Clone(t.partial)
	if c.partial == nil {
		c.partial = make(map[string]any, len(vars))
	}
	maps.Copy(c.partial, vars)
	return &c
}

// Variables lists the placeholder names of both parts in sorted order,
// including ones already bound by Partial.
func (t *Template) Variables() []string {
	seen := make(map[string]bool)
	for _, text := range []string{t.system, t.user} {
		for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
			if m[1] != "" {
				seen[m[1]] = true
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Format renders the user part.
func (t *Template) Format(vars map[string]any) (string, error) {
	return t.render(t.user, vars)
}

// FormatSystem renders the system part.
func (t *Template) FormatSystem(vars map[string]any) (string, error) {
	return t.render(t.system, vars)
}

// Request renders both parts into a single-turn completion request.
func (t *Template) Request(vars map[string]any) (llm.CompletionRequest, error) {
	system, err := t.FormatSystem(vars)
	if err != nil {
		return llm.CompletionRequest{}, err
	}
	user, err := t.Format(vars)
	if err != nil {
		return llm.CompletionRequest{}, err
	}
	return llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []message.Message{message.User(user)},
	}, nil
}

// Invoke renders the template, sends it to client and returns the reply.
func (t *Template) Invoke(ctx context.Context, client llm.Client, vars map[string]any) (string, error) {
	if client == nil {
		return "", llm.ErrNoClient
	}
	req, err := t.Request(vars)
	if err != nil {
		return "", err
	}
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (t *Template) render(text string, vars map[string]any) (string, error) {
	if text == "" {
		return "", nil
	}

	var missing []string
	out := placeholder.ReplaceAllStringFunc(text, func(match string) string {
		switch match {
		case "{{":
			return "{"
		case "}}":
			return "}"
		}
		name := match[1 : len(match)-1]
		if v, ok := t.lookup(name, vars); ok {
			return stringify(v)
		}
		switch t.missing {
		case MissingEmpty:
			return ""
		case MissingKeep:
			return match
		default:
			missing = append(missing, name)
			return match
		}
	})

	if len(missing) > 0 {
		return out, &UndefinedVariableError{Names: missing}
	}
	return out, nil
}

func (t *Template) lookup(name string, vars map[string]any) (any, bool) {
	if v, ok := vars[name]; ok {
		return v, true
	}
	v, ok := t.partial[name]
	return v, ok
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, "\n")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// UndefinedVariableError is returned when a placeholder has no value and
// the template uses MissingError.
type UndefinedVariableError struct {
	Names []string
}

func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined prompt variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined prompt variables: %s", strings.Join(e.Names, ", "))
}
