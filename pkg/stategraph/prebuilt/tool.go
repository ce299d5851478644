package prebuilt

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

// Tool is a function the model can call.
type Tool interface {
	// Definition describes the tool to the model.
	Definition() llm.Tool

	// Call runs the tool with JSON-encoded arguments and returns its
	// result as text.
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

type typedTool[A any] struct {
	def llm.Tool
	fn  func(ctx context.Context, args A) (any, error)
}

// NewTool builds a Tool whose arguments decode into A. The parameter
// schema is reflected from A, honoring `json` and `jsonschema` tags.
// String results are returned as-is; anything else is JSON encoded.
func NewTool[A any](name, description string, fn func(ctx context.Context, args A) (any, error)) Tool {
	if name == "" {
		panic("prebuilt: tool name cannot be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("prebuilt: tool %q: function cannot be nil", name))
	}

	return &typedTool[A]{
		def: llm.Tool{
			Name:        name,
			Description: description,
			Parameters:  schemaFor[A](),
		},
		fn: fn,
	}
}

func (t *typedTool[A]) Definition() llm.Tool {
	return t.def
}

func (t *typedTool[A]) Call(ctx context.Context, raw json.RawMessage) (string, error) {
	var args A
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("decode arguments: %w", err)
		}
	}

	out, err := t.fn(ctx, args)
	if err != nil {
		return "", err
	}
	if s, ok := out.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}

// schemaFor reflects the JSON schema of A with definitions inlined. Only
// named structs can be expanded; anonymous structs, scalars and maps are
// already inlined by DoNotReference.
func schemaFor[A any]() json.RawMessage {
	t := reflect.TypeFor[A]()
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: t.Kind() == reflect.Struct && t.Name() != "",
	}
	schema := r.Reflect(new(A))
	schema.Version = ""

	data, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}
