// Package prebuilt provides ready-made graph pieces for tool-using agents.
//
// A Tool is a named function the model may call. NewTool derives the
// argument schema from a Go struct:
//
//	type WeatherArgs struct {
//	    City string `json:"city" jsonschema:"description=City name"`
//	}
//
//	weather := prebuilt.NewTool("get_weather", "Current weather for a city",
//	    func(ctx context.Context, args WeatherArgs) (any, error) {
//	        return lookup(args.City)
//	    })
//
// ToolNode executes the tool calls of the latest assistant message and
// ToolsCondition routes to it while the model keeps asking for tools.
// NewAgent wires both around a model call into the usual agent loop:
//
//	agent ──(tool calls)──> tools ──> agent
//	  └──(no tool calls)──> END
package prebuilt
