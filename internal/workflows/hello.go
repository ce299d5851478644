package workflows

import "github.com/randalmurphal/stategraph/pkg/stategraph"

// HelloState is the state of the hello workflow.
type HelloState struct {
	Message string `json:"message" validate:"required"`
}

// NewHello builds the two-step greeting graph: hello, then bye.
func NewHello() (*stategraph.CompiledGraph[HelloState], error) {
	hello := func(ctx stategraph.Context, s HelloState) (HelloState, error) {
		ctx.Logger().Info("hello node", "message", s.Message)
		return HelloState{Message: "Hello " + s.Message}, nil
	}
	bye := func(ctx stategraph.Context, s HelloState) (HelloState, error) {
		ctx.Logger().Info("bye node", "message", s.Message)
		return HelloState{Message: "Bye " + s.Message}, nil
	}

	return stategraph.NewGraph[HelloState]().
		SetName("hello").
		AddNode("hello", hello).
		AddNode("bye", bye).
		SetEntry("hello").
		AddEdge("hello", "bye").
		AddEdge("bye", stategraph.END).
		Compile()
}

func helloWorkflow(Deps) (Workflow, error) {
	g, err := NewHello()
	if err != nil {
		return nil, err
	}
	return newEntry("hello", "Linear two-node graph with an explicit entry point", g), nil
}
