package workflows

import (
	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
)

// NewSales builds a two-reply sales chat. Nodes return only their new
// message and the messages reducer appends it to the conversation.
func NewSales() (*stategraph.CompiledGraph[message.State], error) {
	reply := func(text string) stategraph.NodeFunc[message.State] {
		return func(stategraph.Context, message.State) (message.State, error) {
			return message.State{Messages: []message.Message{message.Assistant(text)}}, nil
		}
	}

	return stategraph.NewGraph[message.State]().
		SetName("sales").
		SetReducer(message.State{}.Reduce).
		AddNode("connect_to_sales", reply("Great! Let me connect you with our sales team right away.")).
		AddNode("sales_response", reply("We have the best offer for you.")).
		AddEdge(stategraph.START, "connect_to_sales").
		AddEdge("connect_to_sales", "sales_response").
		AddEdge("sales_response", stategraph.END).
		Compile()
}

func salesWorkflow(Deps) (Workflow, error) {
	g, err := NewSales()
	if err != nil {
		return nil, err
	}
	return newEntry("sales", "Messages reducer appending assistant replies", g), nil
}
