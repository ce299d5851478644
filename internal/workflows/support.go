package workflows

import (
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// SupportRequest is a customer support ticket. Priority runs from 1
// (high) to 3 (low).
type SupportRequest struct {
	Message  string `json:"message" validate:"required"`
	Priority int    `json:"priority" validate:"omitempty,min=1,max=3"`
	Queue    string `json:"queue,omitempty"`
}

// CategorizeRequest labels a request "high" when it mentions urgency or
// has priority 1, and "low" otherwise.
func CategorizeRequest(_ stategraph.Context, r SupportRequest) string {
	if strings.Contains(strings.ToLower(r.Message), "urgent") || r.Priority == 1 {
		return "high"
	}
	return "low"
}

// NewSupport builds the support router: a conditional entry sends each
// request to the urgent team or the standard queue.
func NewSupport() (*stategraph.CompiledGraph[SupportRequest], error) {
	route := func(queue string) stategraph.NodeFunc[SupportRequest] {
		return func(ctx stategraph.Context, r SupportRequest) (SupportRequest, error) {
			ctx.Logger().Info("routing support request", "queue", queue, "priority", r.Priority)
			r.Queue = queue
			return r, nil
		}
	}

	return stategraph.NewGraph[SupportRequest]().
		SetName("support").
		AddNode("urgent", route("urgent")).
		AddNode("standard", route("standard")).
		SetConditionalEntry(CategorizeRequest, map[string]string{
			"high": "urgent",
			"low":  "standard",
		}).
		AddEdge("urgent", stategraph.END).
		AddEdge("standard", stategraph.END).
		Compile()
}

func supportWorkflow(Deps) (Workflow, error) {
	g, err := NewSupport()
	if err != nil {
		return nil, err
	}
	return newEntry("support", "Conditional entry routing on priority and urgency", g), nil
}
