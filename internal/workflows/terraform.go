package workflows

import (
	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// TerraformState is the state of the infrastructure-as-code approval flow.
type TerraformState struct {
	Instruction string `json:"inst" validate:"required"`
	Code        string `json:"code,omitempty"`
	Approved    bool   `json:"approve"`
	Response    string `json:"response,omitempty"`
}

// ApprovalRequest is the interrupt payload shown to the reviewer.
type ApprovalRequest struct {
	Question string `json:"question"`
	Code     string `json:"code"`
}

// NewTerraform builds the human-in-the-loop flow: generate code, pause for
// approval, and apply only when the reviewer resumes with true.
func NewTerraform() (*stategraph.CompiledGraph[TerraformState], error) {
	genCode := func(_ stategraph.Context, s TerraformState) (stategraph.Command[TerraformState], error) {
		s.Code = "Generated code for " + s.Instruction
		return stategraph.Command[TerraformState]{Update: s, Goto: "approve_code"}, nil
	}

	approveCode := func(ctx stategraph.Context, s TerraformState) (stategraph.Command[TerraformState], error) {
		approved, err := stategraph.Interrupt[bool](ctx, ApprovalRequest{
			Question: "Approve this code",
			Code:     s.Code,
		})
		if err != nil {
			return stategraph.Command[TerraformState]{}, err
		}

		s.Approved = approved
		if !approved {
			ctx.Logger().Info("code rejected by reviewer")
			return stategraph.Command[TerraformState]{Update: s, Goto: stategraph.END}, nil
		}
		return stategraph.Command[TerraformState]{Update: s, Goto: "apply_code"}, nil
	}

	applyCode := func(_ stategraph.Context, s TerraformState) (TerraformState, error) {
		s.Response = "applied code successfully"
		return s, nil
	}

	return stategraph.NewGraph[TerraformState]().
		SetName("terraform").
		AddCommandNode("gen_code", genCode).
		AddCommandNode("approve_code", approveCode).
		AddNode("apply_code", applyCode).
		SetEntry("gen_code").
		AddEdge("apply_code", stategraph.END).
		Compile()
}

func terraformWorkflow(Deps) (Workflow, error) {
	g, err := NewTerraform()
	if err != nil {
		return nil, err
	}
	return newEntry("terraform", "Command goto with an approval interrupt; resume with true or false", g), nil
}
