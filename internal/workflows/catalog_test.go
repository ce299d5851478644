package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

func TestNewCatalog(t *testing.T) {
	catalog, err := NewCatalog(Deps{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"claims", "hello", "market", "news", "reflection",
		"restaurant", "sales", "strategy", "support", "terraform",
	}, catalog.Keys())

	for name, wf := range catalog.All() {
		assert.Equal(t, name, wf.Name())
		assert.NotEmpty(t, wf.Description(), name)
		assert.Contains(t, wf.Mermaid(), "graph TD;", name)
	}
}

func TestWorkflow_RunFromLooseInput(t *testing.T) {
	catalog, err := NewCatalog(Deps{})
	require.NoError(t, err)

	support, err := catalog.Lookup("support")
	require.NoError(t, err)

	out, err := support.Run(ctx(), map[string]any{"message": "printer jammed", "priority": "1"})

	require.NoError(t, err)
	assert.Equal(t, SupportRequest{Message: "printer jammed", Priority: 1, Queue: "urgent"}, out)

	_, err = support.Run(ctx(), map[string]any{"priority": 2})
	assert.ErrorIs(t, err, stategraph.ErrInvalidInput)
}

func TestWorkflow_ResumeAndState(t *testing.T) {
	catalog, err := NewCatalog(Deps{})
	require.NoError(t, err)
	terraform, err := catalog.Lookup("terraform")
	require.NoError(t, err)
	store := checkpoint.NewMemoryStore()

	_, err = terraform.Run(ctx(), map[string]any{"inst": "s3 bucket"}, thread(store, "t")...)
	require.ErrorIs(t, err, stategraph.ErrInterrupted)

	snap, err := terraform.State(ctx(), store, "t")
	require.NoError(t, err)
	assert.Equal(t, "approve_code", snap.Next)
	assert.Len(t, snap.Interrupts, 1)
	assert.Equal(t, "t", snap.ThreadID)

	out, err := terraform.Resume(ctx(), store, "t", stategraph.WithResumeValue(true))
	require.NoError(t, err)
	assert.Equal(t, "applied code successfully", out.(TerraformState).Response)

	snap, err = terraform.State(ctx(), store, "t")
	require.NoError(t, err)
	assert.Equal(t, stategraph.END, snap.Next)
	assert.Empty(t, snap.Interrupts)
}
