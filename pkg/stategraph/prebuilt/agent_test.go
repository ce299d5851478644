package prebuilt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
)

// weatherModel answers with the tool result after calling get_weather.
func weatherModel() *llm.RuleClient {
	return llm.NewRuleClient().
		On("summarize", llm.AfterTool(), llm.Replyf(func(req llm.CompletionRequest) string {
			last, _ := req.LastMessage()
			return "It is " + last.Content + "."
		})).
		On("weather", llm.UserContains("weather"), llm.CallTool("get_weather", weatherArgs{City: "Paris"})).
		Otherwise(llm.Reply("I can only talk about the weather."))
}

func roles(msgs []message.Message) []message.Role {
	out := make([]message.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestNewAgent_ToolLoop(t *testing.T) {
	model := weatherModel()
	agent, err := NewAgent(model, []Tool{weatherTool()}, WithSystemPrompt("You report the weather."))
	require.NoError(t, err)

	result, err := agent.Run(stategraph.NewContext(context.Background()), message.State{
		Messages: []message.Message{message.User("What's the weather in Paris?")},
	})

	require.NoError(t, err)
	assert.Equal(t, []message.Role{
		message.RoleUser, message.RoleAssistant, message.RoleTool, message.RoleAssistant,
	}, roles(result.Messages))
	assert.Equal(t, "sunny in Paris", result.Messages[2].Content)
	assert.Equal(t, "It is sunny in Paris.", result.Messages[3].Content)
	assert.Equal(t, 2, model.Calls())
}

func TestNewAgent_DirectAnswer(t *testing.T) {
	model := weatherModel()
	agent, err := NewAgent(model, []Tool{weatherTool()})
	require.NoError(t, err)

	result, err := agent.Run(stategraph.NewContext(context.Background()), message.State{
		Messages: []message.Message{message.User("hello")},
	})

	require.NoError(t, err)
	last, _ := result.Last()
	assert.Equal(t, "I can only talk about the weather.", last.Content)
	assert.Equal(t, 1, model.Calls())
}

func TestNewAgent_PassesToolsAndPrompt(t *testing.T) {
	var seen llm.CompletionRequest
	model := llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		seen = req
		return &llm.CompletionResponse{Content: "ok"}, nil
	})

	agent, err := NewAgent(model, []Tool{weatherTool()},
		WithSystemPrompt("be brief"), WithModel("small"), WithName("brief"))
	require.NoError(t, err)
	assert.Equal(t, "brief", agent.Name())

	_, err = agent.Run(stategraph.NewContext(context.Background()), message.State{
		Messages: []message.Message{message.User("hi")},
	})
	require.NoError(t, err)

	assert.Equal(t, "be brief", seen.SystemPrompt)
	assert.Equal(t, "small", seen.Model)
	require.Len(t, seen.Tools, 1)
	assert.Equal(t, "get_weather", seen.Tools[0].Name)
}

func TestNewAgent_ClientFromContext(t *testing.T) {
	agent, err := NewAgent(nil, nil)
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background(), stategraph.WithLLM(llm.NewRuleClient().Otherwise(llm.Reply("from context"))))
	result, err := agent.Run(ctx, message.State{Messages: []message.Message{message.User("hi")}})
	require.NoError(t, err)
	last, _ := result.Last()
	assert.Equal(t, "from context", last.Content)

	_, err = agent.Run(stategraph.NewContext(context.Background()), message.State{})
	assert.ErrorIs(t, err, llm.ErrNoClient)
}

func TestNewAgent_RemembersThread(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	agent, err := NewAgent(weatherModel(), []Tool{weatherTool()})
	require.NoError(t, err)

	opts := []stategraph.RunOption{stategraph.WithCheckpointing(store), stategraph.WithThreadID("chat")}
	ctx := stategraph.NewContext(context.Background())

	_, err = agent.Run(ctx, message.State{Messages: []message.Message{message.User("weather please")}}, opts...)
	require.NoError(t, err)

	result, err := agent.Run(ctx, message.State{Messages: []message.Message{message.User("thanks")}}, opts...)
	require.NoError(t, err)

	assert.Len(t, result.Messages, 6, "second turn continues the first")
	last, _ := result.Last()
	assert.Equal(t, "I can only talk about the weather.", last.Content)
}
