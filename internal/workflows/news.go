package workflows

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

const newsAnalystPrompt = "You are a news analyst summarizing current affairs. " +
	"Use the retrieved news articles to answer the user's question. " +
	"If the articles do not contain the answer, state that clearly."

var newsPrompt = prompt.Chat(newsAnalystPrompt, "Question:\n{question}\n\nNews Articles:\n{articles}")

// RetrievalState is the state of the retrieval subgraph.
type RetrievalState struct {
	Input string     `json:"input"`
	Data  []Document `json:"data,omitempty"`
}

// NewsState is the state of the news summary workflow.
type NewsState struct {
	Question      string     `json:"question" validate:"required"`
	RetrievedNews []Document `json:"retrieved_news,omitempty"`
	Generation    string     `json:"generation,omitempty"`
}

// NewRetrieval builds the one-node retrieval graph used as a subgraph.
func NewRetrieval(r Retriever, k int) (*stategraph.CompiledGraph[RetrievalState], error) {
	retrieve := func(ctx stategraph.Context, s RetrievalState) (RetrievalState, error) {
		docs, err := r.Retrieve(ctx, s.Input, k)
		if err != nil {
			return s, fmt.Errorf("retrieve: %w", err)
		}
		s.Data = docs
		return s, nil
	}

	return stategraph.NewGraph[RetrievalState]().
		SetName("retrieval").
		AddNode("retrieve_data", retrieve).
		AddEdge(stategraph.START, "retrieve_data").
		AddEdge("retrieve_data", stategraph.END).
		Compile()
}

// NewNews builds the news RAG workflow: the retrieval subgraph fetches
// articles, then the model answers the question from them.
func NewNews(client llm.Client, r Retriever) (*stategraph.CompiledGraph[NewsState], error) {
	retrieval, err := NewRetrieval(r, 3)
	if err != nil {
		return nil, err
	}

	retrieve := stategraph.Subgraph(retrieval,
		func(s NewsState) RetrievalState { return RetrievalState{Input: s.Question} },
		func(s NewsState, out RetrievalState) NewsState {
			s.RetrievedNews = out.Data
			return s
		})

	generate := func(ctx stategraph.Context, s NewsState) (NewsState, error) {
		articles := make([]string, 0, len(s.RetrievedNews))
		for _, doc := range s.RetrievedNews {
			articles = append(articles, doc.Content)
		}
		out, err := newsPrompt.Invoke(ctx, client, map[string]any{
			"question": s.Question,
			"articles": strings.Join(articles, "\n---\n"),
		})
		if err != nil {
			return s, fmt.Errorf("summarize news: %w", err)
		}
		s.Generation = out
		return s, nil
	}

	return stategraph.NewGraph[NewsState]().
		SetName("news").
		AddNode("retrieve_news", retrieve).
		AddNode("generate_summary", generate).
		AddEdge(stategraph.START, "retrieve_news").
		AddEdge("retrieve_news", "generate_summary").
		AddEdge("generate_summary", stategraph.END).
		Compile()
}

func newsWorkflow(d Deps) (Workflow, error) {
	g, err := NewNews(d.LLM, d.News)
	if err != nil {
		return nil, err
	}
	return newEntry("news", "Retrieval-augmented summary with a retrieval subgraph", g), nil
}
