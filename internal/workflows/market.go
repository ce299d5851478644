package workflows

import (
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

// MarketResearchState is the state of the parallel market research
// workflow. Each research branch writes its own field.
type MarketResearchState struct {
	Query       string `json:"query" validate:"required"`
	Trends      string `json:"trends,omitempty"`
	Competitors string `json:"competitors,omitempty"`
	Sentiment   string `json:"sentiment,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

var (
	trendsPrompt      = prompt.New("What are the latest market trends for {query}?")
	competitorsPrompt = prompt.New("List top competitors in the {query} market.")
	sentimentPrompt   = prompt.New("What is the customer sentiment toward products in the {query} category?")
	marketPrompt      = prompt.New(`Provide a strategic market entry summary for the following product: {query}

Market Trends:
{trends}

Competitor Landscape:
{competitors}

Customer Sentiment:
{sentiment}`)
)

// NewMarket builds the fan-out research graph: three research nodes start
// from START in parallel and all feed summarize.
func NewMarket(client llm.Client) (*stategraph.CompiledGraph[MarketResearchState], error) {
	ask := func(name string, p *prompt.Template, set func(*MarketResearchState, string)) stategraph.NodeFunc[MarketResearchState] {
		return func(ctx stategraph.Context, s MarketResearchState) (MarketResearchState, error) {
			out, err := p.Invoke(ctx, client, map[string]any{"query": s.Query})
			if err != nil {
				return s, fmt.Errorf("%s: %w", name, err)
			}
			set(&s, out)
			return s, nil
		}
	}

	summarize := func(ctx stategraph.Context, s MarketResearchState) (MarketResearchState, error) {
		out, err := marketPrompt.Invoke(ctx, client, map[string]any{
			"query":       s.Query,
			"trends":      s.Trends,
			"competitors": s.Competitors,
			"sentiment":   s.Sentiment,
		})
		if err != nil {
			return s, fmt.Errorf("summarize: %w", err)
		}
		s.Summary = out
		return s, nil
	}

	return stategraph.NewGraph[MarketResearchState]().
		SetName("market").
		AddNode("fetch_trends", ask("fetch_trends", trendsPrompt,
			func(s *MarketResearchState, v string) { s.Trends = v })).
		AddNode("analyze_competitors", ask("analyze_competitors", competitorsPrompt,
			func(s *MarketResearchState, v string) { s.Competitors = v })).
		AddNode("extract_sentiment", ask("extract_sentiment", sentimentPrompt,
			func(s *MarketResearchState, v string) { s.Sentiment = v })).
		AddNode("summarize", summarize).
		AddEdge(stategraph.START, "fetch_trends").
		AddEdge(stategraph.START, "analyze_competitors").
		AddEdge(stategraph.START, "extract_sentiment").
		AddEdge("fetch_trends", "summarize").
		AddEdge("analyze_competitors", "summarize").
		AddEdge("extract_sentiment", "summarize").
		AddEdge("summarize", stategraph.END).
		Compile()
}

func marketWorkflow(d Deps) (Workflow, error) {
	g, err := NewMarket(d.LLM)
	if err != nil {
		return nil, err
	}
	return newEntry("market", "Parallel fan-out from START joined by a summary node", g), nil
}
