package workflows

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

const (
	strategistPrompt       = "You are a business strategist."
	analystPrompt          = "You are a business analyst."
	expertStrategistPrompt = "You are an expert business strategist."
)

var (
	optionsPrompt = prompt.Chat(strategistPrompt,
		"The company specializes in {business}. Suggest three possible expansion strategies, one per line.")
	analysisPrompt = prompt.Chat(analystPrompt,
		"Analyze the following business expansion strategy for cost, risk and ROI:\n\n{option}")
	selectionPrompt = prompt.Chat(expertStrategistPrompt,
		"Given the following business expansion strategies and their analysis, select the BEST strategy and explain why:\n\n{analysis}")
)

// StrategyState is the state of the tree-of-thought strategy workflow.
type StrategyState struct {
	BusinessType     string            `json:"business_type" validate:"required"`
	ExpansionOptions []string          `json:"expansion_options,omitempty"`
	StrategyAnalysis map[string]string `json:"strategy_analysis,omitempty"`
	BestStrategy     string            `json:"best_strategy,omitempty"`
}

// NewStrategy builds the tree-of-thought pipeline: propose three
// expansion options, analyze each one, then pick the best.
func NewStrategy(client llm.Client) (*stategraph.CompiledGraph[StrategyState], error) {
	generate := func(ctx stategraph.Context, s StrategyState) (StrategyState, error) {
		out, err := optionsPrompt.Invoke(ctx, client, map[string]any{"business": s.BusinessType})
		if err != nil {
			return s, fmt.Errorf("generate options: %w", err)
		}

		var options []string
		for _, line := range strings.Split(out, "\n") {
			if strings.TrimSpace(line) != "" {
				options = append(options, strings.TrimSpace(line))
			}
		}
		s.ExpansionOptions = options[:min(3, len(options))]
		return s, nil
	}

	analyze := func(ctx stategraph.Context, s StrategyState) (StrategyState, error) {
		var mu sync.Mutex
		analysis := make(map[string]string, len(s.ExpansionOptions))

		g, gctx := errgroup.WithContext(ctx)
		for _, option := range s.ExpansionOptions {
			g.Go(func() error {
				out, err := analysisPrompt.Invoke(gctx, client, map[string]any{"option": option})
				if err != nil {
					return fmt.Errorf("analyze %q: %w", option, err)
				}
				mu.Lock()
				analysis[option] = out
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return s, err
		}

		s.StrategyAnalysis = analysis
		return s, nil
	}

	selectBest := func(ctx stategraph.Context, s StrategyState) (StrategyState, error) {
		var b strings.Builder
		for _, option := range slices.Sorted(maps.Keys(s.StrategyAnalysis)) {
			fmt.Fprintf(&b, "%s\n%s\n\n", option, s.StrategyAnalysis[option])
		}

		out, err := selectionPrompt.Invoke(ctx, client, map[string]any{"analysis": b.String()})
		if err != nil {
			return s, fmt.Errorf("select strategy: %w", err)
		}
		s.BestStrategy = out
		return s, nil
	}

	return stategraph.NewGraph[StrategyState]().
		SetName("strategy").
		AddNode("generate_expansion_options", generate).
		AddNode("analyze_strategy", analyze).
		AddNode("select_best_strategy", selectBest).
		SetEntry("generate_expansion_options").
		AddEdge("generate_expansion_options", "analyze_strategy").
		AddEdge("analyze_strategy", "select_best_strategy").
		AddEdge("select_best_strategy", stategraph.END).
		Compile()
}

func strategyWorkflow(d Deps) (Workflow, error) {
	g, err := NewStrategy(d.LLM)
	if err != nil {
		return nil, err
	}
	return newEntry("strategy", "Tree-of-thought: propose, analyze in parallel, select", g), nil
}
