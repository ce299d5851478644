package workflows

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

const (
	generatorPrompt = "You are an expert Go developer."
	reviewerPrompt  = "You are a senior software engineer reviewing code."
	refinerPrompt   = "You are an AI code refiner."
)

var (
	generatePrompt = prompt.Chat(generatorPrompt,
		"Write a clean, efficient, and well-commented solution for the following problem:\n\n{problem}")
	reviewPrompt = prompt.Chat(reviewerPrompt,
		"Review the following code for correctness, readability, efficiency, and best practices. "+
			"The last line should contain just the final score as final_score:score\n\n{code}")
	refinePrompt = prompt.Chat(refinerPrompt,
		"Here is the code:\n\n{code}\n\nAnd here is the review feedback:\n\n{feedback}"+
			"\n\nApply the suggested improvements and rewrite the code.")
)

// Reflection loop limits: stop once the review score reaches
// TargetScore or after MaxIterations drafts.
const (
	TargetScore   = 9
	MaxIterations = 3

	// DefaultScore is used when a review carries no parsable score.
	DefaultScore = 5
)

// CodeState is the state of the reflection workflow.
type CodeState struct {
	ProblemStatement string  `json:"problem_statement" validate:"required"`
	GeneratedCode    string  `json:"generated_code,omitempty"`
	ReviewFeedback   string  `json:"review_feedback,omitempty"`
	RefinedCode      string  `json:"refined_code,omitempty"`
	Iteration        int     `json:"iteration"`
	ReviewScore      float64 `json:"review_score"`
}

// ParseScore reads the score from the last line of a review, written as
// "final_score: 8.5". It returns DefaultScore when the line does not parse.
func ParseScore(review string) float64 {
	lines := strings.Split(strings.TrimSpace(review), "\n")
	last := lines[len(lines)-1]
	field := last[strings.LastIndex(last, ":")+1:]
	score, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return DefaultScore
	}
	return score
}

// NewReflection builds the generate, review and improve loop. Command
// nodes pick the next step; improve_code ends the run when the code is
// good enough or the iteration budget is spent.
func NewReflection(client llm.Client) (*stategraph.CompiledGraph[CodeState], error) {
	generate := func(ctx stategraph.Context, s CodeState) (stategraph.Command[CodeState], error) {
		code, err := generatePrompt.Invoke(ctx, client, map[string]any{"problem": s.ProblemStatement})
		if err != nil {
			return stategraph.Command[CodeState]{}, fmt.Errorf("generate code: %w", err)
		}
		s.GeneratedCode = code
		s.Iteration = 1
		s.ReviewScore = 0
		return stategraph.Command[CodeState]{Update: s, Goto: "review_code"}, nil
	}

	review := func(ctx stategraph.Context, s CodeState) (stategraph.Command[CodeState], error) {
		feedback, err := reviewPrompt.Invoke(ctx, client, map[string]any{"code": s.GeneratedCode})
		if err != nil {
			return stategraph.Command[CodeState]{}, fmt.Errorf("review code: %w", err)
		}
		s.ReviewFeedback = feedback
		s.ReviewScore = ParseScore(feedback)
		return stategraph.Command[CodeState]{Update: s, Goto: "improve_code"}, nil
	}

	improve := func(ctx stategraph.Context, s CodeState) (stategraph.Command[CodeState], error) {
		ctx.Logger().Info("improving code", "score", s.ReviewScore, "iteration", s.Iteration)

		if s.ReviewScore >= TargetScore || s.Iteration >= MaxIterations {
			s.RefinedCode = s.GeneratedCode
			return stategraph.Command[CodeState]{Update: s, Goto: stategraph.END}, nil
		}

		code, err := refinePrompt.Invoke(ctx, client, map[string]any{
			"code":     s.GeneratedCode,
			"feedback": s.ReviewFeedback,
		})
		if err != nil {
			return stategraph.Command[CodeState]{}, fmt.Errorf("improve code: %w", err)
		}
		s.GeneratedCode = code
		s.Iteration++
		return stategraph.Command[CodeState]{Update: s, Goto: "review_code"}, nil
	}

	return stategraph.NewGraph[CodeState]().
		SetName("reflection").
		AddCommandNode("generate_code", generate).
		AddCommandNode("review_code", review).
		AddCommandNode("improve_code", improve).
		SetEntry("generate_code").
		Compile()
}

func reflectionWorkflow(d Deps) (Workflow, error) {
	g, err := NewReflection(d.LLM)
	if err != nil {
		return nil, err
	}
	return newEntry("reflection", "Generate, review and improve loop driven by a review score", g), nil
}
