package workflows

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
)

// NewOfflineModel returns a deterministic model that serves every
// workflow in the catalog without network access. It recognizes each
// workflow by its prompts and answers with canned, input-aware text.
func NewOfflineModel() *llm.RuleClient {
	return llm.NewRuleClient().
		// restaurant
		On("restaurant-answer", all(llm.SystemContains(restaurantPrompt), llm.AfterTool()), restaurantAnswer).
		On("restaurant-book", all(llm.SystemContains(restaurantPrompt), llm.UserContains("book")), bookLastRecommendation).
		On("restaurant-recommend", all(llm.SystemContains(restaurantPrompt), llm.UserContains("recommend", "restaurant")), recommendFromRequest).
		On("restaurant-chat", llm.SystemContains(restaurantPrompt),
			llm.Reply("I can recommend restaurants in Munich, New York or Paris and book a table for you.")).
		// reflection
		On("generate-code", llm.SystemContains(generatorPrompt), llm.Replyf(generateCode)).
		On("review-code", llm.SystemContains(reviewerPrompt), llm.Replyf(reviewCode)).
		On("refine-code", llm.SystemContains(refinerPrompt), llm.Replyf(refineCode)).
		// strategy
		On("select-strategy", llm.SystemContains(expertStrategistPrompt), llm.Replyf(selectStrategy)).
		On("expansion-options", llm.SystemContains(strategistPrompt), llm.Replyf(expansionOptions)).
		On("analyze-strategy", llm.SystemContains(analystPrompt), llm.Replyf(analyzeStrategy)).
		// market
		On("market-summary", llm.UserContains("strategic market entry summary"), llm.Replyf(marketSummary)).
		On("market-trends", llm.UserContains("latest market trends"), llm.Replyf(func(req llm.CompletionRequest) string {
			return "Demand for connected " + quoted(req, "trends for ", "?") + " products is growing, driven by health tracking and subscriptions."
		})).
		On("market-competitors", llm.UserContains("top competitors"), llm.Replyf(func(req llm.CompletionRequest) string {
			return "The " + quoted(req, "in the ", " market") + " market is led by three established brands and a wave of startups competing on price."
		})).
		On("market-sentiment", llm.UserContains("customer sentiment"), llm.Replyf(func(req llm.CompletionRequest) string {
			return "Customers like " + quoted(req, "products in the ", " category") + " products but complain about battery life and app quality."
		})).
		// claims
		On("validate-claim", llm.UserContains(claimValidationPrompt), llm.Replyf(validateClaim)).
		// news
		On("news-summary", llm.SystemContains("news analyst"), llm.Replyf(summarizeNews))
}

// all matches when every matcher matches.
func all(matchers ...llm.Matcher) llm.Matcher {
	return func(req llm.CompletionRequest) bool {
		for _, m := range matchers {
			if !m(req) {
				return false
			}
		}
		return true
	}
}

// quoted returns the text of the last user message between prefix and suffix.
func quoted(req llm.CompletionRequest, prefix, suffix string) string {
	content := req.LastUserContent()
	_, after, ok := strings.Cut(content, prefix)
	if !ok {
		return content
	}
	before, _, _ := strings.Cut(after, suffix)
	return before
}

func restaurantAnswer(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	last, _ := req.LastMessage()
	if last.Name == "book_table" {
		return &llm.CompletionResponse{Content: last.Content}, nil
	}

	var names []string
	if err := json.Unmarshal([]byte(last.Content), &names); err != nil || len(names) == 0 {
		return &llm.CompletionResponse{Content: last.Content}, nil
	}
	return &llm.CompletionResponse{Content: names[0]}, nil
}

func recommendFromRequest(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	content := strings.ToLower(req.LastUserContent())
	location := "unknown"
	for city := range recommendations {
		if strings.Contains(content, city) {
			location = city
			break
		}
	}
	return llm.CallTool("get_restaurant_recommendations", RecommendArgs{Location: location})(req)
}

var timePattern = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*(am|pm)\b`)

func bookLastRecommendation(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	restaurant := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		m := req.Messages[i]
		if m.Role == message.RoleAssistant && !m.HasToolCalls() && m.Content != "" {
			restaurant = m.Content
			break
		}
	}
	if restaurant == "" {
		return &llm.CompletionResponse{Content: "Which restaurant should I book?"}, nil
	}

	at := "7 PM"
	if t := timePattern.FindString(req.LastUserContent()); t != "" {
		at = strings.ToUpper(t)
	}
	return llm.CallTool("book_table", BookArgs{Restaurant: restaurant, Time: at})(req)
}

func generateCode(req llm.CompletionRequest) string {
	_, problem, _ := strings.Cut(req.LastUserContent(), "problem:\n\n")
	return "// Solution for: " + firstLine(problem) + "\n" +
		"func factorial(n int) int {\n\tif n <= 1 {\n\t\treturn 1\n\t}\n\treturn n * factorial(n-1)\n}"
}

// reviewCode scores a draft higher for each refinement pass it has had.
func reviewCode(req llm.CompletionRequest) string {
	passes := strings.Count(req.LastUserContent(), "// refined:")
	score := 7.0 + 1.5*float64(passes)
	return fmt.Sprintf("Correctness: fine.\nReadability: add doc comments.\nEfficiency: prefer iteration over recursion.\nfinal_score: %.1f", score)
}

func refineCode(req llm.CompletionRequest) string {
	code := quoted(req, "Here is the code:\n\n", "\n\nAnd here is the review feedback")
	return "// refined: iterative, documented\n" + code
}

func expansionOptions(req llm.CompletionRequest) string {
	business := quoted(req, "specializes in ", ".")
	return strings.Join([]string{
		"Enter the Southeast Asian market with a localized " + business + " offering.",
		"Launch a premium product line for enterprise customers.",
		"Partner with an established brand for co-marketing and distribution.",
	}, "\n")
}

func analyzeStrategy(req llm.CompletionRequest) string {
	option := strings.ToLower(req.LastUserContent())
	switch {
	case strings.Contains(option, "partner"):
		return "Cost: low. Risk: low. ROI: moderate and fast."
	case strings.Contains(option, "market"):
		return "Cost: high. Risk: high. ROI: high but slow."
	default:
		return "Cost: medium. Risk: medium. ROI: moderate."
	}
}

func selectStrategy(req llm.CompletionRequest) string {
	for _, line := range strings.Split(req.LastUserContent(), "\n") {
		if strings.Contains(strings.ToLower(line), "partner") {
			return "Best strategy: " + strings.TrimSpace(line) + " It has the lowest risk and the fastest return."
		}
	}
	return "Best strategy: the first option, as it balances cost and return."
}

func marketSummary(req llm.CompletionRequest) string {
	product := quoted(req, "following product: ", "\n")
	return "Enter the " + product + " market with a mid-priced product that fixes battery life and app quality, " +
		"sold through subscriptions to match current trends."
}

func validateClaim(req llm.CompletionRequest) string {
	content := req.LastUserContent()
	details := strings.ToLower(labeled(content, "Claim Details:"))
	code := labeled(content, "Treatment Code:")

	switch {
	case strings.Contains(labeled(content, "Patient Data:"), "Not Found"),
		strings.Contains(labeled(content, "Insurance Coverage:"), "Not Found"):
		return "Need more info: the patient has no active coverage record."
	case strings.Contains(details, "cosmetic") || code == "TREAT-003":
		return "Reject: cosmetic procedures are excluded from coverage."
	case code == "TREAT-002" && !strings.Contains(details, "authorization"):
		return "Need more info: imaging claims require a pre-authorization number."
	default:
		return "Approve: the treatment is covered under the patient's active plan."
	}
}

func summarizeNews(req llm.CompletionRequest) string {
	_, articles, _ := strings.Cut(req.LastUserContent(), "News Articles:\n")
	if strings.TrimSpace(articles) == "" {
		return "The retrieved articles do not contain an answer to this question."
	}

	var points []string
	for _, article := range strings.Split(articles, "\n---\n") {
		points = append(points, "- "+firstSentence(article))
	}
	return "Summary:\n" + strings.Join(points, "\n")
}

// labeled returns the rest of the first line starting with label.
func labeled(content, label string) string {
	for _, line := range strings.Split(content, "\n") {
		if rest, ok := strings.CutPrefix(line, label); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
