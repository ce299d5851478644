package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/message"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prebuilt"
)

const restaurantPrompt = "You are a concierge who recommends restaurants and books tables."

var recommendations = map[string][]string{
	"munich":   {"Hofbräuhaus", "Augustiner-Keller", "Tantris"},
	"new york": {"Le Bernardin", "Eleven Madison Park", "Joe's Pizza"},
	"paris":    {"Le Meurice", "L'Ambroisie", "Bistrot Paul Bert"},
}

// RecommendArgs are the arguments of get_restaurant_recommendations.
type RecommendArgs struct {
	Location string `json:"location" jsonschema:"description=City to search"`
}

// BookArgs are the arguments of book_table.
type BookArgs struct {
	Restaurant string `json:"restaurant" jsonschema:"description=Restaurant name"`
	Time       string `json:"time" jsonschema:"description=Reservation time"`
}

// RestaurantTools returns the recommendation and booking tools.
func RestaurantTools() []prebuilt.Tool {
	recommend := prebuilt.NewTool("get_restaurant_recommendations",
		"Provides top restaurant recommendations for a given location.",
		func(_ context.Context, args RecommendArgs) (any, error) {
			if recs, ok := recommendations[strings.ToLower(args.Location)]; ok {
				return recs, nil
			}
			return []string{"No recommendations available."}, nil
		})

	book := prebuilt.NewTool("book_table",
		"Books a table at a specified restaurant and time.",
		func(_ context.Context, args BookArgs) (any, error) {
			return fmt.Sprintf("Table booked at %s for %s.", args.Restaurant, args.Time), nil
		})

	return []prebuilt.Tool{recommend, book}
}

// NewRestaurant builds the restaurant concierge: a tool-calling agent
// meant to run on a checkpointed thread so that a booking request can
// refer to an earlier recommendation.
func NewRestaurant(client llm.Client) (*stategraph.CompiledGraph[message.State], error) {
	return prebuilt.NewAgent(client, RestaurantTools(),
		prebuilt.WithName("restaurant"),
		prebuilt.WithSystemPrompt(restaurantPrompt))
}

func restaurantWorkflow(d Deps) (Workflow, error) {
	g, err := NewRestaurant(d.LLM)
	if err != nil {
		return nil, err
	}
	return newEntry("restaurant", "Tool-calling agent with memory across turns on one thread", g), nil
}
