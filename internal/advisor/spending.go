package advisor

import (
	"context"
	"fmt"
)

const spendingSystemPrompt = `You are a financial analyst. Break down the user's described spending into monthly amounts per category.

Respond with JSON only, in exactly this shape:
{
  "monthly_spending": {"dining": 0, "groceries": 0, "travel": 0, "gas": 0, "online_shopping": 0, "other": 0},
  "total_monthly": 0,
  "top_categories": ["category1", "category2"]
}

Use numbers in dollars. Include only categories the user actually mentions plus "other" for the remainder.`

// SpendingAnalyzer turns a free-form spending description into a structured
// monthly breakdown.
type SpendingAnalyzer struct {
	client ChatClient
	model  string
}

// NewSpendingAnalyzer creates the analyzer for the given chat model.
func NewSpendingAnalyzer(client ChatClient, model string) *SpendingAnalyzer {
	return &SpendingAnalyzer{client: client, model: model}
}

// Analyze asks the model for a structured breakdown of the description.
func (a *SpendingAnalyzer) Analyze(ctx context.Context, description string) (*SpendingAnalysis, Usage, error) {
	if description == "" {
		return nil, Usage{}, fmt.Errorf("spending description is empty")
	}
	response, usage, err := a.client.Complete(ctx, a.model, spendingSystemPrompt, description)
	if err != nil {
		return nil, usage, fmt.Errorf("spending analysis: %w", err)
	}
	var analysis SpendingAnalysis
	if err := decodeResponse("spending analyzer", response, &analysis); err != nil {
		return nil, usage, err
	}
	return &analysis, usage, nil
}
