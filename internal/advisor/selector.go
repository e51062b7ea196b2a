package advisor

import (
	"context"
	"encoding/json"
	"fmt"
)

const selectorSystemPrompt = `You are a credit card selection advisor. Given a spending profile and per-card evaluations, rank the cards by fit.

Respond with JSON only, in exactly this shape:
{
  "recommendations": [
    {"rank": 1, "card_name": "", "net_value": 0, "rationale": ""}
  ],
  "summary": ""
}

Rank every evaluated card. Rationales must reference the evaluation numbers, not generic advice.`

// CardSelector ranks evaluated cards and writes the final recommendation.
type CardSelector struct {
	client ChatClient
	model  string
}

// NewCardSelector creates the selector for the given chat model.
func NewCardSelector(client ChatClient, model string) *CardSelector {
	return &CardSelector{client: client, model: model}
}

// Select produces ranked recommendations from the evaluations.
func (s *CardSelector) Select(ctx context.Context, analysis *SpendingAnalysis, evaluation *BenefitEvaluation) (*Recommendations, Usage, error) {
	if evaluation == nil || len(evaluation.Evaluations) == 0 {
		return nil, Usage{}, fmt.Errorf("no evaluations to rank")
	}
	profile, err := json.Marshal(analysis)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("encode spending profile: %w", err)
	}
	evals, err := json.Marshal(evaluation)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("encode evaluations: %w", err)
	}

	userPrompt := fmt.Sprintf("Spending profile:\n%s\n\nCard evaluations:\n%s", profile, evals)
	response, usage, err := s.client.Complete(ctx, s.model, selectorSystemPrompt, userPrompt)
	if err != nil {
		return nil, usage, fmt.Errorf("card selection: %w", err)
	}

	var recs Recommendations
	if err := decodeResponse("card selector", response, &recs); err != nil {
		return nil, usage, err
	}
	return &recs, usage, nil
}
