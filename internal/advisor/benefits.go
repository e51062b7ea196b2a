package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const benefitsSystemPrompt = `You are a credit card benefits expert. Using ONLY the provided card documentation and the user's spending profile, evaluate the card.

Respond with JSON only, in exactly this shape:
{
  "card_name": "",
  "annual_fee": 0,
  "estimated_annual_rewards": 0,
  "net_value": 0,
  "key_benefits": ["..."],
  "drawbacks": ["..."]
}

net_value is estimated_annual_rewards minus annual_fee. If the documentation does not state a fact, do not invent it.`

// benefitContextK is how many chunks of card documentation each evaluation
// retrieves per card.
const benefitContextK = 2

// ContextProvider supplies retrieved documentation for a query, scoped to
// one card. *retrieval.Retriever satisfies it.
type ContextProvider interface {
	ContextForQuery(ctx context.Context, query string, k int, cardFilter string) (string, error)
}

// BenefitEvaluator scores each candidate card against a spending profile,
// grounding every evaluation in retrieved card documentation.
type BenefitEvaluator struct {
	client    ChatClient
	retriever ContextProvider
	model     string
}

// NewBenefitEvaluator creates the evaluator.
func NewBenefitEvaluator(client ChatClient, retriever ContextProvider, model string) *BenefitEvaluator {
	return &BenefitEvaluator{client: client, retriever: retriever, model: model}
}

// Evaluate runs one evaluation per card. Cards are evaluated independently;
// a parse failure on any card fails the stage with that card's raw response.
func (e *BenefitEvaluator) Evaluate(ctx context.Context, analysis *SpendingAnalysis, cards []string) (*BenefitEvaluation, Usage, error) {
	if len(cards) == 0 {
		return nil, Usage{}, fmt.Errorf("no cards to evaluate")
	}
	profile, err := json.Marshal(analysis)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("encode spending profile: %w", err)
	}

	var total Usage
	result := &BenefitEvaluation{Evaluations: make([]CardEvaluation, 0, len(cards))}
	for _, card := range cards {
		query := fmt.Sprintf("%s annual fee rewards benefits %s", card, strings.Join(analysis.TopCategories, " "))
		docs, err := e.retriever.ContextForQuery(ctx, query, benefitContextK, card)
		if err != nil {
			return nil, total, fmt.Errorf("retrieve documentation for %q: %w", card, err)
		}

		userPrompt := fmt.Sprintf("Card: %s\n\nSpending profile:\n%s\n\nCard documentation:\n%s", card, profile, docs)
		response, usage, err := e.client.Complete(ctx, e.model, benefitsSystemPrompt, userPrompt)
		total.Add(usage)
		if err != nil {
			return nil, total, fmt.Errorf("evaluate %q: %w", card, err)
		}

		var eval CardEvaluation
		if err := decodeResponse("benefit evaluator", response, &eval); err != nil {
			return nil, total, err
		}
		if eval.CardName == "" {
			eval.CardName = card
		}
		result.Evaluations = append(result.Evaluations, eval)
	}
	return result, total, nil
}
