package advisor

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Orchestrator runs the full advisor pipeline: analyze spending, evaluate
// every candidate card against it, then rank. Stages run sequentially since
// each consumes the previous stage's output; usage and cost accumulate
// across all calls.
type Orchestrator struct {
	analyzer  *SpendingAnalyzer
	evaluator *BenefitEvaluator
	selector  *CardSelector
	logger    *zap.Logger
}

// NewOrchestrator wires the three stages.
func NewOrchestrator(client ChatClient, retriever ContextProvider, chatModel, selectorModel string, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		analyzer:  NewSpendingAnalyzer(client, chatModel),
		evaluator: NewBenefitEvaluator(client, retriever, chatModel),
		selector:  NewCardSelector(client, selectorModel),
		logger:    logger,
	}
}

// Advise runs the pipeline for the given spending description and candidate
// cards. Partial usage is reported even when a stage fails.
func (o *Orchestrator) Advise(ctx context.Context, spendingDescription string, cards []string) (*Result, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("at least one candidate card is required")
	}
	result := &Result{}

	analysis, usage, err := o.analyzer.Analyze(ctx, spendingDescription)
	result.Usage.Add(usage)
	if err != nil {
		return result, err
	}
	result.Spending = analysis
	o.logger.Info("spending analyzed",
		zap.Float64("total_monthly", analysis.TotalMonthly),
		zap.Strings("top_categories", analysis.TopCategories))

	benefits, usage, err := o.evaluator.Evaluate(ctx, analysis, cards)
	result.Usage.Add(usage)
	if err != nil {
		return result, err
	}
	result.Benefits = benefits
	o.logger.Info("benefits evaluated", zap.Int("cards", len(benefits.Evaluations)))

	recs, usage, err := o.selector.Select(ctx, analysis, benefits)
	result.Usage.Add(usage)
	if err != nil {
		return result, err
	}
	result.Recommendations = recs
	result.CostUSD = result.Usage.Cost()
	o.logger.Info("advice complete",
		zap.Int("recommendations", len(recs.Picks)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Float64("cost_usd", result.CostUSD))
	return result, nil
}
