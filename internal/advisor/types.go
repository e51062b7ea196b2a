package advisor

// SpendingAnalysis is the structured output of the spending stage.
type SpendingAnalysis struct {
	MonthlySpending map[string]float64 `json:"monthly_spending"`
	TotalMonthly    float64            `json:"total_monthly"`
	TopCategories   []string           `json:"top_categories"`
}

// CardEvaluation scores one card against a spending profile.
type CardEvaluation struct {
	CardName         string   `json:"card_name"`
	AnnualFee        float64  `json:"annual_fee"`
	EstimatedRewards float64  `json:"estimated_annual_rewards"`
	NetValue         float64  `json:"net_value"`
	KeyBenefits      []string `json:"key_benefits"`
	Drawbacks        []string `json:"drawbacks"`
}

// BenefitEvaluation collects per-card evaluations.
type BenefitEvaluation struct {
	Evaluations []CardEvaluation `json:"evaluations"`
}

// CardRecommendation is one ranked pick with its rationale.
type CardRecommendation struct {
	Rank      int     `json:"rank"`
	CardName  string  `json:"card_name"`
	NetValue  float64 `json:"net_value"`
	Rationale string  `json:"rationale"`
}

// Recommendations is the final output of the selection stage.
type Recommendations struct {
	Picks   []CardRecommendation `json:"recommendations"`
	Summary string               `json:"summary"`
}

// Usage accumulates token counts across the pipeline's LLM calls.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another call's usage.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Cost estimates the dollar cost of the accumulated usage, pricing input and
// output per thousand tokens at the chat model's rate. Selector-model tokens
// are priced at the same rate, so the figure is a rough estimate for display,
// not a billing number.
func (u Usage) Cost() float64 {
	return (float64(u.PromptTokens)*0.0008 + float64(u.CompletionTokens)*0.004) / 1000.0
}

// Result is the full advisor pipeline output.
type Result struct {
	Spending        *SpendingAnalysis  `json:"spending_analysis"`
	Benefits        *BenefitEvaluation `json:"benefit_evaluation"`
	Recommendations *Recommendations   `json:"recommendations"`
	Usage           Usage              `json:"usage"`
	CostUSD         float64            `json:"cost_usd"`
}
