package models

import "github.com/shopspring/decimal"

// RiskLevel classifies a recommendation by win probability band.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskBands holds the probability thresholds for risk classification.
// Probabilities above Low are low risk, above Medium are medium, else high.
type RiskBands struct {
	Low    float64 `mapstructure:"low"`
	Medium float64 `mapstructure:"medium"`
}

// Classify maps a win probability onto a risk level.
func (b RiskBands) Classify(probability float64) RiskLevel {
	switch {
	case probability > b.Low:
		return RiskLow
	case probability > b.Medium:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// PricedCombination joins a combination with its estimated probability, market
// odds and expected value. Ephemeral: recomputed per optimization call, never
// persisted.
type PricedCombination struct {
	Structure     WagerStructure `json:"wager_type"`
	Combination   Combination    `json:"combination"`
	Probability   float64        `json:"probability"`
	Odds          float64        `json:"odds"`
	ExpectedValue float64        `json:"expected_value"`
	FallbackQuote bool           `json:"fallback_quote,omitempty"`
}

// Recommendation is a priced combination plus a sizing decision. Output only.
type Recommendation struct {
	PricedCombination
	KellyFraction     float64         `json:"kelly_fraction"`
	RecommendedAmount decimal.Decimal `json:"recommended_amount"`
	RiskLevel         RiskLevel       `json:"risk_level"`
}
