// Package pricing joins estimated probabilities with market odds to compute
// expected value per combination.
package pricing

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/wager-engine/internal/metrics"
	"github.com/yourusername/wager-engine/internal/models"
	"github.com/yourusername/wager-engine/internal/probability"
)

// QuoteBook exposes the market odds for combinations of one wager structure.
// ok is false when the market has no quote.
type QuoteBook interface {
	Odds(structure models.WagerStructure, combo models.Combination) (odds float64, ok bool)
}

// StaticQuotes is a QuoteBook over fixed odds maps keyed by combination key.
type StaticQuotes map[models.WagerStructure]map[string]float64

// Odds implements QuoteBook.
func (q StaticQuotes) Odds(structure models.WagerStructure, combo models.Combination) (float64, bool) {
	byKey, ok := q[structure]
	if !ok {
		return 0, false
	}
	odds, ok := byKey[combo.Key()]
	return odds, ok
}

// Evaluator prices combinations against a quote book.
type Evaluator struct {
	estimator *probability.Estimator
	logger    *logrus.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(estimator *probability.Estimator, logger *logrus.Logger) *Evaluator {
	return &Evaluator{estimator: estimator, logger: logger}
}

// Evaluate prices each combination with its market quote. Combinations
// without a usable quote (missing, or decimal odds <= 1.0) are dropped and
// counted; a missing quote is not a failure of the whole pass.
func (e *Evaluator) Evaluate(book *probability.Book, structure models.WagerStructure, combos []models.Combination, quotes QuoteBook) []models.PricedCombination {
	priced := make([]models.PricedCombination, 0, len(combos))
	for _, combo := range combos {
		odds, ok := quotes.Odds(structure, combo)
		if !ok || odds <= 1.0 {
			metrics.CombinationsDroppedTotal.WithLabelValues(string(structure)).Inc()
			e.logger.WithFields(logrus.Fields{
				"wager_type":  structure,
				"combination": combo.Key(),
			}).Debug("No usable market quote, combination dropped")
			continue
		}
		prob := e.estimator.JointProbability(book, combo)
		priced = append(priced, models.PricedCombination{
			Structure:     structure,
			Combination:   combo,
			Probability:   prob,
			Odds:          odds,
			ExpectedValue: prob * odds,
		})
	}
	return priced
}

// EvaluateWithFallback prices combinations, substituting a conservative
// fallback quote when the market is silent. Used by the formation and box
// searches where unquoted legs are expected. Fallback-priced combinations are
// marked so callers can tell an estimated price from a market one.
func (e *Evaluator) EvaluateWithFallback(book *probability.Book, structure models.WagerStructure, combos []models.Combination, quotes QuoteBook, fallbackOdds float64) []models.PricedCombination {
	priced := make([]models.PricedCombination, 0, len(combos))
	for _, combo := range combos {
		odds, ok := quotes.Odds(structure, combo)
		fallback := false
		if !ok || odds <= 1.0 {
			if fallbackOdds <= 1.0 {
				metrics.CombinationsDroppedTotal.WithLabelValues(string(structure)).Inc()
				continue
			}
			odds = fallbackOdds
			fallback = true
		}
		prob := e.estimator.JointProbability(book, combo)
		priced = append(priced, models.PricedCombination{
			Structure:     structure,
			Combination:   combo,
			Probability:   prob,
			Odds:          odds,
			ExpectedValue: prob * odds,
			FallbackQuote: fallback,
		})
	}
	return priced
}
