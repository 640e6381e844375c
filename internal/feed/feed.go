// Package feed provides clients for the external services the engine depends
// on: the probability predictor, the market odds source and the contest
// results source.
package feed

import (
	"context"
	"errors"

	"github.com/yourusername/wager-engine/internal/models"
	"github.com/yourusername/wager-engine/internal/pricing"
)

// ErrResultsNotFinal indicates the results source has no final finishing
// order for the contest yet.
var ErrResultsNotFinal = errors.New("feed: results not final")

// ProbabilitySource supplies win probability estimates for a contest's
// entrants.
type ProbabilitySource interface {
	Probabilities(ctx context.Context, contestID string) ([]models.Entrant, error)
}

// OddsSource supplies current market quotes for a contest.
type OddsSource interface {
	Quotes(ctx context.Context, contestID string) (pricing.QuoteBook, error)
}

// ResultsSource supplies the finishing order for a completed contest. The
// returned map may be partial; ErrResultsNotFinal means nothing usable is
// available yet.
type ResultsSource interface {
	Results(ctx context.Context, contestID string) (models.Results, error)
}
