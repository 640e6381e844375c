package probability

import (
	"math"

	"github.com/yourusername/wager-engine/internal/models"
)

// Default conditional caps. Empirically chosen dials, not derived constants;
// override via configuration.
const (
	DefaultPosition2Cap = 0.8
	DefaultPosition3Cap = 0.6
)

// Estimator approximates the probability of an exact ordered finish via a
// sequential conditional decay over the remaining win-probability mass. It is
// deliberately conservative, not an exact order-statistic computation.
type Estimator struct {
	Position2Cap float64
	Position3Cap float64
}

// NewEstimator creates an estimator with the default conditional caps.
func NewEstimator() *Estimator {
	return &Estimator{
		Position2Cap: DefaultPosition2Cap,
		Position3Cap: DefaultPosition3Cap,
	}
}

// JointProbability estimates the probability that the combination's entrants
// fill the first Len() places in exactly that order.
//
// Position 1 uses the raw win probability. Each later position divides the
// entrant's win probability by the mass left after removing the earlier
// entrants' shares, capped per position. When the remaining mass is gone
// numerically the raw win probability is used instead of dividing by zero.
// The running joint is additionally clamped to the current entrant's raw win
// probability, so an ordered estimate never exceeds any of its parts.
func (e *Estimator) JointProbability(book *Book, combo models.Combination) float64 {
	joint := 1.0
	remaining := 1.0

	for i, id := range combo.IDs() {
		p := clamp01(book.WinProbability(id))

		var conditional float64
		if remaining > 1e-9 {
			conditional = math.Min(p/remaining, e.capFor(i))
		} else {
			conditional = p
		}

		joint *= conditional
		if joint > p {
			joint = p
		}
		remaining -= p
	}

	return clamp01(joint)
}

func (e *Estimator) capFor(position int) float64 {
	switch position {
	case 0:
		return 1.0
	case 1:
		return e.Position2Cap
	default:
		return e.Position3Cap
	}
}

func clamp01(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
