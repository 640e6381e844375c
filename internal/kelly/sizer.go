// Package kelly converts a probabilistic edge into a bankroll fraction and a
// concrete stake using the Kelly criterion.
package kelly

import (
	"github.com/shopspring/decimal"
)

// Defaults for stake shaping. The unit is the minimum purchasable wager
// increment; stakes always round down to a whole number of units.
var (
	DefaultFractionalKelly = 0.5
	DefaultMaxBetFraction  = 0.1
	DefaultUnit            = decimal.NewFromInt(100)
)

// Sizer applies fractional Kelly sizing with a per-bet cap and unit rounding.
type Sizer struct {
	FractionalKelly float64
	MaxBetFraction  float64
	Unit            decimal.Decimal
	MinBet          decimal.Decimal
}

// NewSizer creates a sizer with the default risk dials.
func NewSizer() *Sizer {
	return &Sizer{
		FractionalKelly: DefaultFractionalKelly,
		MaxBetFraction:  DefaultMaxBetFraction,
		Unit:            DefaultUnit,
		MinBet:          DefaultUnit,
	}
}

// Fraction returns the fraction of bankroll to wager for win probability p at
// decimal odds. f* = (b·p - (1-p)) / b with b = odds-1, scaled by the
// configured fractional Kelly. A non-positive edge, odds <= 1.0 or p <= 0
// short-circuit to 0; the result is never negative.
func (s *Sizer) Fraction(p, odds float64) float64 {
	return s.FractionScaled(p, odds, 1.0)
}

// FractionScaled is Fraction with an extra multiplier on the fractional Kelly
// dial, used to damp sizing for higher-variance structures.
func (s *Sizer) FractionScaled(p, odds, kellyScale float64) float64 {
	if odds <= 1.0 || p <= 0 || p > 1 {
		return 0
	}
	b := odds - 1.0
	q := 1.0 - p
	fStar := (b*p - q) / b
	if fStar <= 0 {
		return 0
	}
	fractional := s.FractionalKelly * kellyScale
	if fractional <= 0 || fractional > 1 {
		fractional = DefaultFractionalKelly
	}
	return fStar * fractional
}

// Amount turns a sizing fraction into a stake: bankroll × fraction, rounded
// down to the wager unit and clipped to bankroll × maxFraction. Amounts below
// the minimum bet mean "no bet" and return zero.
func (s *Sizer) Amount(bankroll decimal.Decimal, fraction float64) decimal.Decimal {
	return s.AmountCapped(bankroll, fraction, s.MaxBetFraction)
}

// AmountCapped is Amount with an explicit per-bet cap fraction, allowing
// stricter caps for exacta and trifecta stakes.
func (s *Sizer) AmountCapped(bankroll decimal.Decimal, fraction, maxFraction float64) decimal.Decimal {
	if fraction <= 0 || bankroll.Sign() <= 0 {
		return decimal.Zero
	}
	if maxFraction > 0 && fraction > maxFraction {
		fraction = maxFraction
	}
	amount := bankroll.Mul(decimal.NewFromFloat(fraction))
	amount = s.roundToUnit(amount)
	if amount.LessThan(s.minBet()) {
		return decimal.Zero
	}
	if amount.GreaterThan(bankroll) {
		amount = s.roundToUnit(bankroll)
	}
	return amount
}

func (s *Sizer) roundToUnit(amount decimal.Decimal) decimal.Decimal {
	unit := s.Unit
	if unit.Sign() <= 0 {
		unit = DefaultUnit
	}
	return amount.Div(unit).Floor().Mul(unit)
}

func (s *Sizer) minBet() decimal.Decimal {
	if s.MinBet.Sign() <= 0 {
		return s.Unit
	}
	return s.MinBet
}
