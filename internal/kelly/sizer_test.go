package kelly

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestFractionNoEdge tests that a non-positive edge sizes to zero.
func TestFractionNoEdge(t *testing.T) {
	s := NewSizer()

	// p·odds = 0.9 <= 1: no edge
	assert.Zero(t, s.Fraction(0.5, 1.8))
	// Break-even exactly
	assert.Zero(t, s.Fraction(0.5, 2.0))
	assert.Zero(t, s.Fraction(0, 5.0))
	assert.Zero(t, s.Fraction(0.5, 1.0))
	assert.Zero(t, s.Fraction(0.5, 0.5))
}

// TestFractionPositiveEdge tests the fractional Kelly formula.
func TestFractionPositiveEdge(t *testing.T) {
	s := NewSizer()

	// b = 1.5, f* = (1.5*0.5 - 0.5)/1.5 = 1/6; halved = 1/12
	f := s.Fraction(0.5, 2.5)
	assert.InDelta(t, (1.5*0.5-0.5)/1.5*0.5, f, 1e-12)
	assert.Greater(t, f, 0.0)
}

// TestFractionMonotonicInProbability tests that more probability never means a
// smaller fraction at fixed odds.
func TestFractionMonotonicInProbability(t *testing.T) {
	s := NewSizer()

	prev := 0.0
	for p := 0.05; p < 1.0; p += 0.05 {
		f := s.Fraction(p, 3.0)
		assert.GreaterOrEqual(t, f, prev, "p=%f", p)
		prev = f
	}
}

// TestFractionScaledDamping tests the extra kelly scale multiplier.
func TestFractionScaledDamping(t *testing.T) {
	s := NewSizer()

	full := s.FractionScaled(0.5, 2.5, 1.0)
	damped := s.FractionScaled(0.5, 2.5, 0.5)
	assert.InDelta(t, full/2, damped, 1e-12)
}

// TestAmountRoundsDownToUnit tests unit flooring of the stake.
func TestAmountRoundsDownToUnit(t *testing.T) {
	s := NewSizer()
	bankroll := decimal.NewFromInt(100000)

	// 100000 * 0.0567 = 5670 → 5600
	amount := s.Amount(bankroll, 0.0567)
	assert.True(t, amount.Equal(decimal.NewFromInt(5600)), "got %s", amount)
}

// TestAmountCappedByMaxFraction tests the per-bet cap.
func TestAmountCappedByMaxFraction(t *testing.T) {
	s := NewSizer()
	bankroll := decimal.NewFromInt(100000)

	// Fraction 0.5 clipped to MaxBetFraction 0.1 → 10000
	amount := s.Amount(bankroll, 0.5)
	assert.True(t, amount.Equal(decimal.NewFromInt(10000)), "got %s", amount)
}

// TestAmountBelowMinimumIsZero tests the "no bet" floor.
func TestAmountBelowMinimumIsZero(t *testing.T) {
	s := NewSizer()
	bankroll := decimal.NewFromInt(1000)

	// 1000 * 0.05 = 50, below one unit of 100
	amount := s.Amount(bankroll, 0.05)
	assert.True(t, amount.IsZero())
}

// TestAmountStricterCap tests AmountCapped with a damped cap.
func TestAmountStricterCap(t *testing.T) {
	s := NewSizer()
	bankroll := decimal.NewFromInt(100000)

	amount := s.AmountCapped(bankroll, 0.5, 0.03)
	assert.True(t, amount.Equal(decimal.NewFromInt(3000)), "got %s", amount)
}

// TestAmountZeroInputs tests degenerate inputs.
func TestAmountZeroInputs(t *testing.T) {
	s := NewSizer()

	assert.True(t, s.Amount(decimal.NewFromInt(100000), 0).IsZero())
	assert.True(t, s.Amount(decimal.Zero, 0.1).IsZero())
	assert.True(t, s.Amount(decimal.NewFromInt(-50), 0.1).IsZero())
}
