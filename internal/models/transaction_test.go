package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestResultsHasPositions(t *testing.T) {
	r := Results{1: "a", 2: "b"}
	assert.True(t, r.HasPositions(1))
	assert.True(t, r.HasPositions(2))
	assert.False(t, r.HasPositions(3))
	assert.False(t, Results{2: "b"}.HasPositions(1))
}

func TestIdentityKey(t *testing.T) {
	tx := &Transaction{
		ContestID:   "2026-08-29-heat-04",
		StrategyID:  "default",
		Combination: MustCombination("3", "1", "5"),
	}
	assert.Equal(t, "2026-08-29-heat-04|default|3-1-5", tx.IdentityKey())
}

func TestOutcome(t *testing.T) {
	exacta := &Transaction{Structure: StructureExacta, Combination: MustCombination("a", "b")}

	won, decided := exacta.Outcome(Results{1: "a"})
	assert.False(t, decided, "partial results must leave the wager pending")
	assert.False(t, won)

	won, decided = exacta.Outcome(Results{1: "a", 2: "b"})
	assert.True(t, decided)
	assert.True(t, won)

	won, decided = exacta.Outcome(Results{1: "b", 2: "a"})
	assert.True(t, decided)
	assert.False(t, won, "exacta is order-sensitive")
}

func TestOutcomeTrifectaNeedsThreePositions(t *testing.T) {
	tri := &Transaction{Structure: StructureTrifecta, Combination: MustCombination("a", "b", "c")}

	_, decided := tri.Outcome(Results{1: "a", 2: "b"})
	assert.False(t, decided)

	won, decided := tri.Outcome(Results{1: "a", 2: "b", 3: "c"})
	assert.True(t, decided)
	assert.True(t, won)
}

func TestPayoutRoundsToWholeUnits(t *testing.T) {
	tx := &Transaction{Amount: decimal.NewFromInt(1000), OddsAtPurchase: 2.5}
	assert.True(t, tx.Payout().Equal(decimal.NewFromInt(2500)))

	// Banker's rounding on the half-unit boundary.
	tx = &Transaction{Amount: decimal.NewFromInt(100), OddsAtPurchase: 1.125}
	assert.True(t, tx.Payout().Equal(decimal.NewFromInt(112)))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusWin.Terminal())
	assert.True(t, StatusLose.Terminal())
}

func TestWagerStructure(t *testing.T) {
	assert.True(t, StructureTrifecta.Valid())
	assert.False(t, WagerStructure("quinella").Valid())

	assert.Equal(t, 1, StructureSingle.RequiredPositions())
	assert.Equal(t, 2, StructureExacta.RequiredPositions())
	assert.Equal(t, 3, StructureTrifecta.RequiredPositions())
	assert.Equal(t, 3, StructureBox.RequiredPositions())
	assert.Equal(t, 3, StructureFormation.RequiredPositions())
}

func TestRiskBandsClassify(t *testing.T) {
	bands := RiskBands{Low: 0.3, Medium: 0.15}
	assert.Equal(t, RiskLow, bands.Classify(0.5))
	assert.Equal(t, RiskMedium, bands.Classify(0.2))
	assert.Equal(t, RiskHigh, bands.Classify(0.15))
	assert.Equal(t, RiskHigh, bands.Classify(0.05))
}
