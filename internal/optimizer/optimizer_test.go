package optimizer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/wager-engine/internal/combo"
	"github.com/yourusername/wager-engine/internal/kelly"
	"github.com/yourusername/wager-engine/internal/models"
	"github.com/yourusername/wager-engine/internal/pricing"
	"github.com/yourusername/wager-engine/internal/probability"
)

func testOptimizer() *Optimizer {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(
		DefaultConfig(),
		combo.NewGenerator(),
		pricing.NewEvaluator(probability.NewEstimator(), log),
		kelly.NewSizer(),
		log,
	)
}

func singleRequest(entrants []models.Entrant) Request {
	return Request{
		ContestID:  "c1",
		Entrants:   entrants,
		Budget:     decimal.NewFromInt(100000),
		Structures: []models.WagerStructure{models.StructureSingle},
	}
}

// TestOptimizeNoEdgeIsEmpty tests that EV at or below the threshold yields an
// empty recommendation list, not an error.
func TestOptimizeNoEdgeIsEmpty(t *testing.T) {
	o := testOptimizer()
	req := singleRequest([]models.Entrant{
		{ID: "a", WinProbability: 0.5},
		{ID: "b", WinProbability: 0.5},
	})
	quotes := pricing.StaticQuotes{
		models.StructureSingle: {"a": 1.8, "b": 1.8}, // EV 0.9
	}

	result, err := o.Optimize(context.Background(), req, quotes)
	require.NoError(t, err)
	assert.Empty(t, result.Recommendations)
	assert.True(t, result.TotalStake.IsZero())
}

// TestOptimizeRecommendsPositiveEdge tests the happy path of one clear edge.
func TestOptimizeRecommendsPositiveEdge(t *testing.T) {
	o := testOptimizer()
	req := singleRequest([]models.Entrant{
		{ID: "a", WinProbability: 0.5},
		{ID: "b", WinProbability: 0.5},
	})
	quotes := pricing.StaticQuotes{
		models.StructureSingle: {"a": 2.5, "b": 1.5}, // a: EV 1.25, b: EV 0.75
	}

	result, err := o.Optimize(context.Background(), req, quotes)
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)

	rec := result.Recommendations[0]
	assert.Equal(t, "a", rec.Combination.Key())
	assert.InDelta(t, 1.25, rec.ExpectedValue, 1e-9)
	assert.Greater(t, rec.KellyFraction, 0.0)
	assert.True(t, rec.RecommendedAmount.Sign() > 0)
	assert.Equal(t, models.RiskLow, rec.RiskLevel)
	assert.True(t, result.TotalStake.Equal(rec.RecommendedAmount))
}

// TestOptimizeRanksByEV tests EV-descending ordering and top-N truncation.
func TestOptimizeRanksByEV(t *testing.T) {
	o := testOptimizer()
	req := singleRequest([]models.Entrant{
		{ID: "a", WinProbability: 0.4},
		{ID: "b", WinProbability: 0.35},
		{ID: "c", WinProbability: 0.25},
	})
	quotes := pricing.StaticQuotes{
		models.StructureSingle: {"a": 3.0, "b": 4.0, "c": 5.0},
		// EVs: a 1.2, b 1.4, c 1.25 — top 2 singles keep b then c
	}

	result, err := o.Optimize(context.Background(), req, quotes)
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "b", result.Recommendations[0].Combination.Key())
	assert.Equal(t, "c", result.Recommendations[1].Combination.Key())
}

// TestOptimizeTrifectaUsesStricterDials tests the higher trifecta threshold.
func TestOptimizeTrifectaUsesStricterDials(t *testing.T) {
	o := testOptimizer()
	entrants := []models.Entrant{
		{ID: "a", WinProbability: 0.5},
		{ID: "b", WinProbability: 0.3},
		{ID: "c", WinProbability: 0.2},
	}
	req := Request{
		ContestID:  "c1",
		Entrants:   entrants,
		Budget:     decimal.NewFromInt(100000),
		Structures: []models.WagerStructure{models.StructureTrifecta},
	}

	// a-b-c joint: 0.5 * (0.3/0.5) * (0.2/0.2 capped 0.6) = 0.18
	// Odds 6.0 gives EV 1.08: above the single threshold but not 1.2.
	quotes := pricing.StaticQuotes{
		models.StructureTrifecta: {"a-b-c": 6.0},
	}
	result, err := o.Optimize(context.Background(), req, quotes)
	require.NoError(t, err)
	assert.Empty(t, result.Recommendations)

	// Odds 8.0 gives EV 1.44 and the trifecta clears.
	quotes[models.StructureTrifecta]["a-b-c"] = 8.0
	result, err = o.Optimize(context.Background(), req, quotes)
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, models.StructureTrifecta, result.Recommendations[0].Structure)
}

// TestOptimizeValidatesInput tests input rejection cases.
func TestOptimizeValidatesInput(t *testing.T) {
	o := testOptimizer()
	valid := []models.Entrant{{ID: "a", WinProbability: 0.5}}

	cases := []struct {
		name string
		req  Request
	}{
		{"missing contest", Request{Entrants: valid, Structures: []models.WagerStructure{models.StructureSingle}}},
		{"no entrants", Request{ContestID: "c1", Structures: []models.WagerStructure{models.StructureSingle}}},
		{"duplicate entrant", Request{ContestID: "c1", Entrants: []models.Entrant{{ID: "a", WinProbability: 0.4}, {ID: "a", WinProbability: 0.2}}, Structures: []models.WagerStructure{models.StructureSingle}}},
		{"probability out of range", Request{ContestID: "c1", Entrants: []models.Entrant{{ID: "a", WinProbability: 1.5}}, Structures: []models.WagerStructure{models.StructureSingle}}},
		{"negative budget", Request{ContestID: "c1", Entrants: valid, Budget: decimal.NewFromInt(-1), Structures: []models.WagerStructure{models.StructureSingle}}},
		{"no structures", Request{ContestID: "c1", Entrants: valid}},
		{"unknown structure", Request{ContestID: "c1", Entrants: valid, Structures: []models.WagerStructure{"superfecta"}}},
		{"risk dial out of range", Request{ContestID: "c1", Entrants: valid, Structures: []models.WagerStructure{models.StructureSingle}, RiskDial: 1.5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := o.Optimize(context.Background(), tc.req, pricing.StaticQuotes{})
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

// TestOptimizeRiskDialOverridesKelly tests that the dial shrinks sizing.
func TestOptimizeRiskDialOverridesKelly(t *testing.T) {
	o := testOptimizer()
	entrants := []models.Entrant{
		{ID: "a", WinProbability: 0.5},
		{ID: "b", WinProbability: 0.5},
	}
	quotes := pricing.StaticQuotes{
		models.StructureSingle: {"a": 2.5},
	}

	base, err := o.Optimize(context.Background(), singleRequest(entrants), quotes)
	require.NoError(t, err)
	require.Len(t, base.Recommendations, 1)

	damped := singleRequest(entrants)
	damped.RiskDial = 0.1
	dampedResult, err := o.Optimize(context.Background(), damped, quotes)
	require.NoError(t, err)
	require.Len(t, dampedResult.Recommendations, 1)

	assert.True(t, dampedResult.Recommendations[0].KellyFraction < base.Recommendations[0].KellyFraction)
}

// TestOptimizeBoxSearch tests the box plan over ranked subsets.
func TestOptimizeBoxSearch(t *testing.T) {
	o := testOptimizer()
	req := Request{
		ContestID: "c1",
		Entrants: []models.Entrant{
			{ID: "a", WinProbability: 0.4},
			{ID: "b", WinProbability: 0.3},
			{ID: "c", WinProbability: 0.3},
		},
		Budget:     decimal.NewFromInt(100000),
		Structures: []models.WagerStructure{models.StructureBox},
	}
	quotes := pricing.StaticQuotes{
		models.StructureTrifecta: {"a-b-c": 20.0}, // other legs priced at fallback
	}

	result, err := o.Optimize(context.Background(), req, quotes)
	require.NoError(t, err)
	require.NotNil(t, result.Box)
	assert.Equal(t, 6, result.Box.Combinations)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, result.Box.IDs)
	assert.True(t, result.Box.TotalCost.Equal(decimal.NewFromInt(600)))
	assert.Greater(t, result.Box.ExpectedValue, 1.0)
}

// TestOptimizeExplicitBoxBudget tests that an unaffordable box yields no plan.
func TestOptimizeExplicitBoxBudget(t *testing.T) {
	o := testOptimizer()
	req := Request{
		ContestID: "c1",
		Entrants: []models.Entrant{
			{ID: "a", WinProbability: 0.4},
			{ID: "b", WinProbability: 0.3},
			{ID: "c", WinProbability: 0.3},
		},
		Budget:     decimal.NewFromInt(500), // 6 legs need 600
		Structures: []models.WagerStructure{models.StructureBox},
		BoxIDs:     []string{"a", "b", "c"},
	}

	result, err := o.Optimize(context.Background(), req, pricing.StaticQuotes{})
	require.NoError(t, err)
	assert.Nil(t, result.Box)
}

// TestOptimizeFormationSearch tests the automatic formation pattern search.
func TestOptimizeFormationSearch(t *testing.T) {
	o := testOptimizer()
	req := Request{
		ContestID: "c1",
		Entrants: []models.Entrant{
			{ID: "a", WinProbability: 0.4},
			{ID: "b", WinProbability: 0.25},
			{ID: "c", WinProbability: 0.2},
			{ID: "d", WinProbability: 0.15},
		},
		Budget:     decimal.NewFromInt(30000),
		Structures: []models.WagerStructure{models.StructureFormation},
	}
	quotes := pricing.StaticQuotes{
		models.StructureTrifecta: {"a-b-c": 15.0},
	}

	result, err := o.Optimize(context.Background(), req, quotes)
	require.NoError(t, err)
	require.NotNil(t, result.Formation)
	assert.NotEmpty(t, result.Formation.Spec.Firsts)
	// Pattern cost stays within budget/3
	assert.True(t, result.Formation.TotalCost.LessThanOrEqual(decimal.NewFromInt(10000)))
	assert.Greater(t, result.Formation.ExpectedValue, 1.0)
}

// TestOptimizeExplicitFormationSpec tests a caller-supplied formation.
func TestOptimizeExplicitFormationSpec(t *testing.T) {
	o := testOptimizer()
	spec := models.FormationSpec{
		Firsts:  []string{"a"},
		Seconds: []string{"b", "c"},
		Thirds:  []string{"b", "c", "d"},
	}
	req := Request{
		ContestID: "c1",
		Entrants: []models.Entrant{
			{ID: "a", WinProbability: 0.4},
			{ID: "b", WinProbability: 0.25},
			{ID: "c", WinProbability: 0.2},
			{ID: "d", WinProbability: 0.15},
		},
		Budget:     decimal.NewFromInt(30000),
		Structures: []models.WagerStructure{models.StructureFormation},
		Formation:  &spec,
	}
	quotes := pricing.StaticQuotes{
		models.StructureTrifecta: {"a-b-c": 20.0, "a-c-b": 20.0},
	}

	result, err := o.Optimize(context.Background(), req, quotes)
	require.NoError(t, err)
	require.NotNil(t, result.Formation)
	assert.Equal(t, spec, result.Formation.Spec)
	// a-(b|c)-(b|c|d) minus repeats: a-b-c, a-b-d, a-c-b, a-c-d
	assert.Equal(t, 4, result.Formation.Combinations)
}

// TestSubsetsOf tests rank-order subset enumeration.
func TestSubsetsOf(t *testing.T) {
	subsets := subsetsOf([]string{"a", "b", "c", "d"}, 3)
	require.Len(t, subsets, 4)
	assert.Equal(t, []string{"a", "b", "c"}, subsets[0])
	assert.Equal(t, []string{"b", "c", "d"}, subsets[3])

	assert.Nil(t, subsetsOf([]string{"a", "b"}, 3))
}
