package combo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/wager-engine/internal/models"
	"github.com/yourusername/wager-engine/internal/probability"
)

func bookOf(entrants ...models.Entrant) *probability.Book {
	return probability.NewBook(entrants)
}

// TestSingles tests that singles cover every entrant in ranked order.
func TestSingles(t *testing.T) {
	g := NewGenerator()
	book := bookOf(
		models.Entrant{ID: "a", WinProbability: 0.2},
		models.Entrant{ID: "b", WinProbability: 0.5},
		models.Entrant{ID: "c", WinProbability: 0.3},
	)

	combos := g.Singles(book)
	require.Len(t, combos, 3)
	assert.Equal(t, "b", combos[0].Key())
	assert.Equal(t, "c", combos[1].Key())
	assert.Equal(t, "a", combos[2].Key())
}

// TestExactasTopK tests ordered pairs over the top-K entrants only.
func TestExactasTopK(t *testing.T) {
	g := NewGenerator()
	g.TopK = 3
	book := bookOf(
		models.Entrant{ID: "a", WinProbability: 0.4},
		models.Entrant{ID: "b", WinProbability: 0.3},
		models.Entrant{ID: "c", WinProbability: 0.2},
		models.Entrant{ID: "d", WinProbability: 0.1},
	)

	combos := g.Exactas(book)
	// 3 * 2 ordered pairs, none involving d
	require.Len(t, combos, 6)
	for _, c := range combos {
		assert.NotContains(t, c.IDs(), "d")
		assert.Equal(t, 2, c.Len())
	}
}

// TestExactasTooFewEntrants tests that one entrant yields no exactas.
func TestExactasTooFewEntrants(t *testing.T) {
	g := NewGenerator()
	book := bookOf(models.Entrant{ID: "a", WinProbability: 1.0})

	assert.Empty(t, g.Exactas(book))
	assert.Empty(t, g.Trifectas(book))
}

// TestTrifectasCapped tests the hard cap on the trifecta search space.
func TestTrifectasCapped(t *testing.T) {
	g := NewGenerator()
	g.TopK = 5
	g.MaxTrifecta = 10
	book := bookOf(
		models.Entrant{ID: "a", WinProbability: 0.3},
		models.Entrant{ID: "b", WinProbability: 0.25},
		models.Entrant{ID: "c", WinProbability: 0.2},
		models.Entrant{ID: "d", WinProbability: 0.15},
		models.Entrant{ID: "e", WinProbability: 0.1},
	)

	combos := g.Trifectas(book)
	// 5*4*3 = 60 uncapped
	assert.Len(t, combos, 10)
}

// TestBoxPermutations tests that a 3-entrant box yields all 6 orderings.
func TestBoxPermutations(t *testing.T) {
	g := NewGenerator()

	combos := g.Box([]string{"x", "y", "z"})
	require.Len(t, combos, 6)

	seen := make(map[string]bool)
	for _, c := range combos {
		assert.Equal(t, 3, c.Len())
		seen[c.Key()] = true
	}
	assert.Len(t, seen, 6, "all orderings distinct")
	assert.True(t, seen["x-y-z"])
	assert.True(t, seen["z-y-x"])
}

// TestBoxInvalidSets tests empty output for undersized or duplicated sets.
func TestBoxInvalidSets(t *testing.T) {
	g := NewGenerator()

	assert.Empty(t, g.Box([]string{"x", "y"}))
	assert.Empty(t, g.Box([]string{"x", "y", "x"}))
	assert.Empty(t, g.Box(nil))
}

// TestBoxFourEntrants tests n!/(n-3)! for n=4.
func TestBoxFourEntrants(t *testing.T) {
	g := NewGenerator()

	combos := g.Box([]string{"a", "b", "c", "d"})
	assert.Len(t, combos, 24)
}

// TestFormationFiltersRepeats tests that the Cartesian product drops tuples
// repeating an entrant across positions.
func TestFormationFiltersRepeats(t *testing.T) {
	g := NewGenerator()
	spec := models.FormationSpec{
		Firsts:  []string{"a"},
		Seconds: []string{"a", "b"},
		Thirds:  []string{"a", "b", "c"},
	}

	combos := g.Formation(spec)
	// Only a-b-c survives: a repeats in seconds, and b/c collide in thirds.
	require.Len(t, combos, 1)
	assert.Equal(t, "a-b-c", combos[0].Key())
}

// TestFormationCount tests a full formation spec count.
func TestFormationCount(t *testing.T) {
	g := NewGenerator()
	spec := models.FormationSpec{
		Firsts:  []string{"a", "b"},
		Seconds: []string{"a", "b", "c"},
		Thirds:  []string{"c", "d"},
	}

	combos := g.Formation(spec)
	// a: (b,c),(b,d),(c,d) minus c-c = a-b-c, a-b-d, a-c-d
	// b: a-c? seconds include a: b-a-c, b-a-d, b-c-d
	assert.Len(t, combos, 6)
}

// TestCost tests unit price times count.
func TestCost(t *testing.T) {
	total := Cost(decimal.NewFromInt(100), 6)
	assert.True(t, total.Equal(decimal.NewFromInt(600)))
}
