// Package combo enumerates candidate wager combinations for each supported
// wager structure.
package combo

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/wager-engine/internal/models"
	"github.com/yourusername/wager-engine/internal/probability"
)

// Defaults bounding the enumeration. TopK keeps ordered searches over the
// strongest entrants only; MaxTrifecta hard-caps the trifecta search space.
const (
	DefaultTopK        = 5
	DefaultMaxTrifecta = 50
)

// Generator produces candidate combinations from ranked entrants. All methods
// return an empty slice, never an error, when the contest has too few distinct
// entrants for the requested structure.
type Generator struct {
	TopK        int
	MaxTrifecta int
}

// NewGenerator creates a generator with the default bounds.
func NewGenerator() *Generator {
	return &Generator{TopK: DefaultTopK, MaxTrifecta: DefaultMaxTrifecta}
}

// Singles returns one combination per entrant.
func (g *Generator) Singles(book *probability.Book) []models.Combination {
	ranked := book.Ranked()
	combos := make([]models.Combination, 0, len(ranked))
	for _, e := range ranked {
		combos = append(combos, models.MustCombination(e.ID))
	}
	return combos
}

// Exactas returns ordered pairs over the top-K ranked entrants.
func (g *Generator) Exactas(book *probability.Book) []models.Combination {
	ids := g.topIDs(book)
	if len(ids) < 2 {
		return nil
	}
	var combos []models.Combination
	for _, first := range ids {
		for _, second := range ids {
			if second == first {
				continue
			}
			combos = append(combos, models.MustCombination(first, second))
		}
	}
	return combos
}

// Trifectas returns ordered triples over the top-K ranked entrants, hard
// capped at MaxTrifecta combinations to bound the search.
func (g *Generator) Trifectas(book *probability.Book) []models.Combination {
	ids := g.topIDs(book)
	if len(ids) < 3 {
		return nil
	}
	limit := g.MaxTrifecta
	if limit <= 0 {
		limit = DefaultMaxTrifecta
	}
	var combos []models.Combination
	for _, first := range ids {
		for _, second := range ids {
			if second == first {
				continue
			}
			for _, third := range ids {
				if third == first || third == second {
					continue
				}
				if len(combos) >= limit {
					return combos
				}
				combos = append(combos, models.MustCombination(first, second, third))
			}
		}
	}
	return combos
}

// Box returns every length-3 permutation of a caller-supplied fixed set:
// n!/(n-3)! combinations for n >= 3.
func (g *Generator) Box(ids []string) []models.Combination {
	if len(ids) < 3 || !distinct(ids) {
		return nil
	}
	var combos []models.Combination
	for _, first := range ids {
		for _, second := range ids {
			if second == first {
				continue
			}
			for _, third := range ids {
				if third == first || third == second {
					continue
				}
				combos = append(combos, models.MustCombination(first, second, third))
			}
		}
	}
	return combos
}

// Formation returns the Cartesian product of the spec's position sets with
// tuples repeating an id across positions filtered out.
func (g *Generator) Formation(spec models.FormationSpec) []models.Combination {
	var combos []models.Combination
	for _, first := range spec.Firsts {
		for _, second := range spec.Seconds {
			if second == first {
				continue
			}
			for _, third := range spec.Thirds {
				if third == first || third == second {
					continue
				}
				combos = append(combos, models.MustCombination(first, second, third))
			}
		}
	}
	return combos
}

// Cost returns unit price × combination count.
func Cost(unitPrice decimal.Decimal, count int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(count)))
}

func (g *Generator) topIDs(book *probability.Book) []string {
	k := g.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	ranked := book.Ranked()
	if len(ranked) < k {
		k = len(ranked)
	}
	ids := make([]string, 0, k)
	for _, e := range ranked[:k] {
		ids = append(ids, e.ID)
	}
	return ids
}

func distinct(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}
