// Package probability estimates win and ordered-finish probabilities for
// contest entrants.
package probability

import (
	"github.com/yourusername/wager-engine/internal/models"
)

// Book is an immutable per-contest lookup of entrant win probabilities.
type Book struct {
	probs  map[string]float64
	ranked []models.Entrant
}

// NewBook builds a book from per-entrant probabilities.
func NewBook(entrants []models.Entrant) *Book {
	probs := make(map[string]float64, len(entrants))
	for _, e := range entrants {
		probs[e.ID] = e.WinProbability
	}
	return &Book{
		probs:  probs,
		ranked: models.RankEntrants(entrants),
	}
}

// WinProbability returns the win probability for an entrant, 0 if unknown.
func (b *Book) WinProbability(entrantID string) float64 {
	return b.probs[entrantID]
}

// Ranked returns entrants ordered by win probability descending.
func (b *Book) Ranked() []models.Entrant {
	return b.ranked
}

// Len returns the number of distinct entrants in the book.
func (b *Book) Len() int {
	return len(b.probs)
}
