package models

import "sort"

// Entrant represents one competitor slot in a contest together with its
// externally supplied win probability.
type Entrant struct {
	ID             string  `json:"entrant_id" validate:"required"`
	WinProbability float64 `json:"win_probability" validate:"gte=0,lte=1"`
}

// RankEntrants returns a copy of entrants sorted by win probability descending.
// Ties break on ID so ranking is deterministic.
func RankEntrants(entrants []Entrant) []Entrant {
	ranked := make([]Entrant, len(entrants))
	copy(ranked, entrants)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].WinProbability == ranked[j].WinProbability {
			return ranked[i].ID < ranked[j].ID
		}
		return ranked[i].WinProbability > ranked[j].WinProbability
	})
	return ranked
}
