package models

import (
	"fmt"
	"strings"
)

// Combination is an ordered sequence of 1 to 3 distinct entrant ids naming one
// priceable wager target. The string form ("A-B-C") is the canonical key used
// for odds lookup, map keys and ledger identity.
type Combination struct {
	ids []string
}

// NewCombination builds a combination from ordered entrant ids, enforcing
// distinctness and length 1..3.
func NewCombination(ids ...string) (Combination, error) {
	if len(ids) < 1 || len(ids) > 3 {
		return Combination{}, fmt.Errorf("%w: combination length %d", ErrInvalidInput, len(ids))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return Combination{}, fmt.Errorf("%w: empty entrant id", ErrInvalidInput)
		}
		// "-" is the key separator; ids containing it would not survive the
		// Key/ParseCombination round-trip the store relies on.
		if strings.Contains(id, "-") {
			return Combination{}, fmt.Errorf("%w: entrant id %q contains reserved separator", ErrInvalidInput, id)
		}
		if _, dup := seen[id]; dup {
			return Combination{}, fmt.Errorf("%w: repeated entrant id %q", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	owned := make([]string, len(ids))
	copy(owned, ids)
	return Combination{ids: owned}, nil
}

// MustCombination is NewCombination that panics on invalid input. For use in
// tests and static tables.
func MustCombination(ids ...string) Combination {
	c, err := NewCombination(ids...)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCombination parses the canonical "A-B-C" key form.
func ParseCombination(key string) (Combination, error) {
	if key == "" {
		return Combination{}, fmt.Errorf("%w: empty combination key", ErrInvalidInput)
	}
	return NewCombination(strings.Split(key, "-")...)
}

// IDs returns a copy of the ordered entrant ids.
func (c Combination) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len returns the number of entrant ids in the combination.
func (c Combination) Len() int { return len(c.ids) }

// At returns the entrant id at the given finishing position (1-based).
func (c Combination) At(position int) string { return c.ids[position-1] }

// Key returns the canonical string form, e.g. "A-B-C". Two combinations are
// equal exactly when their keys are equal.
func (c Combination) Key() string { return strings.Join(c.ids, "-") }

// Equal reports order-sensitive equality.
func (c Combination) Equal(other Combination) bool {
	if len(c.ids) != len(other.ids) {
		return false
	}
	for i := range c.ids {
		if c.ids[i] != other.ids[i] {
			return false
		}
	}
	return true
}

func (c Combination) String() string { return c.Key() }
