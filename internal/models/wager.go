package models

// WagerStructure represents the shape of a bet and fixes how candidate
// combinations are generated and settled.
type WagerStructure string

const (
	StructureSingle    WagerStructure = "single"
	StructureExacta    WagerStructure = "exacta"
	StructureTrifecta  WagerStructure = "trifecta"
	StructureBox       WagerStructure = "box"
	StructureFormation WagerStructure = "formation"
)

// Valid reports whether the structure is one of the supported wager shapes.
func (w WagerStructure) Valid() bool {
	switch w {
	case StructureSingle, StructureExacta, StructureTrifecta, StructureBox, StructureFormation:
		return true
	}
	return false
}

// RequiredPositions returns how many finishing positions must be known to
// settle a wager of this structure.
func (w WagerStructure) RequiredPositions() int {
	switch w {
	case StructureSingle:
		return 1
	case StructureExacta:
		return 2
	default:
		return 3
	}
}

// CombinationLength returns the number of entrant ids in one concrete
// combination of this structure. Box and formation tickets are recorded as
// concrete ordered triples.
func (w WagerStructure) CombinationLength() int {
	return w.RequiredPositions()
}

// FormationSpec holds the candidate entrant sets for each finishing position
// of a formation wager.
type FormationSpec struct {
	Firsts  []string `json:"firsts" validate:"required,min=1"`
	Seconds []string `json:"seconds" validate:"required,min=1"`
	Thirds  []string `json:"thirds" validate:"required,min=1"`
}

// Size returns the position-set sizes (|firsts|, |seconds|, |thirds|).
func (f FormationSpec) Size() (int, int, int) {
	return len(f.Firsts), len(f.Seconds), len(f.Thirds)
}
