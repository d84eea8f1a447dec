package solver

import "github.com/LaurentZamofing/eternity-solver/internal/puzzle"

// Rules is the pure placement predicate: board geometry plus the
// corner symmetry-breaking data.
type Rules struct {
	rows, cols int
	minCorner  uint16
}

// NewRules derives the fit rules for a rows x cols board over the set.
// The smallest corner piece id becomes the canonical occupant of the
// top-left cell.
func NewRules(rows, cols int, set *puzzle.Set) *Rules {
	return &Rules{rows: rows, cols: cols, minCorner: set.MinCornerID()}
}

// Fits reports whether the piece, already rotated into edges, can
// occupy (r, c): border sides must carry the border color and only
// them, filled neighbors must match, and corner cells obey the
// canonical-corner ordering. Fails fast in that order.
func (ru *Rules) Fits(b *puzzle.Board, r, c int, piece uint16, edges [4]puzzle.Color) bool {
	for d := puzzle.North; d <= puzzle.West; d++ {
		if b.IsBorder(r, c, d) {
			if edges[d] != puzzle.Border {
				return false
			}
		} else if edges[d] == puzzle.Border {
			return false
		}
	}

	for d := puzzle.North; d <= puzzle.West; d++ {
		dr, dc := d.Delta()
		if ne, ok := b.EdgesAt(r+dr, c+dc); ok && ne[d.Opposite()] != edges[d] {
			return false
		}
	}

	// The square's symmetry group maps any solution onto one whose
	// top-left corner holds the smallest corner piece and whose other
	// corners hold ids no smaller than it.
	if r == 0 && c == 0 {
		return piece == ru.minCorner
	}
	if (r == 0 || r == ru.rows-1) && (c == 0 || c == ru.cols-1) {
		return piece >= ru.minCorner
	}
	return true
}
