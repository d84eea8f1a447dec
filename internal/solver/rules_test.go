package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// corner2x2 is four corner pieces whose internal edges all carry color
// 1, so any assignment of pieces to cells (in the right rotation)
// tiles the board. Only the symmetry rule cuts the space down.
func corner2x2(t *testing.T) *puzzle.Set {
	t.Helper()
	raw := [][4]puzzle.Color{
		{0, 1, 1, 0}, // zeros N,W
		{0, 0, 1, 1}, // zeros N,E
		{1, 1, 0, 0}, // zeros S,W
		{1, 0, 0, 1}, // zeros E,S
	}
	pieces := make([]puzzle.Piece, len(raw))
	for i, e := range raw {
		pieces[i] = puzzle.Piece{ID: uint16(i + 1), Edges: e}
	}
	set, err := puzzle.NewSet(pieces)
	require.NoError(t, err)
	return set
}

func TestFitsBorderRules(t *testing.T) {
	set := testGrid(t, 3, 3, true)
	b := puzzle.NewBoard(3, 3, set)
	rules := NewRules(3, 3, set)

	// The interior piece (id 5) has no border edge: it fits no border
	// cell in any rotation.
	interior := set.Piece(5)
	for rot := uint8(0); rot < 4; rot++ {
		edges := interior.EdgesRotated(rot)
		assert.False(t, rules.Fits(b, 0, 1, 5, edges), "rot %d on top border", rot)
		assert.False(t, rules.Fits(b, 0, 0, 5, edges), "rot %d on corner", rot)
	}

	// A border edge color inside the board is just as illegal.
	top := set.Piece(2) // top-edge piece, zero on north
	for rot := uint8(0); rot < 4; rot++ {
		assert.False(t, rules.Fits(b, 1, 1, 2, top.EdgesRotated(rot)))
	}

	// The identity orientation fits its own cell.
	assert.True(t, rules.Fits(b, 1, 1, 5, interior.EdgesRotated(0)))
	assert.True(t, rules.Fits(b, 0, 1, 2, top.EdgesRotated(0)))
}

func TestFitsAllEqualEdgesPiece(t *testing.T) {
	set := testGrid(t, 3, 3, true)
	b := puzzle.NewBoard(3, 3, set)
	rules := NewRules(3, 3, set)

	// Four equal nonzero edges: no border cell accepts it.
	uniform := puzzle.Piece{ID: 5, Edges: [4]puzzle.Color{7, 7, 7, 7}}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if r == 1 && c == 1 {
				continue
			}
			for rot := uint8(0); rot < 4; rot++ {
				assert.False(t, rules.Fits(b, r, c, 5, uniform.EdgesRotated(rot)))
			}
		}
	}
}

func TestFitsNeighborMatching(t *testing.T) {
	set := testGrid(t, 3, 3, true)
	b := puzzle.NewBoard(3, 3, set)
	rules := NewRules(3, 3, set)

	require.NoError(t, b.Place(1, 1, 5, 0))

	// Identity neighbors match; any other rotation of them does not
	// (all colors are distinct).
	right := set.Piece(6)
	assert.True(t, rules.Fits(b, 1, 2, 6, right.EdgesRotated(0)))
	for rot := uint8(1); rot < 4; rot++ {
		assert.False(t, rules.Fits(b, 1, 2, 6, right.EdgesRotated(rot)))
	}

	// A piece from the wrong side mismatches the shared edge.
	below := set.Piece(8)
	assert.False(t, rules.Fits(b, 0, 1, 8, below.EdgesRotated(0)))
}

func TestFitsCornerSymmetry(t *testing.T) {
	set := corner2x2(t)
	b := puzzle.NewBoard(2, 2, set)
	rules := NewRules(2, 2, set)

	// (0,0) accepts only the minimum-id corner piece.
	for id := uint16(1); id <= 4; id++ {
		fits := false
		for rot := uint8(0); rot < 4; rot++ {
			if rules.Fits(b, 0, 0, id, set.Piece(id).EdgesRotated(rot)) {
				fits = true
			}
		}
		assert.Equal(t, id == 1, fits, "piece %d at (0,0)", id)
	}

	// The other corners accept any id >= the canonical one.
	for id := uint16(2); id <= 4; id++ {
		fits := false
		for rot := uint8(0); rot < 4; rot++ {
			if rules.Fits(b, 1, 1, id, set.Piece(id).EdgesRotated(rot)) {
				fits = true
			}
		}
		assert.True(t, fits, "piece %d at (1,1)", id)
	}
}

// countTilings exhaustively fills the board cell by cell through the
// fit rules alone.
func countTilings(set *puzzle.Set, rules *Rules, b *puzzle.Board, used *puzzle.UsedSet, cell int) int {
	if cell == b.Rows()*b.Cols() {
		return 1
	}
	r, c := cell/b.Cols(), cell%b.Cols()
	n := 0
	for _, p := range set.Pieces() {
		if used.Has(p.ID) {
			continue
		}
		for rot := uint8(0); rot < 4; rot++ {
			if !rules.Fits(b, r, c, p.ID, p.EdgesRotated(rot)) {
				continue
			}
			_ = b.Place(r, c, p.ID, rot)
			used.Set(p.ID)
			n += countTilings(set, rules, b, used, cell+1)
			used.Clear(p.ID)
			b.Remove(r, c)
		}
	}
	return n
}

func TestSymmetryReduction(t *testing.T) {
	set := corner2x2(t)
	rules := NewRules(2, 2, set)
	b := puzzle.NewBoard(2, 2, set)
	used := puzzle.NewUsedSet(set.Len())

	// Without symmetry breaking all 4! piece orders tile the board;
	// pinning the canonical corner leaves the 3! orders of the rest.
	assert.Equal(t, 6, countTilings(set, rules, b, used, 0))
}
