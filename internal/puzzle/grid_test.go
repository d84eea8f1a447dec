package puzzle

import "testing"

// gridColors assigns a color to every internal edge of a rows x cols
// grid. With distinct=true every edge gets a unique color, which makes
// the identity placement the only solution; otherwise colors cycle
// through a small palette and many tilings exist.
type gridColors struct {
	rows, cols int
	h, v       [][]Color // h[r][c]: edge (r,c)-(r,c+1); v[r][c]: edge (r,c)-(r+1,c)
}

func makeGridColors(rows, cols int, distinct bool) gridColors {
	g := gridColors{rows: rows, cols: cols}
	next := 0
	color := func() Color {
		next++
		if distinct {
			if next > 255 {
				panic("too many edges for distinct colors")
			}
			return Color(next)
		}
		return Color(next%3 + 1)
	}
	g.h = make([][]Color, rows)
	g.v = make([][]Color, rows)
	for r := 0; r < rows; r++ {
		g.h[r] = make([]Color, cols)
		g.v[r] = make([]Color, cols)
		for c := 0; c < cols-1; c++ {
			g.h[r][c] = color()
		}
	}
	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols; c++ {
			g.v[r][c] = color()
		}
	}
	return g
}

// pieceAt derives the identity-solution piece for cell (r, c), id
// r*cols + c + 1, rotation 0.
func (g gridColors) pieceAt(r, c int) Piece {
	var edges [4]Color
	if r > 0 {
		edges[North] = g.v[r-1][c]
	}
	if c < g.cols-1 {
		edges[East] = g.h[r][c]
	}
	if r < g.rows-1 {
		edges[South] = g.v[r][c]
	}
	if c > 0 {
		edges[West] = g.h[r][c-1]
	}
	return Piece{ID: uint16(r*g.cols + c + 1), Edges: edges}
}

// gridSet builds a solvable rows x cols piece set whose identity
// placement (piece r*cols+c+1 at (r, c), rotation 0) is a solution.
func gridSet(t *testing.T, rows, cols int, distinct bool) *Set {
	t.Helper()
	g := makeGridColors(rows, cols, distinct)
	pieces := make([]Piece, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pieces = append(pieces, g.pieceAt(r, c))
		}
	}
	set, err := NewSet(pieces)
	if err != nil {
		t.Fatalf("gridSet: %v", err)
	}
	return set
}
