package solver

import (
	"testing"
	"time"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// testGrid builds a solvable rows x cols piece set whose identity
// placement (piece r*cols+c+1 at (r, c), rotation 0) is a solution.
// distinct=true gives every internal edge a unique color, making the
// identity the only solution; otherwise colors cycle a 3-color palette
// and the search has real branching.
func testGrid(t *testing.T, rows, cols int, distinct bool) *puzzle.Set {
	t.Helper()
	next := 0
	color := func() puzzle.Color {
		next++
		if distinct {
			if next > 255 {
				t.Fatal("too many edges for distinct colors")
			}
			return puzzle.Color(next)
		}
		return puzzle.Color(next%3 + 1)
	}

	h := make([][]puzzle.Color, rows)
	v := make([][]puzzle.Color, rows)
	for r := 0; r < rows; r++ {
		h[r] = make([]puzzle.Color, cols)
		v[r] = make([]puzzle.Color, cols)
		for c := 0; c < cols-1; c++ {
			h[r][c] = color()
		}
	}
	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols; c++ {
			v[r][c] = color()
		}
	}

	pieces := make([]puzzle.Piece, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var edges [4]puzzle.Color
			if r > 0 {
				edges[puzzle.North] = v[r-1][c]
			}
			if c < cols-1 {
				edges[puzzle.East] = h[r][c]
			}
			if r < rows-1 {
				edges[puzzle.South] = v[r][c]
			}
			if c > 0 {
				edges[puzzle.West] = h[r][c-1]
			}
			pieces = append(pieces, puzzle.Piece{ID: uint16(r*cols + c + 1), Edges: edges})
		}
	}
	set, err := puzzle.NewSet(pieces)
	if err != nil {
		t.Fatalf("testGrid: %v", err)
	}
	return set
}

// newTestSearcher wires a single worker over a fresh board, without a
// driver. Fails the test when initial propagation wipes out.
func newTestSearcher(t *testing.T, set *puzzle.Set, rows, cols int, opts Options) *Searcher {
	t.Helper()
	board := puzzle.NewBoard(rows, cols, set)
	used := puzzle.NewUsedSet(set.Len())
	index := NewEdgeIndex(set)
	rules := NewRules(rows, cols, set)
	domains, err := NewDomains(board, set, index, rules, used)
	if err != nil {
		t.Fatalf("initial domains: %v", err)
	}
	return &Searcher{
		id:      1,
		board:   board,
		used:    used,
		domains: domains,
		rules:   rules,
		index:   index,
		set:     set,
		shared:  NewSharedState(),
		stats:   &Stats{},
		opts:    opts,
		start:   time.Now(),
		total:   rows * cols,
	}
}

// domainSnapshot deep-copies every cell domain for later comparison.
func domainSnapshot(dm *Domains) [][]Candidate {
	out := make([][]Candidate, len(dm.cells))
	for i, d := range dm.cells {
		out[i] = append([]Candidate(nil), d...)
	}
	return out
}

func domainsEqual(a, b [][]Candidate) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
