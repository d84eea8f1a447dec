package puzzle

import "fmt"

// Set is the immutable piece multiset of a puzzle. Piece ids are dense,
// 1..Len().
type Set struct {
	pieces []Piece
}

// NewSet builds a set from pieces whose ids must cover exactly 1..n.
func NewSet(pieces []Piece) (*Set, error) {
	n := len(pieces)
	if n == 0 {
		return nil, fmt.Errorf("%w: no pieces", ErrInvalidPuzzle)
	}
	ordered := make([]Piece, n)
	seen := make([]bool, n)
	for _, p := range pieces {
		id := int(p.ID)
		if id < 1 || id > n {
			return nil, fmt.Errorf("%w: piece id %d outside 1..%d", ErrInvalidPuzzle, id, n)
		}
		if seen[id-1] {
			return nil, fmt.Errorf("%w: duplicate piece id %d", ErrInvalidPuzzle, id)
		}
		seen[id-1] = true
		ordered[id-1] = p
	}
	return &Set{pieces: ordered}, nil
}

// Len returns the number of pieces.
func (s *Set) Len() int { return len(s.pieces) }

// Piece returns the piece with the given id. Ids are 1-based.
func (s *Set) Piece(id uint16) Piece {
	return s.pieces[id-1]
}

// Pieces returns the pieces in id order. The slice is shared; callers
// must not mutate it.
func (s *Set) Pieces() []Piece { return s.pieces }

// Counts returns how many corner, edge and interior pieces the set
// holds. Malformed pieces count toward none of the three.
func (s *Set) Counts() (corners, edges, interior int) {
	for _, p := range s.pieces {
		switch p.Kind() {
		case Corner:
			corners++
		case Edge:
			edges++
		case Interior:
			interior++
		}
	}
	return corners, edges, interior
}

// MinCornerID returns the smallest id among corner pieces, or 0 when
// the set has none.
func (s *Set) MinCornerID() uint16 {
	for _, p := range s.pieces {
		if p.Kind() == Corner {
			return p.ID
		}
	}
	return 0
}

// Validate checks the cardinality invariant for a rows x cols grid:
// exactly 4 corners, 2*(rows+cols)-8 edge pieces, the rest interior,
// and rows*cols pieces in total.
func (s *Set) Validate(rows, cols int) error {
	if rows < 2 || cols < 2 {
		return fmt.Errorf("%w: grid %dx%d too small", ErrInvalidPuzzle, rows, cols)
	}
	if len(s.pieces) != rows*cols {
		return fmt.Errorf("%w: %d pieces for a %dx%d grid", ErrInvalidPuzzle, len(s.pieces), rows, cols)
	}
	corners, edges, interior := s.Counts()
	wantEdges := 2*(rows+cols) - 8
	wantInterior := rows*cols - 4 - wantEdges
	if corners != 4 || edges != wantEdges || interior != wantInterior {
		return fmt.Errorf("%w: piece mix %d/%d/%d, want %d/%d/%d (corner/edge/interior)",
			ErrInvalidPuzzle, corners, edges, interior, 4, wantEdges, wantInterior)
	}
	return nil
}

// Dimensions infers the grid size from the piece mix: with E edge
// pieces, rows+cols = (E+8)/2, and rows*cols = Len(). Returns the
// solution with rows <= cols.
func (s *Set) Dimensions() (rows, cols int, err error) {
	n := len(s.pieces)
	corners, edgeCount, _ := s.Counts()
	if corners != 4 {
		return 0, 0, fmt.Errorf("%w: %d corner pieces, want 4", ErrInvalidPuzzle, corners)
	}
	sum := (edgeCount + 8) / 2
	if (edgeCount+8)%2 != 0 {
		return 0, 0, fmt.Errorf("%w: %d edge pieces fit no rectangle", ErrInvalidPuzzle, edgeCount)
	}
	// rows and cols are the roots of x^2 - sum*x + n = 0.
	for r := 2; r*2 <= sum; r++ {
		c := sum - r
		if r*c == n {
			if err := s.Validate(r, c); err != nil {
				return 0, 0, err
			}
			return r, c, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %d pieces with %d edge pieces fit no rectangle", ErrInvalidPuzzle, n, edgeCount)
}
