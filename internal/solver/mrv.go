package solver

// nextCell picks the empty cell to branch on: smallest domain first,
// ties broken toward border cells, then toward cells with more filled
// neighbors, then row-major order. Returns ok=false only when the
// board is fully filled.
func (s *Searcher) nextCell() (row, col int, ok bool) {
	rows, cols := s.board.Rows(), s.board.Cols()
	bestSize := 0
	bestBorder := false
	bestDeg := -1

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !s.board.IsEmpty(r, c) {
				continue
			}
			size := s.domains.Size(r, c)
			border := r == 0 || c == 0 || r == rows-1 || c == cols-1
			deg := s.filledNeighbors(r, c)

			if !ok {
				row, col, bestSize, bestBorder, bestDeg, ok = r, c, size, border, deg, true
				continue
			}
			if size != bestSize {
				if size < bestSize {
					row, col, bestSize, bestBorder, bestDeg = r, c, size, border, deg
				}
				continue
			}
			if border != bestBorder {
				if border {
					row, col, bestBorder, bestDeg = r, c, border, deg
				}
				continue
			}
			if deg > bestDeg {
				row, col, bestDeg = r, c, deg
			}
		}
	}
	return row, col, ok
}

// filledNeighbors counts the occupied orthogonal neighbors of (r, c);
// off-board sides do not count.
func (s *Searcher) filledNeighbors(r, c int) int {
	n := 0
	if _, ok := s.board.At(r-1, c); ok {
		n++
	}
	if _, ok := s.board.At(r+1, c); ok {
		n++
	}
	if _, ok := s.board.At(r, c-1); ok {
		n++
	}
	if _, ok := s.board.At(r, c+1); ok {
		n++
	}
	return n
}
