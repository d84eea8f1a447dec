package solver

import "github.com/LaurentZamofing/eternity-solver/internal/puzzle"

// forceSingles alternates position-singleton and piece-singleton
// sweeps until a full pass places nothing. Forced moves are appended
// to the placement log like any other move, so undoTo reverts them.
// Idempotent: an immediate second call places no new pieces.
// Returns errDomainWipeout when a forced placement proves infeasible.
func (s *Searcher) forceSingles() (int, error) {
	if s.opts.NoSingletons {
		return 0, nil
	}
	placed := 0
	for {
		progress := false

		// Position singletons: any empty cell with exactly one
		// candidate takes it.
		for r := 0; r < s.board.Rows(); r++ {
			for c := 0; c < s.board.Cols(); c++ {
				if !s.board.IsEmpty(r, c) {
					continue
				}
				d := s.domains.Domain(r, c)
				if len(d) != 1 {
					continue
				}
				if err := s.forcePlace(r, c, d[0]); err != nil {
					return placed, err
				}
				placed++
				progress = true
			}
		}

		// Piece singletons: an unused piece with exactly one fitting
		// (cell, rotation) goes there.
		for _, p := range s.set.Pieces() {
			if s.used.Has(p.ID) {
				continue
			}
			fr, fc, fcand, count := s.soleFit(p)
			if count != 1 {
				continue
			}
			if err := s.forcePlace(fr, fc, fcand); err != nil {
				return placed, err
			}
			placed++
			progress = true
		}

		if !progress {
			return placed, nil
		}
	}
}

// soleFit scans the empty cells for placements of p that pass the fit
// rules, stopping as soon as a second one shows up.
func (s *Searcher) soleFit(p puzzle.Piece) (row, col int, cand Candidate, count int) {
	for r := 0; r < s.board.Rows(); r++ {
		for c := 0; c < s.board.Cols(); c++ {
			if !s.board.IsEmpty(r, c) {
				continue
			}
			for rot := uint8(0); rot < 4; rot++ {
				s.stats.FitChecks.Add(1)
				if !s.rules.Fits(s.board, r, c, p.ID, p.EdgesRotated(rot)) {
					continue
				}
				count++
				if count > 1 {
					return 0, 0, Candidate{}, count
				}
				row, col, cand = r, c, Candidate{Piece: p.ID, Rotation: rot}
			}
		}
	}
	return row, col, cand, count
}

// forcePlace commits a forced move and propagates from it immediately.
func (s *Searcher) forcePlace(r, c int, cand Candidate) error {
	if err := s.place(r, c, cand); err != nil {
		return err
	}
	s.stats.Singletons.Add(1)
	return s.domains.PropagateFrom(r, c)
}
