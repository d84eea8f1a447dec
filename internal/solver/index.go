// Package solver implements the sequential and parallel search engine:
// edge-compatibility indexing, arc-consistent domains, singleton
// forcing, MRV cell selection, the backtracking search itself and the
// shared cross-worker state.
package solver

import "github.com/LaurentZamofing/eternity-solver/internal/puzzle"

// Candidate is an oriented piece, the unit stored in domains and index
// buckets. Candidates order by piece id, then rotation.
type Candidate struct {
	Piece    uint16
	Rotation uint8
}

// Key returns the canonical ordering key, id*4 + rotation.
func (c Candidate) Key() int {
	return int(c.Piece)*4 + int(c.Rotation)
}

// EdgeIndex maps (direction, color) to every oriented piece carrying
// that color on that face. Built once per puzzle, immutable after.
type EdgeIndex struct {
	byFace [4]map[puzzle.Color][]Candidate
}

// NewEdgeIndex enumerates all (piece, rotation) pairs of the set.
// Buckets keep insertion order, which is id-then-rotation order.
func NewEdgeIndex(set *puzzle.Set) *EdgeIndex {
	ix := &EdgeIndex{}
	for d := range ix.byFace {
		ix.byFace[d] = make(map[puzzle.Color][]Candidate)
	}
	for _, p := range set.Pieces() {
		for rot := uint8(0); rot < 4; rot++ {
			edges := p.EdgesRotated(rot)
			cand := Candidate{Piece: p.ID, Rotation: rot}
			for d := 0; d < 4; d++ {
				ix.byFace[d][edges[d]] = append(ix.byFace[d][edges[d]], cand)
			}
		}
	}
	return ix
}

// Compatible returns the oriented pieces carrying the color on the
// given face, in insertion order. The slice is a shared view; callers
// must not mutate it. An empty result is legal.
func (ix *EdgeIndex) Compatible(d puzzle.Direction, color puzzle.Color) []Candidate {
	return ix.byFace[d][color]
}
