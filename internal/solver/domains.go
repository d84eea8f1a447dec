package solver

import (
	"errors"
	"fmt"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// errDomainWipeout signals that propagation emptied a domain. It is a
// local control signal: the search maps it to "try the next candidate"
// and it never escapes the solver.
var errDomainWipeout = errors.New("solver: domain wipeout")

// Snapshot marks a point on the domain trail; restoring to it undoes
// every removal recorded after the mark.
type Snapshot int

// trailOp is one removed candidate with the position it occupied, so
// restore can reinsert it exactly where it was.
type trailOp struct {
	cell int
	pos  int
	cand Candidate
}

// Domains holds the per-cell candidate sets, kept arc-consistent with
// the board. Each domain is ordered by Candidate.Key. A filled cell's
// domain holds exactly its placement. Domains belong to one worker.
type Domains struct {
	rows, cols int
	set        *puzzle.Set
	board      *puzzle.Board
	cells      [][]Candidate
	// counts[cell][face][color] is how many members of cells[cell]
	// carry color on that face; makes the AC-3 support test O(1).
	counts  [][4][256]uint16
	trail   []trailOp
	queue   []int
	inQueue []bool

	// FitChecks counts validator calls made while seeding domains.
	FitChecks uint64
}

// NewDomains computes the initial domain of every empty cell by
// filtering the edge index against borders, filled neighbors, the
// used-set and the fit rules, then runs AC-3 to a fixed point.
// Filled cells get the singleton domain of their placement.
// Returns errDomainWipeout if any empty cell ends up with no candidate.
func NewDomains(b *puzzle.Board, set *puzzle.Set, index *EdgeIndex, rules *Rules, used *puzzle.UsedSet) (*Domains, error) {
	rows, cols := b.Rows(), b.Cols()
	dm := &Domains{
		rows:    rows,
		cols:    cols,
		set:     set,
		board:   b,
		cells:   make([][]Candidate, rows*cols),
		counts:  make([][4][256]uint16, rows*cols),
		inQueue: make([]bool, rows*cols),
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell := r*cols + c
			if pl, ok := b.At(r, c); ok {
				dm.seed(cell, Candidate{Piece: pl.Piece, Rotation: pl.Rotation})
				continue
			}
			for _, cand := range dm.seedSource(index, r, c) {
				if used.Has(cand.Piece) {
					continue
				}
				edges := set.Piece(cand.Piece).EdgesRotated(cand.Rotation)
				dm.FitChecks++
				if rules.Fits(b, r, c, cand.Piece, edges) {
					dm.seed(cell, cand)
				}
			}
			if len(dm.cells[cell]) == 0 {
				return nil, fmt.Errorf("cell (%d,%d): %w", r, c, errDomainWipeout)
			}
		}
	}

	for cell := range dm.cells {
		r, c := cell/cols, cell%cols
		if b.IsEmpty(r, c) {
			dm.enqueue(cell)
		}
	}
	if err := dm.propagate(); err != nil {
		return nil, err
	}
	return dm, nil
}

// seedSource picks the most constraining index bucket for a cell: a
// border face if it has one, else a filled neighbor's facing color,
// else the full (piece, rotation) enumeration.
func (dm *Domains) seedSource(index *EdgeIndex, r, c int) []Candidate {
	for d := puzzle.North; d <= puzzle.West; d++ {
		if dm.board.IsBorder(r, c, d) {
			return index.Compatible(d, puzzle.Border)
		}
	}
	for d := puzzle.North; d <= puzzle.West; d++ {
		dr, dc := d.Delta()
		if ne, ok := dm.board.EdgesAt(r+dr, c+dc); ok {
			return index.Compatible(d, ne[d.Opposite()])
		}
	}
	all := make([]Candidate, 0, dm.set.Len()*4)
	for _, p := range dm.set.Pieces() {
		for rot := uint8(0); rot < 4; rot++ {
			all = append(all, Candidate{Piece: p.ID, Rotation: rot})
		}
	}
	return all
}

// seed appends a candidate during construction, bypassing the trail.
func (dm *Domains) seed(cell int, cand Candidate) {
	dm.cells[cell] = append(dm.cells[cell], cand)
	dm.bumpCounts(cell, cand, 1)
}

func (dm *Domains) bumpCounts(cell int, cand Candidate, delta int) {
	edges := dm.set.Piece(cand.Piece).EdgesRotated(cand.Rotation)
	for d := 0; d < 4; d++ {
		dm.counts[cell][d][edges[d]] = uint16(int(dm.counts[cell][d][edges[d]]) + delta)
	}
}

// Domain returns the candidate set of (r, c), ordered by Key. The
// slice is a live view; callers that iterate across mutations must
// copy it first.
func (dm *Domains) Domain(r, c int) []Candidate {
	return dm.cells[r*dm.cols+c]
}

// Size returns |D(r, c)|.
func (dm *Domains) Size(r, c int) int {
	return len(dm.cells[r*dm.cols+c])
}

// Mark returns a snapshot of the trail position.
func (dm *Domains) Mark() Snapshot {
	return Snapshot(len(dm.trail))
}

// Restore undoes every removal recorded after the snapshot, restoring
// all domains bit-identically. O(k) in the number of removals.
func (dm *Domains) Restore(s Snapshot) {
	for len(dm.trail) > int(s) {
		op := dm.trail[len(dm.trail)-1]
		dm.trail = dm.trail[:len(dm.trail)-1]
		d := dm.cells[op.cell]
		d = append(d, Candidate{})
		copy(d[op.pos+1:], d[op.pos:])
		d[op.pos] = op.cand
		dm.cells[op.cell] = d
		dm.bumpCounts(op.cell, op.cand, 1)
	}
}

// removeAt drops the candidate at pos, recording it on the trail.
func (dm *Domains) removeAt(cell, pos int) {
	d := dm.cells[cell]
	cand := d[pos]
	dm.trail = append(dm.trail, trailOp{cell: cell, pos: pos, cand: cand})
	copy(d[pos:], d[pos+1:])
	dm.cells[cell] = d[:len(d)-1]
	dm.bumpCounts(cell, cand, -1)
}

// Assign narrows (r, c) to the single placed candidate, strips the
// used piece from every other domain, and filters the direct neighbors
// against the placed edges. The caller runs PropagateFrom afterwards.
// On wipeout the trail still records everything; restore to the
// caller's mark to undo.
func (dm *Domains) Assign(r, c int, cand Candidate) error {
	cell := r*dm.cols + c
	d := dm.cells[cell]
	for i := len(d) - 1; i >= 0; i-- {
		if d[i] != cand {
			dm.removeAt(cell, i)
		}
	}
	if len(dm.cells[cell]) != 1 {
		return fmt.Errorf("cell (%d,%d) lost its own placement: %w", r, c, errDomainWipeout)
	}

	for other := range dm.cells {
		if other == cell {
			continue
		}
		od := dm.cells[other]
		for i := len(od) - 1; i >= 0; i-- {
			if od[i].Piece == cand.Piece {
				dm.removeAt(other, i)
			}
			od = dm.cells[other]
		}
		if len(dm.cells[other]) == 0 {
			return fmt.Errorf("cell %d: %w", other, errDomainWipeout)
		}
	}

	placed := dm.set.Piece(cand.Piece).EdgesRotated(cand.Rotation)
	for dir := puzzle.North; dir <= puzzle.West; dir++ {
		dr, dc := dir.Delta()
		nr, nc := r+dr, c+dc
		if !dm.board.IsEmpty(nr, nc) {
			continue
		}
		ncell := nr*dm.cols + nc
		opp := dir.Opposite()
		nd := dm.cells[ncell]
		for i := len(nd) - 1; i >= 0; i-- {
			edges := dm.set.Piece(nd[i].Piece).EdgesRotated(nd[i].Rotation)
			if edges[opp] != placed[dir] {
				dm.removeAt(ncell, i)
			}
			nd = dm.cells[ncell]
		}
		if len(dm.cells[ncell]) == 0 {
			return fmt.Errorf("cell (%d,%d): %w", nr, nc, errDomainWipeout)
		}
	}
	return nil
}

// PropagateFrom runs AC-3 starting from the empty neighbors of (r, c).
// Idempotent: a second call with unchanged domains removes nothing.
func (dm *Domains) PropagateFrom(r, c int) error {
	for d := puzzle.North; d <= puzzle.West; d++ {
		dr, dc := d.Delta()
		if dm.board.IsEmpty(r+dr, c+dc) {
			dm.enqueue((r+dr)*dm.cols + c + dc)
		}
	}
	return dm.propagate()
}

func (dm *Domains) enqueue(cell int) {
	if !dm.inQueue[cell] {
		dm.inQueue[cell] = true
		dm.queue = append(dm.queue, cell)
	}
}

// propagate drains the revision queue to a fixed point, failing the
// moment any domain empties.
func (dm *Domains) propagate() error {
	for len(dm.queue) > 0 {
		cell := dm.queue[0]
		dm.queue = dm.queue[1:]
		dm.inQueue[cell] = false

		r, c := cell/dm.cols, cell%dm.cols
		if !dm.board.IsEmpty(r, c) {
			continue
		}
		removed, err := dm.revise(cell, r, c)
		if err != nil {
			dm.queue = dm.queue[:0]
			for i := range dm.inQueue {
				dm.inQueue[i] = false
			}
			return err
		}
		if removed {
			for d := puzzle.North; d <= puzzle.West; d++ {
				dr, dc := d.Delta()
				if dm.board.IsEmpty(r+dr, c+dc) {
					dm.enqueue((r+dr)*dm.cols + c + dc)
				}
			}
		}
	}
	return nil
}

// revise drops every member of D(cell) that has an empty neighbor with
// no member carrying the matching facing color.
func (dm *Domains) revise(cell, r, c int) (bool, error) {
	removed := false
	d := dm.cells[cell]
	for i := len(d) - 1; i >= 0; i-- {
		edges := dm.set.Piece(d[i].Piece).EdgesRotated(d[i].Rotation)
		for dir := puzzle.North; dir <= puzzle.West; dir++ {
			dr, dc := dir.Delta()
			nr, nc := r+dr, c+dc
			if !dm.board.IsEmpty(nr, nc) {
				continue
			}
			ncell := nr*dm.cols + nc
			if dm.counts[ncell][dir.Opposite()][edges[dir]] == 0 {
				dm.removeAt(cell, i)
				removed = true
				break
			}
		}
		d = dm.cells[cell]
	}
	if len(dm.cells[cell]) == 0 {
		return removed, fmt.Errorf("cell (%d,%d): %w", r, c, errDomainWipeout)
	}
	return removed, nil
}

// Clone deep-copies the domains for a forked worker, rebinding them to
// the worker's own board. The trail starts empty.
func (dm *Domains) Clone(b *puzzle.Board) *Domains {
	nd := &Domains{
		rows:    dm.rows,
		cols:    dm.cols,
		set:     dm.set,
		board:   b,
		cells:   make([][]Candidate, len(dm.cells)),
		counts:  make([][4][256]uint16, len(dm.counts)),
		inQueue: make([]bool, len(dm.inQueue)),
	}
	for i, d := range dm.cells {
		nd.cells[i] = append([]Candidate(nil), d...)
	}
	copy(nd.counts, dm.counts)
	return nd
}
