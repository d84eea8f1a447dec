package solver

import (
	"time"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// Searcher is one worker's depth-first search over its own board,
// used-set, domains and placement log. Nothing here is shared except
// the SharedState and Stats blocks.
type Searcher struct {
	id      int
	board   *puzzle.Board
	used    *puzzle.UsedSet
	domains *Domains
	rules   *Rules
	index   *EdgeIndex
	set     *puzzle.Set
	log     []puzzle.Step
	shared  *SharedState
	stats   *Stats
	opts    Options
	sink    Sink
	start   time.Time
	total   int
}

// Search runs the recursion from the board's current fill state.
// Returns true when this worker completed a solution.
func (s *Searcher) Search() bool {
	return s.search(s.board.FilledCount())
}

// search is the recursive core. Precondition: domains are
// arc-consistent with the board. Postcondition: board, used-set and
// domains are bit-identical to their state at entry unless true is
// returned.
func (s *Searcher) search(depth int) bool {
	s.stats.Calls.Add(1)

	if depth == s.total {
		return s.publishSolution()
	}
	if s.shared.Stopped() {
		return false
	}

	r, c, ok := s.nextCell()
	if !ok {
		return s.publishSolution()
	}

	// Copy the domain: Assign mutates it in place.
	cands := append([]Candidate(nil), s.domains.Domain(r, c)...)
	if len(cands) == 0 {
		s.stats.DeadEnds.Add(1)
		return false
	}

	for _, cand := range cands {
		if s.shared.Stopped() {
			return false
		}
		snap := s.domains.Mark()
		logMark := len(s.log)

		viable := s.place(r, c, cand) == nil
		if viable {
			_, err := s.forceSingles()
			viable = err == nil && s.domains.PropagateFrom(r, c) == nil
		}
		if viable && s.search(s.board.FilledCount()) {
			return true
		}

		s.undoTo(logMark, snap)
		s.stats.Backtracks.Add(1)
	}

	s.stats.DeadEnds.Add(1)
	return false
}

// place commits a candidate to (r, c): board write, used bit, log
// entry, best-depth tracking, checkpoint tick, domain assignment.
// A wipeout error leaves the trail dirty; the caller restores.
func (s *Searcher) place(r, c int, cand Candidate) error {
	if err := s.board.Place(r, c, cand.Piece, cand.Rotation); err != nil {
		return err
	}
	s.used.Set(cand.Piece)
	s.log = append(s.log, puzzle.Step{Row: r, Col: c, Piece: cand.Piece, Rotation: cand.Rotation})
	s.stats.Placements.Add(1)

	depth := s.board.FilledCount()
	improved := s.shared.UpdateBest(depth, s.id)
	if improved {
		s.shared.PublishBest(s.board.Clone(), s.used.Clone())
	}
	s.tick(depth, improved)

	return s.domains.Assign(r, c, cand)
}

// undoTo pops placement log entries past logMark off the board and the
// used-set, then restores the domain trail to the snapshot.
func (s *Searcher) undoTo(logMark int, snap Snapshot) {
	for len(s.log) > logMark {
		st := s.log[len(s.log)-1]
		s.log = s.log[:len(s.log)-1]
		s.board.Remove(st.Row, st.Col)
		s.used.Clear(st.Piece)
	}
	s.domains.Restore(snap)
}

// publishSolution marks the shared solution flag; the CAS winner
// publishes the authoritative deep copy.
func (s *Searcher) publishSolution() bool {
	if s.shared.MarkSolved(s.id) {
		s.shared.UpdateBest(s.total, s.id)
		board, used := s.board.Clone(), s.used.Clone()
		s.shared.PublishSolution(board, used)
		s.shared.PublishBest(board, used)
		s.tick(s.total, true)
	}
	return true
}

// tick hands a checkpoint to the sink when the depth lands on the save
// interval: the rolling current snapshot always, a best milestone only
// when the depth improved on the global best.
func (s *Searcher) tick(depth int, improved bool) {
	if s.sink == nil || s.opts.SaveInterval <= 0 {
		return
	}
	if depth%s.opts.SaveInterval != 0 && depth != s.total {
		return
	}
	cp := Checkpoint{
		Worker:  s.id,
		Rows:    s.board.Rows(),
		Cols:    s.board.Cols(),
		Depth:   depth,
		Steps:   append([]puzzle.Step(nil), s.log...),
		Used:    s.used.Clone(),
		Elapsed: time.Since(s.start),
		Stats:   s.stats.Snapshot(),
	}
	s.sink.SaveCurrent(cp)
	if improved {
		s.sink.SaveBest(cp)
	}
}

// Fork deep-clones the worker for a parallel subtree: own board,
// used-set, domains and log; shared coordination and counters.
func (s *Searcher) Fork(id int) *Searcher {
	b := s.board.Clone()
	return &Searcher{
		id:      id,
		board:   b,
		used:    s.used.Clone(),
		domains: s.domains.Clone(b),
		rules:   s.rules,
		index:   s.index,
		set:     s.set,
		log:     append([]puzzle.Step(nil), s.log...),
		shared:  s.shared,
		stats:   s.stats,
		opts:    s.opts,
		sink:    s.sink,
		start:   s.start,
		total:   s.total,
	}
}

// Board exposes the worker's board for the driver and tests.
func (s *Searcher) Board() *puzzle.Board { return s.board }

// Used exposes the worker's used-set for the driver and tests.
func (s *Searcher) Used() *puzzle.UsedSet { return s.used }

// Log returns the chronological placement log.
func (s *Searcher) Log() []puzzle.Step { return s.log }

// Domains exposes the worker's domain manager for the driver and tests.
func (s *Searcher) Domains() *Domains { return s.domains }
