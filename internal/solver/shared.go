package solver

import (
	"sync"
	"sync/atomic"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// SharedState is the only mutable state shared between workers. All
// fields are atomic; the worker-count sizing is the one place with a
// lock. One instance per solve is handed to the driver, which shares it
// with every worker; the save manager does not hold it.
type SharedState struct {
	solutionFound atomic.Bool
	cancelled     atomic.Bool
	bestDepth     atomic.Int64
	bestBoard     atomic.Pointer[puzzle.Board]
	bestUsed      atomic.Pointer[puzzle.UsedSet]
	bestWorker    atomic.Int32
	solBoard      atomic.Pointer[puzzle.Board]
	solUsed       atomic.Pointer[puzzle.UsedSet]

	poolMu  sync.Mutex
	workers int
}

// NewSharedState returns a fresh coordination block.
func NewSharedState() *SharedState {
	return &SharedState{}
}

// MarkSolved sets the solution flag. Returns true for the first caller
// only; the winner publishes the solution board.
func (s *SharedState) MarkSolved(worker int) bool {
	if s.solutionFound.CompareAndSwap(false, true) {
		s.bestWorker.Store(int32(worker))
		return true
	}
	return false
}

// Solved reports whether some worker found a complete solution.
func (s *SharedState) Solved() bool {
	return s.solutionFound.Load()
}

// Cancel requests cooperative shutdown (timeout or external stop). It
// has the same observation semantics as the solution flag.
func (s *SharedState) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether an external stop was requested.
func (s *SharedState) Cancelled() bool {
	return s.cancelled.Load()
}

// Stopped reports whether workers should unwind: solved or cancelled.
func (s *SharedState) Stopped() bool {
	return s.solutionFound.Load() || s.cancelled.Load()
}

// UpdateBest raises the global best depth to d if it improves on the
// previous maximum. The CAS loop keeps the value monotonic under races.
func (s *SharedState) UpdateBest(d, worker int) bool {
	for {
		prev := s.bestDepth.Load()
		if int64(d) <= prev {
			return false
		}
		if s.bestDepth.CompareAndSwap(prev, int64(d)) {
			s.bestWorker.Store(int32(worker))
			return true
		}
	}
}

// PublishBest stores clones of the best board and used-set. The two
// pointers are replaced independently: a reader may observe the board
// of one worker with the pieces of another. The fields are advisory.
func (s *SharedState) PublishBest(b *puzzle.Board, u *puzzle.UsedSet) {
	s.bestBoard.Store(b)
	s.bestUsed.Store(u)
}

// BestDepth returns the deepest fill count any worker reached.
func (s *SharedState) BestDepth() int {
	return int(s.bestDepth.Load())
}

// BestWorker returns the id of the last worker to raise the best depth.
func (s *SharedState) BestWorker() int {
	return int(s.bestWorker.Load())
}

// Best returns the advisory best board and used-set snapshots. Either
// may be nil before the first publication.
func (s *SharedState) Best() (*puzzle.Board, *puzzle.UsedSet) {
	return s.bestBoard.Load(), s.bestUsed.Load()
}

// PublishSolution stores the solution deep copies. Only the MarkSolved
// winner calls this, so unlike the best fields it is never clobbered
// by a straggling partial snapshot.
func (s *SharedState) PublishSolution(b *puzzle.Board, u *puzzle.UsedSet) {
	s.solBoard.Store(b)
	s.solUsed.Store(u)
}

// Solution returns the published solution board and used-set, nil
// until a worker solved and published.
func (s *SharedState) Solution() (*puzzle.Board, *puzzle.UsedSet) {
	return s.solBoard.Load(), s.solUsed.Load()
}

// EnableWorkers sizes the worker pool once; later calls are idempotent
// and return the established size.
func (s *SharedState) EnableWorkers(n int) int {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()
	if s.workers == 0 && n > 0 {
		s.workers = n
	}
	return s.workers
}

// Workers returns the established pool size, 0 if never enabled.
func (s *SharedState) Workers() int {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()
	return s.workers
}

// Reset clears every field. Meant for tests and between runs; never
// call it while workers are live.
func (s *SharedState) Reset() {
	s.solutionFound.Store(false)
	s.cancelled.Store(false)
	s.bestDepth.Store(0)
	s.bestBoard.Store(nil)
	s.bestUsed.Store(nil)
	s.bestWorker.Store(0)
	s.solBoard.Store(nil)
	s.solUsed.Store(nil)
	s.poolMu.Lock()
	s.workers = 0
	s.poolMu.Unlock()
}
