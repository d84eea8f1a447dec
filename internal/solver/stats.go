package solver

import "sync/atomic"

// Stats accumulates search counters. One instance is shared by every
// worker of a solve; all fields are atomic.
type Stats struct {
	Calls      atomic.Uint64
	Placements atomic.Uint64
	Backtracks atomic.Uint64
	Singletons atomic.Uint64
	DeadEnds   atomic.Uint64
	FitChecks  atomic.Uint64
}

// StatsSnapshot is a plain copy of the counters at one instant.
type StatsSnapshot struct {
	Calls      uint64
	Placements uint64
	Backtracks uint64
	Singletons uint64
	DeadEnds   uint64
	FitChecks  uint64
}

// Snapshot reads all counters. Reads are individually atomic, not
// transactional; totals may be mid-update while workers run.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Calls:      s.Calls.Load(),
		Placements: s.Placements.Load(),
		Backtracks: s.Backtracks.Load(),
		Singletons: s.Singletons.Load(),
		DeadEnds:   s.DeadEnds.Load(),
		FitChecks:  s.FitChecks.Load(),
	}
}
