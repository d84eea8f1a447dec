package solver

import (
	"time"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// Checkpoint captures one worker's progress for persistence: the
// chronological placement log, the used-set and the counters. Steps
// and Used are private copies, safe to hold after the call returns.
type Checkpoint struct {
	Worker     int
	Rows, Cols int
	Depth      int
	Steps      []puzzle.Step
	Used       *puzzle.UsedSet
	Elapsed    time.Duration
	Stats      StatsSnapshot
}

// Sink consumes periodic checkpoints. Implementations must tolerate
// concurrent calls from multiple workers and must never fail the
// search: I/O errors are theirs to log and swallow.
type Sink interface {
	// SaveCurrent overwrites the rolling "current" snapshot.
	SaveCurrent(cp Checkpoint)
	// SaveBest records a milestone snapshot for a new best depth.
	SaveBest(cp Checkpoint)
}
