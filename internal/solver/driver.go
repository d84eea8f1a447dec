package solver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// Fixed is a pre-placement (a corner hint or clue piece). Fixed cells
// never backtrack and never appear in the placement log.
type Fixed struct {
	Row, Col int
	Piece    uint16
	Rotation uint8
}

// Result summarizes a finished solve.
type Result struct {
	Solved    bool
	Cancelled bool
	BestDepth int
	// Board is the solution when Solved, otherwise the deepest
	// advisory snapshot any worker published, or a copy of the root
	// board when none was published (nil if the root never got built).
	Board   *puzzle.Board
	Stats   StatsSnapshot
	Elapsed time.Duration
	Workers int
}

// Driver owns a solve: it builds the index, rules and root worker,
// runs the search sequentially or fans it out over a bounded pool, and
// tears everything down on every exit path.
type Driver struct {
	rows, cols int
	set        *puzzle.Set
	shared     *SharedState
	opts       Options
	sink       Sink
	fixed      []Fixed
	seed       []puzzle.Step
	stats      *Stats
	nextID     atomic.Int32
}

// NewDriver validates the piece multiset against the grid and returns
// a driver bound to the shared state.
func NewDriver(rows, cols int, set *puzzle.Set, shared *SharedState, opts Options) (*Driver, error) {
	if err := set.Validate(rows, cols); err != nil {
		return nil, err
	}
	return &Driver{
		rows:   rows,
		cols:   cols,
		set:    set,
		shared: shared,
		opts:   opts,
		stats:  &Stats{},
	}, nil
}

// SetSink wires the checkpoint consumer (the save manager).
func (d *Driver) SetSink(sink Sink) {
	d.sink = sink
}

// Fix registers pre-placements applied before the search starts.
func (d *Driver) Fix(placements ...Fixed) {
	d.fixed = append(d.fixed, placements...)
}

// Seed replays a restored placement log before the search starts, so a
// resumed run does not re-explore the branches below it.
func (d *Driver) Seed(steps []puzzle.Step) {
	d.seed = append(d.seed, steps...)
}

// Solve runs the search to completion, cancellation or exhaustion.
// Context cancellation (timeout included) trips the shared cancelled
// flag; workers observe it and unwind normally.
func (d *Driver) Solve(ctx context.Context) (*Result, error) {
	start := time.Now()
	total := d.rows * d.cols

	root, err := d.buildRoot(start)
	if err != nil {
		if errors.Is(err, errDomainWipeout) {
			// The initial propagation proved the puzzle infeasible.
			log.Info().Msg("initial propagation wiped out a domain; puzzle has no solution")
			return d.result(nil, start, 1), nil
		}
		return nil, err
	}

	if ctx != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				d.shared.Cancel()
			case <-stop:
			}
		}()
	}

	if _, err := root.forceSingles(); err != nil {
		log.Info().Msg("singleton forcing wiped out a domain; puzzle has no solution")
		return d.result(root, start, 1), nil
	}
	log.Debug().
		Int("depth", root.board.FilledCount()).
		Int("total", total).
		Msg("root prepared")

	if root.board.FilledCount() == total {
		root.publishSolution()
		return d.result(root, start, 1), nil
	}

	workers := 1
	if d.opts.Parallel {
		n := d.opts.Workers
		if n <= 0 {
			n = DefaultWorkers()
		}
		workers = d.shared.EnableWorkers(n)
	} else {
		workers = d.shared.EnableWorkers(1)
	}

	if workers <= 1 {
		root.Search()
		return d.result(root, start, workers), nil
	}

	log.Info().Int("workers", workers).Msg("parallel solve")
	g := &errgroup.Group{}
	g.SetLimit(workers)
	g.Go(func() error {
		d.runTask(g, root, 0)
		return nil
	})
	// The pool drains on every exit path: solution, cancellation or
	// exhaustion all funnel through this join.
	_ = g.Wait()

	return d.result(root, start, workers), nil
}

// buildRoot seeds the root board with fixed pieces and any restored
// placement log, then initializes arc-consistent domains.
func (d *Driver) buildRoot(start time.Time) (*Searcher, error) {
	board := puzzle.NewBoard(d.rows, d.cols, d.set)
	used := puzzle.NewUsedSet(d.set.Len())

	for _, f := range d.fixed {
		if used.Has(f.Piece) {
			return nil, fmt.Errorf("%w: piece %d fixed twice", puzzle.ErrInvalidPuzzle, f.Piece)
		}
		if err := board.Place(f.Row, f.Col, f.Piece, f.Rotation); err != nil {
			return nil, err
		}
		used.Set(f.Piece)
	}

	var replayed []puzzle.Step
	for _, st := range d.seed {
		if used.Has(st.Piece) {
			return nil, fmt.Errorf("%w: piece %d placed twice", puzzle.ErrInvalidPuzzle, st.Piece)
		}
		if err := board.Place(st.Row, st.Col, st.Piece, st.Rotation); err != nil {
			return nil, err
		}
		used.Set(st.Piece)
		replayed = append(replayed, st)
	}

	index := NewEdgeIndex(d.set)
	rules := NewRules(d.rows, d.cols, d.set)
	domains, err := NewDomains(board, d.set, index, rules, used)
	if err != nil {
		return nil, err
	}
	d.stats.FitChecks.Add(domains.FitChecks)

	return &Searcher{
		id:      int(d.nextID.Add(1)),
		board:   board,
		used:    used,
		domains: domains,
		rules:   rules,
		index:   index,
		set:     d.set,
		log:     replayed,
		shared:  d.shared,
		stats:   d.stats,
		opts:    d.opts,
		sink:    d.sink,
		start:   start,
		total:   d.rows * d.cols,
	}, nil
}

// runTask is the fan-out step. Shallow tasks over wide domains fork
// one child per candidate, each with cloned state and the candidate
// pre-placed; everything else runs its subtree sequentially. TryGo
// keeps the pool bounded without deadlocking: when every slot is busy
// the child just runs inline.
func (d *Driver) runTask(g *errgroup.Group, w *Searcher, level int) {
	if w.shared.Stopped() {
		return
	}
	if level >= d.opts.ForkDepth || w.board.FilledCount() == w.total {
		w.Search()
		return
	}
	r, c, ok := w.nextCell()
	if !ok {
		w.Search()
		return
	}
	cands := append([]Candidate(nil), w.domains.Domain(r, c)...)
	if len(cands) < d.opts.MinForkWidth {
		w.Search()
		return
	}

	for _, cand := range cands {
		if w.shared.Stopped() {
			return
		}
		child := w.Fork(int(d.nextID.Add(1)))
		viable := child.place(r, c, cand) == nil
		if viable {
			_, err := child.forceSingles()
			viable = err == nil && child.domains.PropagateFrom(r, c) == nil
		}
		if !viable {
			// The clone is discarded whole; nothing to unwind.
			continue
		}
		if !g.TryGo(func() error {
			d.runTask(g, child, level+1)
			return nil
		}) {
			d.runTask(g, child, level+1)
		}
	}
}

// result assembles the final report from the shared state.
func (d *Driver) result(root *Searcher, start time.Time, workers int) *Result {
	solved := d.shared.Solved()
	board, _ := d.shared.Best()
	if solved {
		if sb, _ := d.shared.Solution(); sb != nil {
			board = sb
		}
	}
	if board == nil && root != nil {
		board = root.board.Clone()
	}
	res := &Result{
		Solved:    solved,
		Cancelled: d.shared.Cancelled() && !solved,
		BestDepth: d.shared.BestDepth(),
		Board:     board,
		Stats:     d.stats.Snapshot(),
		Elapsed:   time.Since(start),
		Workers:   workers,
	}
	log.Info().
		Bool("solved", res.Solved).
		Bool("cancelled", res.Cancelled).
		Int("bestDepth", res.BestDepth).
		Uint64("calls", res.Stats.Calls).
		Uint64("placements", res.Stats.Placements).
		Dur("elapsed", res.Elapsed).
		Msg("solve finished")
	return res
}
