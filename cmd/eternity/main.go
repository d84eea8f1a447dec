// Command eternity solves square edge-matching puzzles.
//
// Usage:
//
//	eternity [flags] <puzzle-file>
//
// Exit codes: 0 solved, 1 unsolved within the timeout, 2 error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
	"github.com/LaurentZamofing/eternity-solver/internal/save"
	"github.com/LaurentZamofing/eternity-solver/internal/solver"
	"github.com/LaurentZamofing/eternity-solver/internal/storage"
)

const appVersion = "1.0.0"

var (
	verbose      = flag.Bool("v", false, "verbose (debug) logging")
	quiet        = flag.Bool("q", false, "quiet: errors only")
	parallel     = flag.Bool("p", false, "parallel search")
	threads      = flag.Int("t", 0, "worker count (0 = auto)")
	timeout      = flag.Int("timeout", 0, "give up after this many seconds (0 = none)")
	noSingletons = flag.Bool("no-singletons", false, "disable singleton forcing")
	resume       = flag.Bool("resume", true, "resume from the current save if one exists")
	showVersion  = flag.Bool("version", false, "print version and exit")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println("eternity " + appVersion)
		return 0
	}
	if flag.NArg() != 1 {
		usage()
		return 2
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	switch {
	case *quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case *verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	path, err := resolvePuzzle(flag.Arg(0))
	if err != nil {
		return fail(err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	set, err := puzzle.ParseFile(path)
	if err != nil {
		return fail(err)
	}
	rows, cols, err := set.Dimensions()
	if err != nil {
		return fail(err)
	}
	log.Info().Str("puzzle", name).Int("pieces", set.Len()).
		Int("rows", rows).Int("cols", cols).Msg("puzzle loaded")

	saveDir, err := storage.SaveDir()
	if err != nil {
		return fail(err)
	}
	manager, err := save.NewManager(saveDir, name)
	if err != nil {
		return fail(err)
	}
	if sl, err := save.OpenStatsLog(filepath.Join(saveDir, name+"_stats.jsonl")); err != nil {
		log.Warn().Err(err).Msg("stats log disabled")
	} else {
		manager.SetStatsLog(sl)
		defer sl.Close()
	}

	opts := solver.DefaultOptions()
	opts.Parallel = *parallel
	opts.Workers = *threads
	opts.NoSingletons = *noSingletons

	shared := solver.NewSharedState()
	driver, err := solver.NewDriver(rows, cols, set, shared, opts)
	if err != nil {
		return fail(err)
	}
	driver.SetSink(manager)

	if *resume {
		if err := seedFromSave(driver, manager, rows, cols, set); err != nil {
			return fail(err)
		}
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*timeout)*time.Second)
		defer cancel()
	}

	result, err := driver.Solve(ctx)
	if err != nil {
		return fail(err)
	}

	recordRun(name, result)

	if result.Solved {
		matching, max := result.Board.Score()
		log.Info().Int("matching", matching).Int("max", max).Msg("solved")
		return 0
	}
	log.Info().Int("bestDepth", result.BestDepth).Msg("unsolved")
	return 1
}

// seedFromSave replays the rolling snapshot, falling back to the best
// milestones in descending depth order when it is corrupt. A fully
// unreadable save tier means starting fresh, not failing.
func seedFromSave(driver *solver.Driver, manager *save.Manager, rows, cols int, set *puzzle.Set) error {
	st, err := manager.Load()
	if err != nil {
		log.Warn().Err(err).Msg("current save unreadable, trying best milestones")
		if st, err = manager.LoadBest(); err != nil {
			return err
		}
	}
	if st == nil {
		return nil
	}
	// Validate the replay on a scratch board before seeding the solve.
	if err := save.Restore(st, puzzle.NewBoard(rows, cols, set)); err != nil {
		log.Warn().Err(err).Msg("save does not replay cleanly, starting fresh")
		return nil
	}
	driver.Seed(st.Steps)
	log.Info().Int("depth", st.Depth()).Msg("resuming from save")
	return nil
}

// recordRun archives the finished run; archive trouble never changes
// the exit code.
func recordRun(name string, result *solver.Result) {
	archive, err := storage.OpenDefault()
	if err != nil {
		log.Warn().Err(err).Msg("run archive unavailable")
		return
	}
	defer archive.Close()

	rs := &storage.RunSummary{
		Puzzle:     name,
		Solved:     result.Solved,
		Cancelled:  result.Cancelled,
		BestDepth:  result.BestDepth,
		Workers:    result.Workers,
		Calls:      result.Stats.Calls,
		Placements: result.Stats.Placements,
		Backtracks: result.Stats.Backtracks,
		Duration:   result.Elapsed,
		FinishedAt: time.Now(),
	}
	if err := archive.RecordRun(rs); err != nil {
		log.Warn().Err(err).Msg("run summary not recorded")
	}
	if result.Solved && result.Board != nil {
		if err := archive.RecordSolution(name, stepsOf(result.Board)); err != nil {
			log.Warn().Err(err).Msg("solution not recorded")
		}
	}
}

// stepsOf flattens a solved board into row-major placement steps.
func stepsOf(b *puzzle.Board) []puzzle.Step {
	steps := make([]puzzle.Step, 0, b.Rows()*b.Cols())
	for r := 0; r < b.Rows(); r++ {
		for c := 0; c < b.Cols(); c++ {
			if pl, ok := b.At(r, c); ok {
				steps = append(steps, puzzle.Step{Row: r, Col: c, Piece: pl.Piece, Rotation: pl.Rotation})
			}
		}
	}
	return steps
}

// resolvePuzzle accepts either a file path or a bare puzzle name; a
// name is looked up under <data-dir>/puzzles/<name>.txt.
func resolvePuzzle(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	if strings.ContainsRune(arg, os.PathSeparator) || filepath.Ext(arg) != "" {
		return "", fmt.Errorf("puzzle file %s not found", arg)
	}
	dataDir, err := storage.DataDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dataDir, "puzzles", arg+".txt")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("puzzle %q not found (looked for %s)", arg, path)
	}
	return path, nil
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, "eternity:", err)
	return 2
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: eternity [flags] <puzzle-file>

Solves a square edge-matching puzzle described by the given file.

Flags:
`)
	flag.PrintDefaults()
}
