package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// Key prefixes
const (
	prefixRun      = "run/"
	prefixSolution = "solution/"
)

// RunSummary records one finished solve.
type RunSummary struct {
	Puzzle     string        `json:"puzzle"`
	Solved     bool          `json:"solved"`
	Cancelled  bool          `json:"cancelled"`
	BestDepth  int           `json:"best_depth"`
	Workers    int           `json:"workers"`
	Calls      uint64        `json:"calls"`
	Placements uint64        `json:"placements"`
	Backtracks uint64        `json:"backtracks"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Solution is a found complete tiling, stored as its placement list.
type Solution struct {
	Puzzle  string        `json:"puzzle"`
	Steps   []puzzle.Step `json:"steps"`
	FoundAt time.Time     `json:"found_at"`
}

// Archive wraps BadgerDB for run history and solution storage.
type Archive struct {
	db *badger.DB
}

// Open opens the archive under the given directory.
func Open(dir string) (*Archive, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

// OpenDefault opens the archive in the platform data directory.
func OpenDefault() (*Archive, error) {
	dir, err := DatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dir)
}

// Close closes the database.
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func runKey(puzzleName string, at time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", prefixRun, puzzleName, at.UnixNano()))
}

// RecordRun appends a run summary for its puzzle.
func (a *Archive) RecordRun(rs *RunSummary) error {
	if rs.FinishedAt.IsZero() {
		rs.FinishedAt = time.Now()
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(rs.Puzzle, rs.FinishedAt), data)
	})
}

// LastRun returns the most recent run summary for the puzzle, or nil
// when none was recorded.
func (a *Archive) LastRun(puzzleName string) (*RunSummary, error) {
	var last *RunSummary
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRun + puzzleName + "/")
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past the prefix range.
		seek := append([]byte(prefixRun+puzzleName+"/"), 0xFF)
		it.Seek(seek)
		if !it.ValidForPrefix(opts.Prefix) {
			return nil
		}
		return it.Item().Value(func(val []byte) error {
			last = &RunSummary{}
			return json.Unmarshal(val, last)
		})
	})
	return last, err
}

// Runs returns every recorded summary for the puzzle, oldest first.
func (a *Archive) Runs(puzzleName string) ([]*RunSummary, error) {
	var out []*RunSummary
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRun + puzzleName + "/")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rs := &RunSummary{}
				if err := json.Unmarshal(val, rs); err != nil {
					return err
				}
				out = append(out, rs)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// RecordSolution stores a complete tiling for the puzzle, replacing
// any earlier one.
func (a *Archive) RecordSolution(puzzleName string, steps []puzzle.Step) error {
	sol := Solution{Puzzle: puzzleName, Steps: steps, FoundAt: time.Now()}
	data, err := json.Marshal(&sol)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixSolution+puzzleName), data)
	})
}

// Solution returns the stored tiling for the puzzle, or nil when the
// puzzle was never solved here.
func (a *Archive) Solution(puzzleName string) (*Solution, error) {
	var sol *Solution
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixSolution + puzzleName))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			sol = &Solution{}
			return json.Unmarshal(val, sol)
		})
	})
	return sol, err
}
