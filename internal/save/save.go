// Package save persists search snapshots: a rolling "current" file
// overwritten on every tick plus milestone "best" files per depth, in
// a compact binary format (a legacy text format is accepted on load).
// It also owns the append-only JSON-lines stats log.
package save

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// ErrCorruptSave reports a save file with a bad magic, an unsupported
// version or malformed text.
var ErrCorruptSave = errors.New("save: corrupt save file")

// State is one persisted search snapshot: the chronological placement
// log and the used-piece bitset.
type State struct {
	Timestamp time.Time
	// Rows and Cols are zero when the legacy text format, which does
	// not store them, was loaded.
	Rows, Cols int
	Steps      []puzzle.Step
	Used       *puzzle.UsedSet
}

// Depth returns the number of recorded placements.
func (st *State) Depth() int {
	return len(st.Steps)
}

// Equal compares two states field by field, timestamps truncated to
// millisecond granularity (the precision the binary format stores).
func (st *State) Equal(o *State) bool {
	if st.Rows != o.Rows || st.Cols != o.Cols || len(st.Steps) != len(o.Steps) {
		return false
	}
	if st.Timestamp.UnixMilli() != o.Timestamp.UnixMilli() {
		return false
	}
	for i := range st.Steps {
		if st.Steps[i] != o.Steps[i] {
			return false
		}
	}
	return equalUsed(st.Used, o.Used)
}

// equalUsed compares used bitsets by content. The binary format only
// stores whole bytes, so the reloaded set may cover a few more ids
// than the original; trailing zero bits are insignificant.
func equalUsed(a, b *puzzle.UsedSet) bool {
	var ab, bb []byte
	if a != nil {
		ab = a.Bytes()
	}
	if b != nil {
		bb = b.Bytes()
	}
	for len(ab) > 0 && ab[len(ab)-1] == 0 {
		ab = ab[:len(ab)-1]
	}
	for len(bb) > 0 && bb[len(bb)-1] == 0 {
		bb = bb[:len(bb)-1]
	}
	return bytes.Equal(ab, bb)
}

// Restore replays the state's placements onto an empty board, in
// stored order, and cross-checks the used bitset: a placed piece must
// not be marked unused, no piece may be placed twice, and every piece
// the bitset marks used must be placed, so placements plus unused
// pieces cover the whole set. The board's piece set stands in for the
// "all pieces" universe.
func Restore(st *State, b *puzzle.Board) error {
	if st.Rows != 0 && (st.Rows != b.Rows() || st.Cols != b.Cols()) {
		return fmt.Errorf("%w: saved grid %dx%d, board %dx%d",
			ErrCorruptSave, st.Rows, st.Cols, b.Rows(), b.Cols())
	}
	total := b.Set().Len()
	seen := puzzle.NewUsedSet(total)
	for _, step := range st.Steps {
		if step.Piece < 1 || int(step.Piece) > total {
			return fmt.Errorf("%w: placement of unknown piece %d", ErrCorruptSave, step.Piece)
		}
		if seen.Has(step.Piece) {
			return fmt.Errorf("%w: piece %d placed twice", ErrCorruptSave, step.Piece)
		}
		if st.Used != nil && !st.Used.Has(step.Piece) {
			return fmt.Errorf("%w: piece %d both placed and unused", ErrCorruptSave, step.Piece)
		}
		if err := b.Place(step.Row, step.Col, step.Piece, step.Rotation); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptSave, err)
		}
		seen.Set(step.Piece)
	}
	if st.Used != nil {
		// The bitset rounds up to whole bytes; any bit past the piece
		// universe must be clear.
		for id := total + 1; id <= st.Used.Len(); id++ {
			if st.Used.Has(uint16(id)) {
				return fmt.Errorf("%w: bitset marks unknown piece %d", ErrCorruptSave, id)
			}
		}
		if n := st.Used.Count(); n != len(st.Steps) {
			return fmt.Errorf("%w: bitset marks %d pieces used, %d placed",
				ErrCorruptSave, n, len(st.Steps))
		}
	}
	return nil
}
