package save

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
)

// The legacy text format, line-oriented with '#' comments:
//
//	# Puzzle: <name>
//	# Depth: <n>
//	# TotalComputeTimeMs: <n>
//	PLACEMENTS
//	<row>,<col> <piece-id> <rotation>
//	...
//	END_PLACEMENTS
//	UNUSED
//	<piece-id>
//	...
//	END_UNUSED
//
// The comma between row and col is mandatory; space-separated
// coordinates are rejected.

// EncodeText writes a state in the legacy text format.
func EncodeText(w io.Writer, name string, st *State, computeMs int64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Puzzle: %s\n", name)
	fmt.Fprintf(bw, "# Depth: %d\n", len(st.Steps))
	fmt.Fprintf(bw, "# TotalComputeTimeMs: %d\n", computeMs)
	fmt.Fprintln(bw, "PLACEMENTS")
	for _, s := range st.Steps {
		fmt.Fprintf(bw, "%d,%d %d %d\n", s.Row, s.Col, s.Piece, s.Rotation)
	}
	fmt.Fprintln(bw, "END_PLACEMENTS")
	fmt.Fprintln(bw, "UNUSED")
	if st.Used != nil {
		for id := 1; id <= st.Used.Len(); id++ {
			if !st.Used.Has(uint16(id)) {
				fmt.Fprintf(bw, "%d\n", id)
			}
		}
	}
	fmt.Fprintln(bw, "END_UNUSED")
	return bw.Flush()
}

// DecodeText parses the legacy format. The reloaded state has no grid
// dimensions (the format never stored them) and a zero timestamp; the
// used bitset is rebuilt from the two id lists.
func DecodeText(data []byte) (*State, error) {
	st := &State{}
	var unused []uint16
	section := ""
	sawPlacements, sawUnused := false, false

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "PLACEMENTS":
			section = "placements"
			sawPlacements = true
			continue
		case "END_PLACEMENTS":
			if section != "placements" {
				return nil, fmt.Errorf("%w: line %d: unexpected END_PLACEMENTS", ErrCorruptSave, lineNo)
			}
			section = ""
			continue
		case "UNUSED":
			section = "unused"
			sawUnused = true
			continue
		case "END_UNUSED":
			if section != "unused" {
				return nil, fmt.Errorf("%w: line %d: unexpected END_UNUSED", ErrCorruptSave, lineNo)
			}
			section = ""
			continue
		}

		switch section {
		case "placements":
			step, err := parsePlacementLine(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptSave, lineNo, err)
			}
			st.Steps = append(st.Steps, step)
		case "unused":
			id, err := strconv.ParseUint(line, 10, 16)
			if err != nil || id == 0 {
				return nil, fmt.Errorf("%w: line %d: bad piece id %q", ErrCorruptSave, lineNo, line)
			}
			unused = append(unused, uint16(id))
		default:
			return nil, fmt.Errorf("%w: line %d: stray content %q", ErrCorruptSave, lineNo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !sawPlacements || !sawUnused || section != "" {
		return nil, fmt.Errorf("%w: incomplete sections", ErrCorruptSave)
	}

	total := len(st.Steps) + len(unused)
	used := puzzle.NewUsedSet(total)
	for _, s := range st.Steps {
		if int(s.Piece) > total {
			return nil, fmt.Errorf("%w: placed id %d exceeds %d pieces", ErrCorruptSave, s.Piece, total)
		}
		if used.Has(s.Piece) {
			return nil, fmt.Errorf("%w: piece %d placed twice", ErrCorruptSave, s.Piece)
		}
		used.Set(s.Piece)
	}
	for _, id := range unused {
		if int(id) > total {
			return nil, fmt.Errorf("%w: unused id %d exceeds %d pieces", ErrCorruptSave, id, total)
		}
		if used.Has(id) {
			return nil, fmt.Errorf("%w: piece %d both placed and unused", ErrCorruptSave, id)
		}
	}
	st.Used = used
	return st, nil
}

// parsePlacementLine reads "<row>,<col> <piece-id> <rotation>". A
// space-separated coordinate pair is a historical bug; reject it.
func parsePlacementLine(line string) (puzzle.Step, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return puzzle.Step{}, fmt.Errorf("want 3 fields, got %d (coordinates must be row,col)", len(fields))
	}
	coord := strings.Split(fields[0], ",")
	if len(coord) != 2 {
		return puzzle.Step{}, fmt.Errorf("coordinate %q must be row,col", fields[0])
	}
	row, err := strconv.Atoi(coord[0])
	if err != nil || row < 0 {
		return puzzle.Step{}, fmt.Errorf("bad row %q", coord[0])
	}
	col, err := strconv.Atoi(coord[1])
	if err != nil || col < 0 {
		return puzzle.Step{}, fmt.Errorf("bad col %q", coord[1])
	}
	id, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil || id == 0 {
		return puzzle.Step{}, fmt.Errorf("bad piece id %q", fields[1])
	}
	rot, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil || rot > 3 {
		return puzzle.Step{}, fmt.Errorf("bad rotation %q", fields[2])
	}
	return puzzle.Step{Row: row, Col: col, Piece: uint16(id), Rotation: uint8(rot)}, nil
}
