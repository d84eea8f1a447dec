package puzzle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseFile reads a puzzle definition from disk. See ParseReader.
func ParseFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	set, err := ParseReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// ParseReader reads a puzzle definition. Two line formats are accepted,
// chosen by the field count of the first piece line and then enforced
// for the rest of the file:
//
//	<id> <N> <E> <S> <W>   standard form, explicit ids
//	<N> <S> <W> <E>        Eternity-II form, ids assigned 1..n in order
//
// Whitespace is free-form and '#' starts a comment.
func ParseReader(r io.Reader) (*Set, error) {
	var pieces []Piece
	fieldCount := 0
	lineNo := 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fieldCount == 0 {
			if len(fields) != 4 && len(fields) != 5 {
				return nil, fmt.Errorf("%w: line %d has %d fields, want 4 or 5", ErrInvalidPuzzle, lineNo, len(fields))
			}
			fieldCount = len(fields)
		}
		if len(fields) != fieldCount {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrInvalidPuzzle, lineNo, len(fields), fieldCount)
		}

		vals := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d field %q is not an integer", ErrInvalidPuzzle, lineNo, f)
			}
			if v < 0 {
				return nil, fmt.Errorf("%w: line %d negative value %d", ErrInvalidPuzzle, lineNo, v)
			}
			vals[i] = v
		}

		var p Piece
		var err error
		if fieldCount == 5 {
			if vals[0] < 1 || vals[0] > 0xFFFF {
				return nil, fmt.Errorf("%w: line %d piece id %d", ErrInvalidPuzzle, lineNo, vals[0])
			}
			p, err = NewPiece(uint16(vals[0]), vals[1:])
		} else {
			// Eternity-II order is N S W E.
			n, s, w, e := vals[0], vals[1], vals[2], vals[3]
			p, err = NewPiece(uint16(len(pieces)+1), []int{n, e, s, w})
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidPuzzle, lineNo, err)
		}
		pieces = append(pieces, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewSet(pieces)
}
