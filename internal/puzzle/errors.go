package puzzle

import "errors"

var (
	// ErrInvalidPiece reports a malformed piece definition.
	ErrInvalidPiece = errors.New("puzzle: invalid piece")

	// ErrInvalidPuzzle reports an unparseable puzzle file or a piece
	// multiset that cannot tile the requested grid.
	ErrInvalidPuzzle = errors.New("puzzle: invalid puzzle")

	// ErrOutOfBounds reports a cell index outside the board.
	ErrOutOfBounds = errors.New("puzzle: cell out of bounds")
)
