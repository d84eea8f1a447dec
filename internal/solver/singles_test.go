package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingletonCascade(t *testing.T) {
	// Distinct colors leave exactly one candidate per cell once the
	// canonical corner is pinned; a single sweep call must chase the
	// whole chain to the bottom without any recursion.
	s := newTestSearcher(t, testGrid(t, 4, 4, true), 4, 4, DefaultOptions())

	placed, err := s.forceSingles()
	require.NoError(t, err)
	assert.Equal(t, 16, placed)
	assert.Equal(t, 16, s.board.FilledCount())
	assert.Equal(t, 16, s.used.Count())
	assert.Len(t, s.log, 16)

	// Every forced placement is the identity one.
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			pl, ok := s.board.At(r, c)
			require.True(t, ok)
			assert.Equal(t, uint16(r*4+c+1), pl.Piece)
			assert.Equal(t, uint8(0), pl.Rotation)
		}
	}
}

func TestSingletonIdempotent(t *testing.T) {
	s := newTestSearcher(t, testGrid(t, 4, 4, true), 4, 4, DefaultOptions())

	_, err := s.forceSingles()
	require.NoError(t, err)

	placed, err := s.forceSingles()
	require.NoError(t, err)
	assert.Equal(t, 0, placed, "second sweep must place nothing")
}

func TestSingletonDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.NoSingletons = true
	s := newTestSearcher(t, testGrid(t, 4, 4, true), 4, 4, opts)

	placed, err := s.forceSingles()
	require.NoError(t, err)
	assert.Equal(t, 0, placed)
	assert.Equal(t, 0, s.board.FilledCount())
}

func TestSingletonCountsStats(t *testing.T) {
	s := newTestSearcher(t, testGrid(t, 3, 3, true), 3, 3, DefaultOptions())

	placed, err := s.forceSingles()
	require.NoError(t, err)
	assert.Equal(t, 9, placed)
	assert.Equal(t, uint64(9), s.stats.Singletons.Load())
	assert.Equal(t, uint64(9), s.stats.Placements.Load())
}
