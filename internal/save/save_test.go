package save

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaurentZamofing/eternity-solver/internal/puzzle"
	"github.com/LaurentZamofing/eternity-solver/internal/solver"
)

// checkpointFixture fakes a worker checkpoint at the given depth on a
// 4x4 grid.
func checkpointFixture(depth int) solver.Checkpoint {
	used := puzzle.NewUsedSet(16)
	steps := make([]puzzle.Step, depth)
	for i := 0; i < depth; i++ {
		steps[i] = puzzle.Step{Row: i / 4, Col: i % 4, Piece: uint16(i + 1)}
		used.Set(uint16(i + 1))
	}
	return solver.Checkpoint{
		Worker:  1,
		Rows:    4,
		Cols:    4,
		Depth:   depth,
		Steps:   steps,
		Used:    used,
		Elapsed: time.Second,
	}
}

func sampleState(t *testing.T) *State {
	t.Helper()
	used := puzzle.NewUsedSet(16)
	steps := []puzzle.Step{
		{Row: 0, Col: 0, Piece: 1, Rotation: 0},
		{Row: 0, Col: 1, Piece: 2, Rotation: 3},
		{Row: 1, Col: 0, Piece: 5, Rotation: 1},
	}
	for _, s := range steps {
		used.Set(s.Piece)
	}
	return &State{
		Timestamp: time.Now(),
		Rows:      4,
		Cols:      4,
		Steps:     steps,
		Used:      used,
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	st := sampleState(t)
	data := EncodeBinary(st)
	require.True(t, HasBinaryMagic(data))

	got, err := DecodeBinary(data)
	require.NoError(t, err)
	assert.True(t, st.Equal(got), "binary round trip changed the state")
}

func TestBinaryRejectsBadMagic(t *testing.T) {
	data := EncodeBinary(sampleState(t))
	binary.LittleEndian.PutUint32(data, 0xDEADBEEF)
	_, err := DecodeBinary(data)
	assert.ErrorIs(t, err, ErrCorruptSave)
}

func TestBinaryRejectsUnknownVersion(t *testing.T) {
	data := EncodeBinary(sampleState(t))
	binary.LittleEndian.PutUint32(data[4:], 99)
	_, err := DecodeBinary(data)
	assert.ErrorIs(t, err, ErrCorruptSave)
}

func TestBinaryRejectsTruncated(t *testing.T) {
	data := EncodeBinary(sampleState(t))
	for _, n := range []int{3, 10, 27, len(data) - 1} {
		_, err := DecodeBinary(data[:n])
		assert.ErrorIs(t, err, ErrCorruptSave, "prefix of %d bytes", n)
	}
}

func TestTextRoundTrip(t *testing.T) {
	st := sampleState(t)

	var buf bytes.Buffer
	require.NoError(t, EncodeText(&buf, "sample", st, 1234))

	got, err := DecodeText(buf.Bytes())
	require.NoError(t, err)

	// The text format stores neither dimensions nor timestamp.
	assert.Zero(t, got.Rows)
	assert.Zero(t, got.Cols)
	assert.Equal(t, st.Steps, got.Steps)
	assert.True(t, equalUsed(st.Used, got.Used))
}

func TestTextRejectsSpaceSeparatedCoordinates(t *testing.T) {
	input := `
PLACEMENTS
0 0 1 0
END_PLACEMENTS
UNUSED
END_UNUSED
`
	_, err := DecodeText([]byte(input))
	assert.ErrorIs(t, err, ErrCorruptSave)
}

func TestTextParsesCommentsAndWhitespace(t *testing.T) {
	input := `
# Puzzle: demo
# Depth: 2
# TotalComputeTimeMs: 17

PLACEMENTS
  0,0 1 0
0,1 2 3    # inline comment
END_PLACEMENTS
UNUSED
3
4
END_UNUSED
`
	st, err := DecodeText([]byte(input))
	require.NoError(t, err)
	require.Len(t, st.Steps, 2)
	assert.Equal(t, puzzle.Step{Row: 0, Col: 1, Piece: 2, Rotation: 3}, st.Steps[1])
	assert.True(t, st.Used.Has(1))
	assert.True(t, st.Used.Has(2))
	assert.False(t, st.Used.Has(3))
	assert.False(t, st.Used.Has(4))
}

func TestTextRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing sections", "PLACEMENTS\nEND_PLACEMENTS\n"},
		{"stray content", "hello\nPLACEMENTS\nEND_PLACEMENTS\nUNUSED\nEND_UNUSED\n"},
		{"piece both placed and unused", "PLACEMENTS\n0,0 1 0\nEND_PLACEMENTS\nUNUSED\n1\nEND_UNUSED\n"},
		{"bad rotation", "PLACEMENTS\n0,0 1 7\nEND_PLACEMENTS\nUNUSED\nEND_UNUSED\n"},
		{"duplicate placement", "PLACEMENTS\n0,0 1 0\n0,1 1 0\nEND_PLACEMENTS\nUNUSED\nEND_UNUSED\n"},
		{"unterminated", "PLACEMENTS\n0,0 1 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeText([]byte(tt.input))
			assert.ErrorIs(t, err, ErrCorruptSave)
		})
	}
}

func TestRestore(t *testing.T) {
	pieces := make([]puzzle.Piece, 0, 4)
	for i, e := range [][4]puzzle.Color{
		{0, 1, 1, 0}, {0, 0, 1, 1}, {1, 1, 0, 0}, {1, 0, 0, 1},
	} {
		pieces = append(pieces, puzzle.Piece{ID: uint16(i + 1), Edges: e})
	}
	set, err := puzzle.NewSet(pieces)
	require.NoError(t, err)

	used := puzzle.NewUsedSet(4)
	used.Set(1)
	used.Set(2)
	st := &State{
		Rows: 2, Cols: 2,
		Steps: []puzzle.Step{
			{Row: 0, Col: 0, Piece: 1, Rotation: 0},
			{Row: 0, Col: 1, Piece: 2, Rotation: 0},
		},
		Used: used,
	}

	b := puzzle.NewBoard(2, 2, set)
	require.NoError(t, Restore(st, b))
	assert.Equal(t, 2, b.FilledCount())
	pl, ok := b.At(0, 1)
	require.True(t, ok)
	assert.Equal(t, uint16(2), pl.Piece)

	// Grid mismatch.
	assert.ErrorIs(t, Restore(st, puzzle.NewBoard(3, 3, set)), ErrCorruptSave)

	// A placed piece marked unused is a contradiction.
	bad := &State{Rows: 2, Cols: 2, Steps: st.Steps, Used: puzzle.NewUsedSet(4)}
	assert.ErrorIs(t, Restore(bad, puzzle.NewBoard(2, 2, set)), ErrCorruptSave)

	// Unknown piece id.
	bad = &State{Rows: 2, Cols: 2, Steps: []puzzle.Step{{Row: 0, Col: 0, Piece: 9, Rotation: 0}}}
	assert.ErrorIs(t, Restore(bad, puzzle.NewBoard(2, 2, set)), ErrCorruptSave)
}

func TestManagerCurrentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, "demo")
	require.NoError(t, err)

	cp := checkpointFixture(8)
	m.SaveCurrent(cp)

	st, err := m.Load()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 8, st.Depth())
	assert.Equal(t, 4, st.Rows)
	assert.Equal(t, 4, st.Cols)

	// No stray temp file survives the atomic rename.
	_, err = os.Stat(m.CurrentPath() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestManagerLoadMissing(t *testing.T) {
	m, err := NewManager(t.TempDir(), "demo")
	require.NoError(t, err)

	st, err := m.Load()
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = m.LoadBest()
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestManagerBestIdempotent(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, "demo")
	require.NoError(t, err)

	m.SaveBest(checkpointFixture(10))
	path := filepath.Join(dir, "demo_best_10")
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	m.SaveBest(checkpointFixture(10))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "an existing depth file must never be rewritten")
}

func TestManagerBestPruning(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, "demo")
	require.NoError(t, err)
	m.SetKeepBest(3)

	for depth := 1; depth <= 6; depth++ {
		m.SaveBest(checkpointFixture(depth))
	}

	depths, err := m.bestDepths()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6}, depths, "pruning keeps the deepest milestones")

	st, err := m.LoadBest()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 6, st.Depth())
}

func TestManagerLoadTextFallback(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, "legacy")
	require.NoError(t, err)

	text := "PLACEMENTS\n0,0 1 0\nEND_PLACEMENTS\nUNUSED\n2\nEND_UNUSED\n"
	require.NoError(t, os.WriteFile(m.CurrentPath(), []byte(text), 0o644))

	st, err := m.Load()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.Depth())
	assert.True(t, st.Used.Has(1))
}

func TestStatsLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.jsonl")
	sl, err := OpenStatsLog(path)
	require.NoError(t, err)

	require.NoError(t, sl.Append(Record{TS: 1, Depth: 5, Progress: 31.25}))
	require.NoError(t, sl.Append(Record{TS: 2, Depth: 10, Progress: 62.5}))
	require.NoError(t, sl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"depth":5`)
	assert.Contains(t, string(lines[1]), `"depth":10`)
}
