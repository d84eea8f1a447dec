package save

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LaurentZamofing/eternity-solver/internal/solver"
)

// DefaultKeepBest is how many best-depth milestone files survive
// pruning.
const DefaultKeepBest = 10

// Manager is the two-tier checkpoint writer for one puzzle name. It
// implements solver.Sink. Save errors never reach the search: they are
// logged and swallowed, losing one checkpoint is acceptable.
type Manager struct {
	dir  string
	name string
	keep int

	mu    sync.Mutex
	stats *StatsLog
}

// NewManager creates the save directory if needed and returns a
// manager for the puzzle name.
func NewManager(dir, name string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Manager{dir: dir, name: name, keep: DefaultKeepBest}, nil
}

// SetKeepBest overrides how many milestone files pruning retains.
func (m *Manager) SetKeepBest(k int) {
	if k > 0 {
		m.keep = k
	}
}

// SetStatsLog attaches the JSON-lines stats sink; every current-save
// tick appends one record.
func (m *Manager) SetStatsLog(sl *StatsLog) {
	m.stats = sl
}

// CurrentPath returns the rolling snapshot path.
func (m *Manager) CurrentPath() string {
	return filepath.Join(m.dir, m.name+"_current")
}

func (m *Manager) bestPath(depth int) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s_best_%d", m.name, depth))
}

// SaveCurrent overwrites the rolling snapshot. The write goes to a
// temp file first and lands with an atomic rename, so a power cut
// leaves either the old or the new file, never a torn one.
func (m *Manager) SaveCurrent(cp solver.Checkpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := stateOf(cp)
	if err := writeAtomic(m.CurrentPath(), EncodeBinary(st)); err != nil {
		log.Warn().Err(err).Str("puzzle", m.name).Msg("current checkpoint lost")
		return
	}
	if m.stats != nil {
		if err := m.stats.Append(recordOf(cp)); err != nil {
			log.Warn().Err(err).Str("puzzle", m.name).Msg("stats record lost")
		}
	}
}

// SaveBest records a milestone file for the checkpoint depth. Writes
// are idempotent: an existing file for that depth is left alone. When
// more than the keep-limit exist the smallest depths are deleted;
// cleanup is best-effort and may race with another worker, so a
// missing file during deletion is silently fine.
func (m *Manager) SaveBest(cp solver.Checkpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.bestPath(cp.Depth)
	if _, err := os.Stat(path); err == nil {
		return
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("puzzle", m.name).Msg("best checkpoint skipped")
		return
	}
	if err := writeAtomic(path, EncodeBinary(stateOf(cp))); err != nil {
		log.Warn().Err(err).Str("puzzle", m.name).Int("depth", cp.Depth).Msg("best checkpoint lost")
		return
	}
	log.Debug().Str("puzzle", m.name).Int("depth", cp.Depth).Msg("best checkpoint written")
	m.pruneBest()
}

func (m *Manager) pruneBest() {
	depths, err := m.bestDepths()
	if err != nil {
		return
	}
	for len(depths) > m.keep {
		_ = os.Remove(m.bestPath(depths[0]))
		depths = depths[1:]
	}
}

// bestDepths lists existing milestone depths, ascending.
func (m *Manager) bestDepths() ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(m.dir, m.name+"_best_*"))
	if err != nil {
		return nil, err
	}
	prefix := m.name + "_best_"
	var depths []int
	for _, path := range matches {
		suffix := strings.TrimPrefix(filepath.Base(path), prefix)
		d, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		depths = append(depths, d)
	}
	sort.Ints(depths)
	return depths, nil
}

// Load reads the rolling snapshot. Returns (nil, nil) when no file
// exists, ErrCorruptSave when the content is unreadable.
func (m *Manager) Load() (*State, error) {
	return loadFile(m.CurrentPath())
}

// LoadBest tries the milestone files in descending depth order and
// returns the first one that loads, or (nil, nil) when none does.
func (m *Manager) LoadBest() (*State, error) {
	depths, err := m.bestDepths()
	if err != nil {
		return nil, err
	}
	for i := len(depths) - 1; i >= 0; i-- {
		st, err := loadFile(m.bestPath(depths[i]))
		if err != nil {
			log.Warn().Err(err).Int("depth", depths[i]).Msg("skipping unreadable best file")
			continue
		}
		if st != nil {
			return st, nil
		}
	}
	return nil, nil
}

// loadFile sniffs the format by magic: binary when present, legacy
// text otherwise.
func loadFile(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if HasBinaryMagic(data) {
		return DecodeBinary(data)
	}
	return DecodeText(data)
}

// writeAtomic writes data to a sibling temp file and renames it over
// the target.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// stateOf converts a checkpoint into its persisted form.
func stateOf(cp solver.Checkpoint) *State {
	return &State{
		Timestamp: time.Now(),
		Rows:      cp.Rows,
		Cols:      cp.Cols,
		Steps:     cp.Steps,
		Used:      cp.Used,
	}
}

// recordOf converts a checkpoint into one stats-log line.
func recordOf(cp solver.Checkpoint) Record {
	total := cp.Rows * cp.Cols
	progress := 0.0
	if total > 0 {
		progress = float64(cp.Depth) / float64(total) * 100
	}
	pps := 0.0
	if secs := cp.Elapsed.Seconds(); secs > 0 {
		pps = float64(cp.Stats.Placements) / secs
	}
	return Record{
		TS:           time.Now().UnixMilli(),
		Depth:        cp.Depth,
		Progress:     progress,
		ComputeMs:    cp.Elapsed.Milliseconds(),
		PiecesPerSec: pps,
		Backtracks:   cp.Stats.Backtracks,
		Calls:        cp.Stats.Calls,
		Placements:   cp.Stats.Placements,
		Singletons:   cp.Stats.Singletons,
		DeadEnds:     cp.Stats.DeadEnds,
		FitChecks:    cp.Stats.FitChecks,
	}
}
