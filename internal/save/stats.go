package save

import (
	"encoding/json"
	"os"
	"sync"
)

// Record is one line of the append-only JSON-lines stats log, written
// per save tick. An out-of-process monitor reads the file; the core
// never opens sockets.
type Record struct {
	TS           int64   `json:"ts"`
	Depth        int     `json:"depth"`
	Progress     float64 `json:"progress"`
	ComputeMs    int64   `json:"computeMs"`
	PiecesPerSec float64 `json:"piecesPerSec"`
	Backtracks   uint64  `json:"backtracks,omitempty"`
	Calls        uint64  `json:"calls,omitempty"`
	Placements   uint64  `json:"placements,omitempty"`
	Singletons   uint64  `json:"singletons,omitempty"`
	DeadEnds     uint64  `json:"deadEnds,omitempty"`
	FitChecks    uint64  `json:"fitChecks,omitempty"`
}

// StatsLog appends records to a JSON-lines file.
type StatsLog struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// OpenStatsLog opens (or creates) the log for appending.
func OpenStatsLog(path string) (*StatsLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &StatsLog{f: f, enc: json.NewEncoder(f)}, nil
}

// Append writes one record as a single line.
func (l *StatsLog) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(rec)
}

// Close releases the underlying file.
func (l *StatsLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
