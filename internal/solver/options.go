package solver

import "runtime"

// Options tunes a solve. Fields are used as given: a zero ForkDepth
// disables fan-out and a zero SaveInterval disables checkpoints. Only
// Workers treats 0 as DefaultWorkers().
type Options struct {
	// Parallel fans the shallow search out over a bounded worker pool.
	Parallel bool
	// Workers bounds the pool; 0 means DefaultWorkers().
	Workers int
	// ForkDepth is the fan-out cutoff: tasks fork only while fewer
	// than this many fork levels lie above them.
	ForkDepth int
	// MinForkWidth is the smallest domain worth splitting into tasks.
	MinForkWidth int
	// SaveInterval gates checkpoints to depths that are multiples of it.
	SaveInterval int
	// NoSingletons disables the forced-move sweeps (diagnostics only).
	NoSingletons bool
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		ForkDepth:    2,
		MinForkWidth: 10,
		SaveInterval: 5,
	}
}

// DefaultWorkers sizes the pool at three quarters of the cores,
// clamped to [4, 32].
func DefaultWorkers() int {
	n := runtime.NumCPU() * 3 / 4
	if n < 4 {
		n = 4
	}
	if n > 32 {
		n = 32
	}
	return n
}
