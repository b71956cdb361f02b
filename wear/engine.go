// Package wear tracks per-block erase counters and decides when and how
// to rebalance wear across blocks, per spec.md §4.5.
package wear

import (
	"math"
	"sync"

	"nandctl/nanderr"
)

// Engine guards erase_count[0..numBlocks) behind a single lock.
type Engine struct {
	mu          sync.RWMutex
	eraseCount  []uint32
	threshold   uint32
}

// New creates an Engine for numBlocks physical blocks, all starting at
// zero erase cycles, with the given should_level() threshold.
func New(numBlocks int, threshold uint32) *Engine {
	return &Engine{eraseCount: make([]uint32, numBlocks), threshold: threshold}
}

// Update increments erase_count[b].
func (e *Engine) Update(b int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b < 0 || b >= len(e.eraseCount) {
		return nanderr.Errorf(nanderr.OutOfRange, "wear: block %d out of range [0,%d)", b, len(e.eraseCount))
	}
	e.eraseCount[b]++
	return nil
}

// Count returns the current erase count for block b.
func (e *Engine) Count(b int) (uint32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if b < 0 || b >= len(e.eraseCount) {
		return 0, nanderr.Errorf(nanderr.OutOfRange, "wear: block %d out of range [0,%d)", b, len(e.eraseCount))
	}
	return e.eraseCount[b], nil
}

// eligible reports whether block b is a valid swap candidate: not
// reserved, and not bad.
func eligible(b int, reserved map[int]bool, isBad func(int) bool) bool {
	if reserved[b] {
		return false
	}
	return !isBad(b)
}

// LeastWorn returns the arg-min erase count over non-reserved, non-bad
// blocks.
func (e *Engine) LeastWorn(reserved map[int]bool, isBad func(int) bool) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	best := -1
	for b, count := range e.eraseCount {
		if !eligible(b, reserved, isBad) {
			continue
		}
		if best == -1 || count < e.eraseCount[best] {
			best = b
		}
	}
	if best == -1 {
		return 0, nanderr.New(nanderr.NoGoodBlocks, "wear: no eligible blocks for least-worn query")
	}
	return best, nil
}

// MostWorn returns the arg-max erase count over non-reserved, non-bad
// blocks.
func (e *Engine) MostWorn(reserved map[int]bool, isBad func(int) bool) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	best := -1
	for b, count := range e.eraseCount {
		if !eligible(b, reserved, isBad) {
			continue
		}
		if best == -1 || count > e.eraseCount[best] {
			best = b
		}
	}
	if best == -1 {
		return 0, nanderr.New(nanderr.NoGoodBlocks, "wear: no eligible blocks for most-worn query")
	}
	return best, nil
}

// ShouldLevel reports whether max-min erase count, over eligible blocks,
// exceeds the configured threshold.
func (e *Engine) ShouldLevel(reserved map[int]bool, isBad func(int) bool) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var min, max uint32
	first := true
	for b, count := range e.eraseCount {
		if !eligible(b, reserved, isBad) {
			continue
		}
		if first {
			min, max = count, count
			first = false
			continue
		}
		if count < min {
			min = count
		}
		if count > max {
			max = count
		}
	}
	if first {
		return false
	}
	return max-min > e.threshold
}

// SwapCounts exchanges the erase counters of blocks a and b, used after a
// physical data swap during rebalance.
func (e *Engine) SwapCounts(a, b int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a < 0 || a >= len(e.eraseCount) || b < 0 || b >= len(e.eraseCount) {
		return nanderr.New(nanderr.OutOfRange, "wear: swap index out of range")
	}
	e.eraseCount[a], e.eraseCount[b] = e.eraseCount[b], e.eraseCount[a]
	return nil
}

// Snapshot returns a copy of (block, erase_count) pairs for every block,
// for persistence.
func (e *Engine) Snapshot() []BlockCount {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]BlockCount, len(e.eraseCount))
	for b, count := range e.eraseCount {
		out[b] = BlockCount{Block: uint32(b), EraseCount: count}
	}
	return out
}

// Restore replaces all counters from persisted (block, erase_count) pairs.
func (e *Engine) Restore(counts []BlockCount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, bc := range counts {
		if int(bc.Block) < len(e.eraseCount) {
			e.eraseCount[bc.Block] = bc.EraseCount
		}
	}
}

// Stats summarizes min/max/mean/stddev over eligible blocks, for
// device_info().
type Stats struct {
	Min, Max   uint32
	Mean       float64
	StdDev     float64
}

// ComputeStats computes Stats over non-reserved, non-bad blocks.
func (e *Engine) ComputeStats(reserved map[int]bool, isBad func(int) bool) Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var sum float64
	var n int
	var min, max uint32
	first := true
	for b, count := range e.eraseCount {
		if !eligible(b, reserved, isBad) {
			continue
		}
		if first {
			min, max = count, count
			first = false
		}
		if count < min {
			min = count
		}
		if count > max {
			max = count
		}
		sum += float64(count)
		n++
	}
	if n == 0 {
		return Stats{}
	}
	mean := sum / float64(n)
	var variance float64
	for b, count := range e.eraseCount {
		if !eligible(b, reserved, isBad) {
			continue
		}
		d := float64(count) - mean
		variance += d * d
	}
	variance /= float64(n)
	return Stats{Min: min, Max: max, Mean: mean, StdDev: math.Sqrt(variance)}
}

// BlockCount pairs a block number with its erase counter, the persisted
// wear-table record shape of spec.md §4.9.
type BlockCount struct {
	Block      uint32
	EraseCount uint32
}
