package nand

import (
	"context"
	"math/rand"

	"nandctl/nanderr"
)

// SimulatorOptions mirrors spec.md §6's simulator-only config keys
// ({simulation.enabled, error_rate, initial_bad_block_rate}).
type SimulatorOptions struct {
	Enabled             bool
	ErrorRate           float64 // per-byte probability that a read flips one bit of that byte, simulating cell wear
	InitialBadBlockRate float64 // fraction of blocks pre-marked bad at construction
}

// Simulator is an in-memory Transport standing in for real hardware, used
// by tests and the CLI's default configuration.
type Simulator struct {
	geometry Geometry
	opts     SimulatorOptions
	rng      *rand.Rand

	pages       [][][]byte // [block][page] -> page_size+oob_size bytes, nil if unprogrammed since last erase
	eraseCount  []uint32
	physicalBad []bool // hardware-level permanent failure, distinct from the controller's learned bad-block table
}

// NewSimulator constructs a Simulator for the given geometry. seed makes
// error injection and initial-bad-block selection reproducible.
func NewSimulator(geometry Geometry, opts SimulatorOptions, seed int64) *Simulator {
	s := &Simulator{
		geometry:    geometry,
		opts:        opts,
		rng:         rand.New(rand.NewSource(seed)),
		pages:       make([][][]byte, geometry.NumBlocks),
		eraseCount:  make([]uint32, geometry.NumBlocks),
		physicalBad: make([]bool, geometry.NumBlocks),
	}
	for b := range s.pages {
		s.pages[b] = make([][]byte, geometry.PagesPerBlock)
	}
	if opts.Enabled && opts.InitialBadBlockRate > 0 {
		for b := 0; b < geometry.NumBlocks; b++ {
			if s.rng.Float64() < opts.InitialBadBlockRate {
				s.physicalBad[b] = true
			}
		}
	}
	return s
}

func (s *Simulator) Initialize(ctx context.Context) error { return nil }
func (s *Simulator) Shutdown(ctx context.Context) error   { return nil }

// ForcePhysicalBad marks block permanently failed at the hardware level,
// for tests that need to exercise the controller's bad-block-marking
// path deterministically rather than via ErrorRate/InitialBadBlockRate.
func (s *Simulator) ForcePhysicalBad(block int) {
	if block >= 0 && block < len(s.physicalBad) {
		s.physicalBad[block] = true
	}
}

// CorruptPage flips the given bit of stored page data, for tests
// exercising ECC correction/retry deterministically instead of via
// ErrorRate's random injection.
func (s *Simulator) CorruptPage(block, page, byteIdx, bitIdx int) {
	if block < 0 || block >= len(s.pages) || page < 0 || page >= len(s.pages[block]) {
		return
	}
	stored := s.pages[block][page]
	if stored == nil || byteIdx < 0 || byteIdx >= len(stored) {
		return
	}
	stored[byteIdx] ^= 1 << uint(bitIdx%8)
}

func (s *Simulator) checkBounds(block, page int) error {
	if block < 0 || block >= s.geometry.NumBlocks {
		return nanderr.Errorf(nanderr.OutOfRange, "nand: block %d out of range [0,%d)", block, s.geometry.NumBlocks)
	}
	if page < 0 || page >= s.geometry.PagesPerBlock {
		return nanderr.Errorf(nanderr.OutOfRange, "nand: page %d out of range [0,%d)", page, s.geometry.PagesPerBlock)
	}
	return nil
}

func (s *Simulator) ReadPage(ctx context.Context, block, page int) ([]byte, error) {
	if err := s.checkBounds(block, page); err != nil {
		return nil, err
	}
	if s.physicalBad[block] {
		return nil, ErrStatusError
	}
	stored := s.pages[block][page]
	if stored == nil {
		blank := make([]byte, s.geometry.PageSize+s.geometry.OOBSize)
		for i := range blank {
			blank[i] = 0xFF
		}
		return blank, nil
	}
	out := make([]byte, len(stored))
	copy(out, stored)
	if s.opts.Enabled && s.opts.ErrorRate > 0 {
		for i := range out {
			if s.rng.Float64() < s.opts.ErrorRate {
				out[i] ^= 1 << uint(s.rng.Intn(8))
			}
		}
	}
	return out, nil
}

func (s *Simulator) WritePage(ctx context.Context, block, page int, data []byte) error {
	if err := s.checkBounds(block, page); err != nil {
		return err
	}
	if s.physicalBad[block] {
		return ErrProgramFail
	}
	if s.pages[block][page] != nil {
		return ErrVerifyFail
	}
	buf := make([]byte, s.geometry.PageSize+s.geometry.OOBSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	copy(buf, data)
	s.pages[block][page] = buf
	return nil
}

func (s *Simulator) EraseBlock(ctx context.Context, block int) error {
	if block < 0 || block >= s.geometry.NumBlocks {
		return nanderr.Errorf(nanderr.OutOfRange, "nand: block %d out of range [0,%d)", block, s.geometry.NumBlocks)
	}
	if s.physicalBad[block] {
		return ErrEraseFail
	}
	for p := range s.pages[block] {
		s.pages[block][p] = nil
	}
	s.eraseCount[block]++
	return nil
}

func (s *Simulator) Status(ctx context.Context, block, page int) (Status, error) {
	st := Status{
		Ready: true,
		Stats: map[string]int64{"num_blocks": int64(s.geometry.NumBlocks)},
	}
	if block >= 0 && block < s.geometry.NumBlocks {
		st.BlockInfo = &BlockInfo{EraseCount: s.eraseCount[block], Bad: s.physicalBad[block]}
		if page >= 0 && page < s.geometry.PagesPerBlock {
			st.PageInfo = &PageInfo{Programmed: s.pages[block][page] != nil}
		}
	}
	return st, nil
}
