// Package nand defines the abstract transport the controller drives, the
// on-NAND geometry, and a simulator used by tests and the CLI in place of
// real hardware, per spec.md §6.
package nand

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"nandctl/nanderr"
)

// Geometry holds the fixed layout constants of a NAND device.
type Geometry struct {
	PageSize      int
	PagesPerBlock int
	NumBlocks     int
	OOBSize       int
	NumPlanes     int
}

// BlockSizeBytes is page_size * pages_per_block. Honoring the explicit
// PagesPerBlock field (rather than reusing a generic "block_size" name)
// avoids the bytes-vs-pages ambiguity some NAND datasheets leave implicit.
func (g Geometry) BlockSizeBytes() int {
	return g.PageSize * g.PagesPerBlock
}

// BlockInfo describes a single block's transport-reported state.
type BlockInfo struct {
	EraseCount uint32
	Bad        bool
}

// PageInfo describes a single page's transport-reported state.
type PageInfo struct {
	Programmed bool
}

// Status is the transport's self-report, per spec.md §6.
type Status struct {
	Ready          bool
	WriteProtected bool
	Error          bool
	Stats          map[string]int64
	BlockInfo      *BlockInfo
	PageInfo       *PageInfo
}

// Transport is the abstract NAND wire interface the controller drives.
// Treated as externally serialized per-die: the controller never
// multiplexes concurrent commands onto the same physical block.
type Transport interface {
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	ReadPage(ctx context.Context, block, page int) ([]byte, error)
	WritePage(ctx context.Context, block, page int, data []byte) error
	EraseBlock(ctx context.Context, block int) error
	Status(ctx context.Context, block, page int) (Status, error)
}

// Sentinel failure kinds matching spec.md §4.10's bad-block indicator
// sets. Exposed as structured errors first, per the spec's own guidance
// to "prefer a structured error code from the transport when available
// and fall back to substring matching only as a compatibility layer".
var (
	ErrProgramFail    = errors.New("program fail")
	ErrVerifyFail     = errors.New("verify fail")
	ErrEraseFail      = errors.New("erase fail")
	ErrStatusError    = errors.New("status error")
	ErrWriteProtected = errors.New("write protected")
)

// writeIndicators and eraseIndicators are the bad-block indicator sets
// from spec.md §4.10: a write/erase failure matching one of these marks
// the physical block bad before the error is surfaced.
var writeIndicators = []error{ErrProgramFail, ErrStatusError, ErrWriteProtected, ErrVerifyFail}
var eraseIndicators = []error{ErrEraseFail, ErrStatusError, ErrWriteProtected}

// IsBadBlockIndicator reports whether err should cause the controller to
// mark its physical block bad, for the given operation kind. It checks
// errors.Is against the structured sentinels first, then falls back to
// substring matching on the error text for transports (or legacy
// messages) that don't thread a structured error through.
func IsBadBlockIndicator(err error, erase bool) bool {
	if err == nil {
		return false
	}
	if nanderr.Is(err, nanderr.Timeout) {
		return true
	}
	indicators := writeIndicators
	if erase {
		indicators = eraseIndicators
	}
	for _, ind := range indicators {
		if errors.Is(err, ind) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, ind := range indicators {
		if strings.Contains(msg, ind.Error()) {
			return true
		}
	}
	return false
}
