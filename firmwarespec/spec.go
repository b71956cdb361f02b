// Package firmwarespec validates a firmware descriptor against the rules
// in spec.md §6's "Firmware-spec validation" paragraph, supplementing the
// distilled spec with a concrete Go type grounded on
// original_source/src/firmware_integration/firmware_specs.py's
// {firmware_version, nand_config, ecc_config, bbm_config, wl_config}
// shape.
package firmwarespec

import (
	"regexp"

	"nandctl/ecc"
)

var semVerPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// NANDConfig mirrors the original's nand_config block.
type NANDConfig struct {
	PageSize      int
	BlockSizeBytes int
	NumBlocks     int
}

// ECCConfig mirrors the original's ecc_config block.
type ECCConfig struct {
	Algorithm ecc.Algorithm
	BCH       ecc.BCHParams
	LDPC      ecc.LDPCParams
}

// WearLevelConfig mirrors the original's wl_config block.
type WearLevelConfig struct {
	Threshold uint32
}

// Spec is the full firmware descriptor, combining the original's
// {firmware_version, nand_config, ecc_config, bbm_config, wl_config}
// top-level keys into one struct (bbm_config carries no tunables beyond
// the bad-block table itself, so it is represented only as NumBlocks via
// NANDConfig).
type Spec struct {
	FirmwareVersion string
	NAND            NANDConfig
	ECC             ECCConfig
	WearLevel       WearLevelConfig
}

// Validate checks every rule from spec.md §6 and aggregates all
// violations rather than stopping at the first, so the CLI's
// validate-firmware subcommand can report everything wrong at once.
func Validate(spec Spec) error {
	var violations []string

	if !semVerPattern.MatchString(spec.FirmwareVersion) {
		violations = append(violations, "firmware_version must match ^\\d+\\.\\d+\\.\\d+$, got "+quote(spec.FirmwareVersion))
	}

	if spec.NAND.PageSize <= 0 {
		violations = append(violations, "nand.page_size must be positive")
	} else if spec.NAND.BlockSizeBytes%spec.NAND.PageSize != 0 {
		violations = append(violations, "nand.block_size_bytes must be a multiple of page_size")
	}

	switch spec.ECC.Algorithm {
	case ecc.BCH:
		maxT := (1 << uint(spec.ECC.BCH.M-1)) - 1
		if spec.ECC.BCH.T > maxT {
			violations = append(violations, "ecc.bch.t exceeds 2^(m-1)-1 for the given m")
		}
	case ecc.LDPC:
		if spec.ECC.LDPC.Dc == 0 || (spec.ECC.LDPC.N*spec.ECC.LDPC.Dv)%spec.ECC.LDPC.Dc != 0 {
			violations = append(violations, "ecc.ldpc.n*dv must be divisible by dc")
		}
	default:
		violations = append(violations, "ecc.algorithm must be bch or ldpc")
	}

	if uint64(spec.WearLevel.Threshold) > uint64(100)*uint64(spec.NAND.NumBlocks) {
		violations = append(violations, "wl_config.threshold must be <= 100 * num_blocks")
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// ValidationError aggregates every rule violation found by Validate.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	msg := "firmwarespec: invalid spec:"
	for _, v := range e.Violations {
		msg += "\n  - " + v
	}
	return msg
}

func quote(s string) string {
	return "\"" + s + "\""
}
