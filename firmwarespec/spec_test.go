package firmwarespec

import (
	"testing"

	"nandctl/ecc"
)

func validSpec() Spec {
	return Spec{
		FirmwareVersion: "1.2.3",
		NAND:            NANDConfig{PageSize: 4096, BlockSizeBytes: 4096 * 64, NumBlocks: 1024},
		ECC:             ECCConfig{Algorithm: ecc.BCH, BCH: ecc.BCHParams{M: 8, T: 4}},
		WearLevel:       WearLevelConfig{Threshold: 1000},
	}
}

func TestValidSpecPasses(t *testing.T) {
	if err := Validate(validSpec()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestInvalidFirmwareVersion(t *testing.T) {
	s := validSpec()
	s.FirmwareVersion = "v1.2"
	err := Validate(s)
	if err == nil {
		t.Fatal("expected error for malformed firmware_version")
	}
}

func TestBlockSizeNotMultipleOfPageSize(t *testing.T) {
	s := validSpec()
	s.NAND.BlockSizeBytes = 4097
	if err := Validate(s); err == nil {
		t.Fatal("expected error for non-multiple block size")
	}
}

func TestBCHTExceedsLimit(t *testing.T) {
	s := validSpec()
	s.ECC.BCH = ecc.BCHParams{M: 3, T: 100}
	if err := Validate(s); err == nil {
		t.Fatal("expected error for t exceeding 2^(m-1)-1")
	}
}

func TestLDPCDivisibility(t *testing.T) {
	s := validSpec()
	s.ECC.Algorithm = ecc.LDPC
	s.ECC.LDPC = ecc.LDPCParams{N: 10, Dv: 3, Dc: 4}
	if err := Validate(s); err == nil {
		t.Fatal("expected error for n*dv not divisible by dc")
	}
}

func TestWearThresholdTooHigh(t *testing.T) {
	s := validSpec()
	s.WearLevel.Threshold = 999999999
	if err := Validate(s); err == nil {
		t.Fatal("expected error for threshold exceeding 100*num_blocks")
	}
}

func TestAggregatesMultipleViolations(t *testing.T) {
	s := validSpec()
	s.FirmwareVersion = "bad"
	s.NAND.BlockSizeBytes = 4097
	verr, ok := Validate(s).(*ValidationError)
	if !ok {
		t.Fatal("expected *ValidationError")
	}
	if len(verr.Violations) < 2 {
		t.Fatalf("expected at least 2 violations, got %d", len(verr.Violations))
	}
}
