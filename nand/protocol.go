package nand

import (
	"context"

	"nandctl/nanderr"
)

// Command bytes of the ONFI-like command sequence referenced informatively
// by spec.md §6. Documented here for a real hardware transport to use;
// the simulator and the controller's own tests never exercise these.
const (
	CmdRead        byte = 0x00
	CmdReadConfirm byte = 0x30
	CmdPageProgram byte = 0x80
	CmdProgramConfirm byte = 0x10
	CmdBlockErase  byte = 0x60
	CmdEraseConfirm byte = 0xD0
	CmdReadStatus  byte = 0x70
	CmdReadID      byte = 0x90
	CmdReset       byte = 0xFF
)

// Status register bits.
const (
	StatusFail  byte = 0x01
	StatusReady byte = 0x40
	StatusWP    byte = 0x80
)

// HardwareTransport is a documented extension point for driving a real
// NAND die over SPI/parallel IO. Wiring an actual bus driver is out of
// scope here (spec.md §1 treats the concrete transport as an external
// collaborator); every method fails with nanderr.Transport so a caller
// that mistakenly selects it gets a clear, typed error instead of a nil
// pointer dereference.
type HardwareTransport struct{}

func (h *HardwareTransport) Initialize(ctx context.Context) error {
	return nanderr.New(nanderr.Transport, "nand: hardware transport not implemented")
}

func (h *HardwareTransport) Shutdown(ctx context.Context) error {
	return nanderr.New(nanderr.Transport, "nand: hardware transport not implemented")
}

func (h *HardwareTransport) ReadPage(ctx context.Context, block, page int) ([]byte, error) {
	return nil, nanderr.New(nanderr.Transport, "nand: hardware transport not implemented")
}

func (h *HardwareTransport) WritePage(ctx context.Context, block, page int, data []byte) error {
	return nanderr.New(nanderr.Transport, "nand: hardware transport not implemented")
}

func (h *HardwareTransport) EraseBlock(ctx context.Context, block int) error {
	return nanderr.New(nanderr.Transport, "nand: hardware transport not implemented")
}

func (h *HardwareTransport) Status(ctx context.Context, block, page int) (Status, error) {
	return Status{}, nanderr.New(nanderr.Transport, "nand: hardware transport not implemented")
}
