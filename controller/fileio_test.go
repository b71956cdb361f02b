package controller

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestSaveLoadDataMultiPage writes a file spanning several pages across
// more than one block and reads it back, guarding against the
// per-chunk padding mismatch between Encode's DataBytes() capacity and
// Decode's returned payload size that would otherwise inject or drop a
// byte at every page boundary but the last.
func TestSaveLoadDataMultiPage(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctx := context.Background()

	chunkSize := ctrl.payloadCapacity()
	if chunkSize <= 0 {
		t.Fatalf("payloadCapacity() = %d, want > 0", chunkSize)
	}
	pagesPerBlock := ctrl.geometry.PagesPerBlock

	// Enough bytes for several full chunks spanning more than one block,
	// plus a short final chunk to exercise the tail-trim path too.
	size := chunkSize*(2*pagesPerBlock+1) + chunkSize/2
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}

	if err := ctrl.SaveData(ctx, "roundtrip.bin", data); err != nil {
		t.Fatalf("SaveData: %v", err)
	}
	got, err := ctrl.LoadData(ctx)
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Fatalf("round-tripped data mismatch (-want +got):\n%s", diff)
	}
}
