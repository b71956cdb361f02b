package metadata

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"nandctl/nand"
)

func testStore() (*Store, nand.Geometry) {
	geom := nand.Geometry{PageSize: 128, PagesPerBlock: 4, NumBlocks: 16, OOBSize: 16}
	sim := nand.NewSimulator(geom, nand.SimulatorOptions{}, 1)
	reserved := ReservedBlocks{Metadata: 0, BadBlockTable: 1, WearLeveling: 2, Firmware: 3, Log: 4}
	return NewStore(sim, geom, reserved, Backups{}, zap.NewNop()), geom
}

func reservedSet() map[int]bool {
	return map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true}
}

func TestSaveLoadBadBlocks(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()
	bad := make([]bool, 16)
	bad[6] = true
	bad[9] = true
	store.SaveBadBlocks(ctx, bad)

	loaded, err := store.LoadBadBlocks(ctx, 16, reservedSet())
	if err != nil {
		t.Fatalf("LoadBadBlocks: %v", err)
	}
	if !loaded[6] || !loaded[9] {
		t.Fatalf("expected blocks 6 and 9 bad, got %v", loaded)
	}
	count := 0
	for _, b := range loaded {
		if b {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected exactly 2 bad blocks, got %d", count)
	}
}

func TestSaveLoadWearLevels(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()
	counts := make([]uint32, 16)
	counts[5] = 42
	store.SaveWearLevels(ctx, counts)

	loaded := store.LoadWearLevels(ctx, 16)
	if loaded[5] != 42 {
		t.Fatalf("WearLevels[5] = %d, want 42", loaded[5])
	}
}

func TestLoadBadBlocksFallsBackToFactoryScanWhenUninitialized(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()
	// Never saved: the reserved block reads back as all-0xFF, which fails
	// header validation and triggers the factory scan fallback.
	loaded, err := store.LoadBadBlocks(ctx, 16, reservedSet())
	if err != nil {
		t.Fatalf("LoadBadBlocks: %v", err)
	}
	if len(loaded) != 16 {
		t.Fatalf("expected 16 entries, got %d", len(loaded))
	}
}

func TestSaveLoadFileRecord(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()
	rec := FileRecord{Name: "firmware.bin", Size: 4096, Pages: 64}
	if err := store.SaveFileRecord(ctx, rec); err != nil {
		t.Fatalf("SaveFileRecord: %v", err)
	}
	loaded, err := store.LoadFileRecord(ctx)
	if err != nil {
		t.Fatalf("LoadFileRecord: %v", err)
	}
	if loaded.Name != rec.Name || loaded.Size != rec.Size || loaded.Pages != rec.Pages {
		t.Fatalf("LoadFileRecord = %+v, want %+v", loaded, rec)
	}
}

func TestFlushClearsDirtyFlag(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()
	store.MarkDirty()
	if !store.Dirty() {
		t.Fatal("expected dirty after MarkDirty")
	}
	store.Flush(ctx, make([]bool, 16), make([]uint32, 16))
	if store.Dirty() {
		t.Fatal("expected Flush to clear the dirty flag")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Signature: Signature, Version: Version, Type: TypeJSON, Size: 10}
	got, ok := UnmarshalHeader(h.MarshalBinary())
	if !ok || got != h {
		t.Fatalf("UnmarshalHeader = %+v, %v; want %+v, true", got, ok, h)
	}
}
