package controller

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"nandctl/cache"
	"nandctl/config"
	"nandctl/nand"
	"nandctl/nanderr"
	"nandctl/wear"
)

func newLFUTestCache() *cache.Cache[CacheKey, []byte] {
	return cache.New[CacheKey, []byte](cache.Options[CacheKey, []byte]{
		Capacity: 2,
		Policy:   cache.LFU,
	})
}

func testGeometry() nand.Geometry {
	return nand.Geometry{PageSize: 256, PagesPerBlock: 4, NumBlocks: 64, OOBSize: 16, NumPlanes: 1}
}

func testConfig() config.Config {
	cfg := *config.Default()
	g := testGeometry()
	cfg.NAND = config.NANDConfig{PageSize: g.PageSize, PagesPerBlock: g.PagesPerBlock, NumBlocks: g.NumBlocks, OOBSize: g.OOBSize, NumPlanes: g.NumPlanes}
	cfg.ECC.Algorithm = "bch"
	cfg.ECC.BCH.M = 8
	cfg.ECC.BCH.T = 4
	cfg.Cache.Capacity = 8
	cfg.Wear.Threshold = 1000
	return cfg
}

func newTestController(t *testing.T) (*Controller, *nand.Simulator) {
	t.Helper()
	g := testGeometry()
	sim := nand.NewSimulator(g, nand.SimulatorOptions{}, 1)
	ctrl, err := New(context.Background(), testConfig(), sim, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ctrl, sim
}

// Scenario 1: happy-path write/read with BCH(8,4).
func TestHappyPathWriteRead(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctx := context.Background()

	payload := []byte("hello nand")
	if err := ctrl.WritePage(ctx, 0, 0, payload); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	got, err := ctrl.ReadPage(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

// Scenario 2: ECC correction recovers from a bounded bit error, and
// retries are exhausted (surfacing Uncorrectable) once corruption
// exceeds what the codec can fix on every attempt.
func TestReadRetryOnUncorrectable(t *testing.T) {
	ctrl, sim := newTestController(t)
	ctx := context.Background()
	ctrl.cfg.Firmware.MaxReadRetries = 3
	ctrl.cfg.Firmware.ReadRetry = true
	// sim.CorruptPage mutates the simulator's backing store directly,
	// bypassing the controller's cache, so a cached entry would mask the
	// corruption this test injects. Disable the cache to force every
	// ReadPage through the transport and ECC decode.
	ctrl.cache = nil

	payload := []byte("retry me")
	if err := ctrl.WritePage(ctx, 0, 0, payload); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	p, err := ctrl.translate(0)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	sim.CorruptPage(p, 0, 0, 0)
	got, err := ctrl.ReadPage(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ReadPage after single-bit corruption: %v", err)
	}
	if len(got) < len(payload) || string(got[:len(payload)]) != string(payload) {
		t.Fatalf("got %q, want prefix %q", got, payload)
	}

	for i := 0; i < 8; i++ {
		sim.CorruptPage(p, 0, i, i%8)
	}
	if _, err := ctrl.ReadPage(ctx, 0, 0); !nanderr.Is(err, nanderr.Uncorrectable) {
		t.Fatalf("expected Uncorrectable after exhausting retries on persistent corruption, got %v", err)
	}
}

// Scenario 3: a program-fail write error marks the physical block bad,
// and the controller transparently remaps the logical block to a
// different physical block on the next write (the point of bad-block
// management), rather than surfacing the failure again.
func TestBadBlockMarkingOnProgramFail(t *testing.T) {
	ctrl, sim := newTestController(t)
	ctx := context.Background()

	p, err := ctrl.translate(0)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	sim.ForcePhysicalBad(p)
	badCountBefore := ctrl.badBlocks.Count()

	if err := ctrl.WritePage(ctx, 0, 0, []byte("will fail")); err == nil {
		t.Fatal("expected write error on physically bad block")
	}
	bad, err := ctrl.badBlocks.IsBad(p)
	if err != nil {
		t.Fatalf("IsBad: %v", err)
	}
	if !bad {
		t.Fatal("expected block to be marked bad after program failure")
	}
	if got := ctrl.badBlocks.Count(); got != badCountBefore+1 {
		t.Fatalf("bad-block count = %d, want %d", got, badCountBefore+1)
	}

	remapped, err := ctrl.translate(0)
	if err != nil {
		t.Fatalf("translate after mark-bad: %v", err)
	}
	if remapped == p {
		t.Fatal("expected logical block 0 to remap away from the now-bad physical block")
	}

	payload := []byte("remapped write")
	if err := ctrl.WritePage(ctx, 0, 0, payload); err != nil {
		t.Fatalf("WritePage after remap: %v", err)
	}
	got, err := ctrl.ReadPage(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ReadPage after remap: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

// Scenario 4: wear-leveling trigger swaps the erase counters of the
// least- and most-worn eligible blocks, and the most-worn block's data
// survives the swap readable at its new (least-worn) physical home.
func TestWearLevelingTrigger(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctx := context.Background()

	least, err := ctrl.wearEngine.LeastWorn(ctrl.reservedSet, ctrl.isBadFunc())
	if err != nil {
		t.Fatalf("LeastWorn: %v", err)
	}
	mostCandidate := least + 1
	if ctrl.reservedSet[mostCandidate] {
		mostCandidate++
	}

	counts := make([]wear.BlockCount, 0, ctrl.geometry.NumBlocks)
	for b := 0; b < ctrl.geometry.NumBlocks; b++ {
		ec := uint32(10)
		if b == mostCandidate {
			ec = 1200
		}
		counts = append(counts, wear.BlockCount{Block: uint32(b), EraseCount: ec})
	}
	ctrl.wearEngine.Restore(counts)

	marker := []byte("most-worn page 0")
	if err := ctrl.transport.WritePage(ctx, mostCandidate, 0, marker); err != nil {
		t.Fatalf("seed write on most-worn block: %v", err)
	}

	ctrl.rebalance(ctx)

	leastCount, err := ctrl.wearEngine.Count(least)
	if err != nil {
		t.Fatalf("Count(least): %v", err)
	}
	mostCount, err := ctrl.wearEngine.Count(mostCandidate)
	if err != nil {
		t.Fatalf("Count(most): %v", err)
	}
	if leastCount != 1200 {
		t.Fatalf("Count(least) = %d, want 1200 after swap", leastCount)
	}
	if mostCount != 10 {
		t.Fatalf("Count(most) = %d, want 10 after swap", mostCount)
	}

	moved, err := ctrl.transport.ReadPage(ctx, least, 0)
	if err != nil {
		t.Fatalf("ReadPage(least): %v", err)
	}
	if string(moved[:len(marker)]) != string(marker) {
		t.Fatalf("data not copied to least-worn block: got %q", moved[:len(marker)])
	}
}

// Scenario 5: cache LFU eviction order.
func TestCacheLFUScenario(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctrl.cache = nil // rebuild with explicit small LFU cache for this test
	ctrl.cache = newLFUTestCache()

	a := CacheKey{Block: 10, Page: 0}
	b := CacheKey{Block: 11, Page: 0}
	c := CacheKey{Block: 12, Page: 0}

	ctrl.cache.Put(a, []byte{1}, 0)
	ctrl.cache.Put(b, []byte{2}, 0)
	ctrl.cache.Get(a)
	ctrl.cache.Get(a)
	ctrl.cache.Get(b)
	ctrl.cache.Put(c, []byte{3}, 0)

	if _, ok := ctrl.cache.Get(a); !ok {
		t.Fatal("expected a to survive LFU eviction")
	}
	if _, ok := ctrl.cache.Get(c); !ok {
		t.Fatal("expected c to survive LFU eviction")
	}
	if _, ok := ctrl.cache.Get(b); ok {
		t.Fatal("expected b to have been evicted as least-frequently-used")
	}
}

// Scenario 6: metadata persistence across a simulated restart.
func TestMetadataPersistenceAcrossRestart(t *testing.T) {
	g := testGeometry()
	sim := nand.NewSimulator(g, nand.SimulatorOptions{}, 2)
	cfg := testConfig()
	ctx := context.Background()

	ctrl, err := New(ctx, cfg, sim, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, b := range []int{3, 17, 42} {
		if err := ctrl.badBlocks.MarkBad(b); err != nil {
			t.Fatalf("MarkBad(%d): %v", b, err)
		}
	}
	ctrl.metaStore.MarkDirty()

	if err := ctrl.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	restarted, err := New(ctx, cfg, sim, zap.NewNop())
	if err != nil {
		t.Fatalf("New (restart): %v", err)
	}

	want := map[int]bool{3: true, 17: true, 42: true}
	for b := 0; b < g.NumBlocks; b++ {
		bad, err := restarted.badBlocks.IsBad(b)
		if err != nil {
			t.Fatalf("IsBad(%d): %v", b, err)
		}
		if bad != want[b] {
			t.Fatalf("block %d: IsBad = %v, want %v", b, bad, want[b])
		}
	}
}
