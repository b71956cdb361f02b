// Package controller composes the ECC, bad-block, wear-leveling, cache,
// compression and metadata subsystems into the NAND control plane: the
// logical-to-physical read/write/erase pipeline, per spec.md §4.10.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"nandctl/badblock"
	"nandctl/cache"
	"nandctl/compress"
	"nandctl/config"
	"nandctl/ecc"
	"nandctl/executor"
	"nandctl/metadata"
	"nandctl/nand"
	"nandctl/nanderr"
	"nandctl/wear"
)

// CacheKey addresses a cached page by its physical location, per
// spec.md §3's "Cache entry. Keyed by the pair (physical_block, page)".
type CacheKey struct {
	Block int
	Page  int
}

// defaultReserved is the fixed role-to-block mapping of spec.md §3.
func defaultReserved() metadata.ReservedBlocks {
	return metadata.ReservedBlocks{Metadata: 0, BadBlockTable: 1, WearLeveling: 2, Firmware: 3, Log: 4}
}

const numReservedRoles = 5

// Controller is the NAND control plane: logical-to-physical translation,
// the read/write/erase pipeline, scrambling, statistics, and file I/O.
type Controller struct {
	cfg         config.Config
	geometry    nand.Geometry
	reserved    metadata.ReservedBlocks
	reservedSet map[int]bool
	userBlocks  int

	transport  nand.Transport
	eccCodec   *ecc.Codec
	badBlocks  *badblock.Manager
	wearEngine *wear.Engine
	cache      *cache.Cache[CacheKey, []byte]
	compressor compress.Compressor
	pool       *executor.Pool
	metaStore  *metadata.Store
	logger     *zap.Logger

	// metaMu is the controller's top-level lock guarding combined
	// bad-block + wear-table updates (rebalance), per spec.md §5's
	// {metadata_lock -> cache_lock -> stats_lock} ordering: it is always
	// acquired before any cache operation performed within the same
	// critical section, never after.
	metaMu sync.Mutex

	statsMu sync.Mutex
	stats   statsData
}

type statsData struct {
	reads, writes, erases       uint64
	cacheHits, cacheMisses      uint64
	eccCorrections              uint64
	compressionRatioSum         float64
	compressionSamples          uint64
	startTime                   time.Time
}

// New constructs a Controller against transport, using cfg for geometry
// and policy. It loads the bad-block and wear tables from the reserved
// blocks (falling back to a factory scan / zeroed counters), per
// spec.md §4.9.
func New(ctx context.Context, cfg config.Config, transport nand.Transport, logger *zap.Logger) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	geometry := nand.Geometry{
		PageSize:      cfg.NAND.PageSize,
		PagesPerBlock: cfg.NAND.PagesPerBlock,
		NumBlocks:     cfg.NAND.NumBlocks,
		OOBSize:       cfg.NAND.OOBSize,
		NumPlanes:     cfg.NAND.NumPlanes,
	}
	reserved := defaultReserved()
	reservedSet := map[int]bool{
		reserved.Metadata: true, reserved.BadBlockTable: true, reserved.WearLeveling: true,
		reserved.Firmware: true, reserved.Log: true,
	}
	userBlocks := geometry.NumBlocks - numReservedRoles

	eccCodec, err := buildECC(cfg.ECC)
	if err != nil {
		return nil, errors.Wrap(err, "controller: build ecc codec")
	}

	if err := transport.Initialize(ctx); err != nil {
		return nil, errors.Wrap(err, "controller: transport initialize")
	}

	metaStore := metadata.NewStore(transport, geometry, reserved, metadata.Backups{}, logger)

	badBlocks := badblock.New(geometry.NumBlocks)
	loadedBad, err := metaStore.LoadBadBlocks(ctx, geometry.NumBlocks, reservedSet)
	if err != nil {
		return nil, errors.Wrap(err, "controller: load bad-block table")
	}
	badBlocks.Restore(loadedBad)

	wearEngine := wear.New(geometry.NumBlocks, cfg.Wear.Threshold)
	loadedWear := metaStore.LoadWearLevels(ctx, geometry.NumBlocks)
	pairs := make([]wear.BlockCount, len(loadedWear))
	for b, count := range loadedWear {
		pairs[b] = wear.BlockCount{Block: uint32(b), EraseCount: count}
	}
	wearEngine.Restore(pairs)

	var pageCache *cache.Cache[CacheKey, []byte]
	if cfg.Cache.Enabled {
		pageCache = cache.New[CacheKey, []byte](cache.Options[CacheKey, []byte]{
			Capacity:   cfg.Cache.Capacity,
			DefaultTTL: time.Duration(cfg.Cache.TTLMS) * time.Millisecond,
			Policy:     cachePolicyFromString(cfg.Cache.Policy),
		})
	}

	var compressor compress.Compressor
	if cfg.Compression.Enabled {
		compressor, err = compress.New(compress.Algorithm(cfg.Compression.Algorithm))
		if err != nil {
			return nil, errors.Wrap(err, "controller: build compressor")
		}
	}

	workers := cfg.Parallelism.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	return &Controller{
		cfg:         cfg,
		geometry:    geometry,
		reserved:    reserved,
		reservedSet: reservedSet,
		userBlocks:  userBlocks,
		transport:   transport,
		eccCodec:    eccCodec,
		badBlocks:   badBlocks,
		wearEngine:  wearEngine,
		cache:       pageCache,
		compressor:  compressor,
		pool:        executor.New(workers),
		metaStore:   metaStore,
		logger:      logger,
		stats:       statsData{startTime: timeNow()},
	}, nil
}

// timeNow is a thin indirection point; kept as a plain function (not a
// struct field) since the controller itself needs no injected clock —
// only cache.Cache's tests do.
func timeNow() time.Time { return time.Now() }

func buildECC(cfg config.ECCConfig) (*ecc.Codec, error) {
	switch cfg.Algorithm {
	case "ldpc":
		return ecc.New(ecc.Config{
			Algorithm: ecc.LDPC,
			LDPC: ecc.LDPCParams{
				N: cfg.LDPC.N, Dv: cfg.LDPC.Dv, Dc: cfg.LDPC.Dc,
				Systematic: cfg.LDPC.Systematic, MaxIterations: cfg.LDPC.MaxIterations,
				EarlyTermination: cfg.LDPC.EarlyTermination,
			},
		})
	default:
		return ecc.New(ecc.Config{
			Algorithm: ecc.BCH,
			BCH:       ecc.BCHParams{M: cfg.BCH.M, T: cfg.BCH.T},
		})
	}
}

func cachePolicyFromString(s string) cache.Policy {
	switch s {
	case "lfu":
		return cache.LFU
	case "fifo":
		return cache.FIFO
	case "ttl":
		return cache.TTL
	default:
		return cache.LRU
	}
}

// isBadFunc adapts badBlocks.IsBad to the func(int) bool shape wear.Engine
// expects, swallowing range errors as "not bad" since wear queries only
// ever see in-range blocks sourced from the same geometry.
func (c *Controller) isBadFunc() func(int) bool {
	return func(b int) bool {
		bad, err := c.badBlocks.IsBad(b)
		return err == nil && bad
	}
}

// translate maps a logical block to a physical one, scanning forward
// (wrapping) for the first good, non-reserved block — generalizing
// badblock.Manager.NextGood, which knows nothing of reserved blocks, with
// a reserved-block exclusion applied here.
func (c *Controller) translate(logical int) (int, error) {
	if logical < 0 || logical >= c.userBlocks {
		return 0, nanderr.Errorf(nanderr.OutOfRange, "controller: logical block %d out of range [0,%d)", logical, c.userBlocks)
	}
	n := c.geometry.NumBlocks
	start := logical + numReservedRoles
	for i := 0; i < n; i++ {
		p := (start + i) % n
		if c.reservedSet[p] {
			continue
		}
		bad, err := c.badBlocks.IsBad(p)
		if err != nil {
			return 0, err
		}
		if !bad {
			return p, nil
		}
	}
	return 0, nanderr.New(nanderr.NoGoodBlocks, "controller: no good user blocks remain")
}

// payloadCapacity is the largest file-data chunk that survives a round
// trip through compression (if enabled) and ECC encoding.
func (c *Controller) payloadCapacity() int {
	capacity := c.eccCodec.DataBytes()
	if c.compressor != nil {
		capacity-- // one byte reserved for compress.Indicator
	}
	if capacity < 0 {
		capacity = 0
	}
	return capacity
}
