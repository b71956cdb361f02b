package controller

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"nandctl/executor"
	"nandctl/wear"
)

// rebalance performs one round of wear leveling, per spec.md §4.5: erase
// the least-worn eligible block, copy every page of the most-worn
// eligible block onto it, swap their erase counters, invalidate cache
// entries for both, and mark metadata dirty. Failures are logged, not
// returned, matching afterSuccessfulProgramOrErase's caller contract.
func (c *Controller) rebalance(ctx context.Context) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()

	isBad := c.isBadFunc()
	least, err := c.wearEngine.LeastWorn(c.reservedSet, isBad)
	if err != nil {
		c.logger.Warn("controller: rebalance: no least-worn block", zap.Error(err))
		return
	}
	most, err := c.wearEngine.MostWorn(c.reservedSet, isBad)
	if err != nil {
		c.logger.Warn("controller: rebalance: no most-worn block", zap.Error(err))
		return
	}
	if least == most {
		return
	}

	if err := c.transport.EraseBlock(ctx, least); err != nil {
		c.logger.Warn("controller: rebalance: erase destination failed", zap.Int("block", least), zap.Error(err))
		return
	}
	for page := 0; page < c.geometry.PagesPerBlock; page++ {
		data, err := c.transport.ReadPage(ctx, most, page)
		if err != nil {
			c.logger.Warn("controller: rebalance: read source page failed",
				zap.Int("block", most), zap.Int("page", page), zap.Error(err))
			return
		}
		if err := c.transport.WritePage(ctx, least, page, data); err != nil {
			c.logger.Warn("controller: rebalance: write destination page failed",
				zap.Int("block", least), zap.Int("page", page), zap.Error(err))
			return
		}
	}

	if err := c.wearEngine.SwapCounts(least, most); err != nil {
		c.logger.Warn("controller: rebalance: swap counters failed", zap.Error(err))
	}

	if c.cache != nil {
		for page := 0; page < c.geometry.PagesPerBlock; page++ {
			c.cache.Invalidate(CacheKey{Block: least, Page: page})
			c.cache.Invalidate(CacheKey{Block: most, Page: page})
		}
	}
	c.metaStore.MarkDirty()
}

// Operation is one unit of work submitted to ExecuteParallel.
type Operation struct {
	Kind         OperationKind
	LogicalBlock int
	Page         int
	Data         []byte
}

// OperationKind selects which pipeline method an Operation invokes.
type OperationKind int

const (
	OpRead OperationKind = iota
	OpWrite
	OpErase
)

// OpResult is the outcome of a single Operation, in ExecuteParallel's
// input order.
type OpResult struct {
	Data []byte
	Err  error
}

// ExecuteParallel runs ops concurrently over the controller's worker
// pool and returns one OpResult per op, in input order. Unlike
// executor.ExecuteParallel, a failing operation does not cancel its
// siblings: spec.md §9's "fire all, collect all" contract for bulk
// device operations, where a caller needs to know exactly which blocks
// succeeded and which didn't.
func (c *Controller) ExecuteParallel(ctx context.Context, ops []Operation) ([]OpResult, error) {
	handles := make([]*executor.Handle, len(ops))
	for i, op := range ops {
		op := op
		h, err := c.pool.Submit(ctx, func(ctx context.Context) (interface{}, error) {
			switch op.Kind {
			case OpWrite:
				return nil, c.WritePage(ctx, op.LogicalBlock, op.Page, op.Data)
			case OpErase:
				return nil, c.EraseBlock(ctx, op.LogicalBlock)
			default:
				return c.ReadPage(ctx, op.LogicalBlock, op.Page)
			}
		})
		if err != nil {
			return nil, errors.Wrap(err, "controller: submit operation")
		}
		handles[i] = h
	}

	results := make([]OpResult, len(ops))
	for i, h := range handles {
		res, err := h.Wait()
		if res != nil {
			results[i].Data = res.([]byte)
		}
		results[i].Err = err
	}
	return results, nil
}

// StatsSnapshot exposes accumulated counters for DeviceInfo.
type StatsSnapshot struct {
	Reads, Writes, Erases       uint64
	CacheHits, CacheMisses      uint64
	ECCCorrections              uint64
	AvgCompressionRatio         float64
}

func (c *Controller) snapshotStats() StatsSnapshot {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	snap := StatsSnapshot{
		Reads: c.stats.reads, Writes: c.stats.writes, Erases: c.stats.erases,
		CacheHits: c.stats.cacheHits, CacheMisses: c.stats.cacheMisses,
		ECCCorrections: c.stats.eccCorrections,
	}
	if c.stats.compressionSamples > 0 {
		snap.AvgCompressionRatio = c.stats.compressionRatioSum / float64(c.stats.compressionSamples)
	}
	return snap
}

// DeviceInfo summarizes geometry, bad-block accounting, wear
// distribution and transport status, per spec.md §4.10's device_info().
type DeviceInfo struct {
	Geometry       GeometrySummary
	BadBlockCount  int
	BadBlockRatio  float64
	Wear           wear.Stats
	Stats          StatsSnapshot
	TransportReady bool
}

// GeometrySummary is the subset of nand.Geometry exposed by DeviceInfo.
type GeometrySummary struct {
	PageSize, PagesPerBlock, NumBlocks, OOBSize int
}

func (c *Controller) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	status, err := c.transport.Status(ctx, -1, -1)
	if err != nil {
		return DeviceInfo{}, errors.Wrap(err, "controller: transport status")
	}
	badCount := c.badBlocks.Count()
	total := c.geometry.NumBlocks
	ratio := 0.0
	if total > 0 {
		ratio = float64(badCount) / float64(total)
	}
	stats := c.wearEngine.ComputeStats(c.reservedSet, c.isBadFunc())
	return DeviceInfo{
		Geometry: GeometrySummary{
			PageSize: c.geometry.PageSize, PagesPerBlock: c.geometry.PagesPerBlock,
			NumBlocks: c.geometry.NumBlocks, OOBSize: c.geometry.OOBSize,
		},
		BadBlockCount:  badCount,
		BadBlockRatio:  ratio,
		Wear:           stats,
		Stats:          c.snapshotStats(),
		TransportReady: status.Ready,
	}, nil
}

// Shutdown flushes dirty metadata and shuts down the transport. Safe to
// call once at process exit, per spec.md §9.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.metaStore.Flush(ctx, c.badBlocks.Snapshot(), wearCounts(c.wearEngine, c.geometry.NumBlocks))
	c.pool.Shutdown()
	return c.transport.Shutdown(ctx)
}

func wearCounts(e *wear.Engine, numBlocks int) []uint32 {
	out := make([]uint32, numBlocks)
	for _, bc := range e.Snapshot() {
		if int(bc.Block) < numBlocks {
			out[bc.Block] = bc.EraseCount
		}
	}
	return out
}
