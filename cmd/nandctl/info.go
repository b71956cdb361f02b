package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newInfoCmd prints DeviceInfo: geometry, bad-block accounting, wear
// distribution, accumulated counters and transport readiness.
func newInfoCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show device geometry, bad-block, wear and transport status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			ctrl, err := newController(ctx, cfg)
			if err != nil {
				return err
			}
			defer ctrl.Shutdown(ctx)

			info, err := ctrl.DeviceInfo(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "geometry:     page=%d pages/block=%d blocks=%d oob=%d\n",
				info.Geometry.PageSize, info.Geometry.PagesPerBlock, info.Geometry.NumBlocks, info.Geometry.OOBSize)
			fmt.Fprintf(out, "bad blocks:   %d (%.2f%%)\n", info.BadBlockCount, info.BadBlockRatio*100)
			fmt.Fprintf(out, "wear:         min=%d max=%d mean=%.1f stddev=%.1f\n",
				info.Wear.Min, info.Wear.Max, info.Wear.Mean, info.Wear.StdDev)
			fmt.Fprintf(out, "counters:     reads=%d writes=%d erases=%d cache_hits=%d cache_misses=%d ecc_corrections=%d\n",
				info.Stats.Reads, info.Stats.Writes, info.Stats.Erases,
				info.Stats.CacheHits, info.Stats.CacheMisses, info.Stats.ECCCorrections)
			fmt.Fprintf(out, "compression:  avg ratio=%.3f\n", info.Stats.AvgCompressionRatio)
			fmt.Fprintf(out, "transport:    ready=%v\n", info.TransportReady)
			return nil
		},
	}
}
