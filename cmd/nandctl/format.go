package main

import (
	"context"

	"github.com/spf13/cobra"

	"nandctl/nanderr"
)

// newFormatCmd erases every user block, dropping any data. Each erase goes
// through the controller's erase pipeline, so it bumps that block's wear
// counter (possibly triggering a rebalance) and a failed erase marks the
// block bad; both tables are flushed on shutdown.
func newFormatCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Erase every user block",
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

			for b := 0; ; b++ {
				if err := ctrl.EraseBlock(ctx, b); err != nil {
					if nanderr.Is(err, nanderr.OutOfRange) {
						break
					}
					cmd.PrintErrf("block %d: %v\n", b, err)
				}
			}
			return nil
		},
	}
}
