package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newReadCmd restores the most recently saved file through
// Controller.LoadData and writes it to a local path.
func newReadCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "read <path>",
		Short: "Restore the last saved file from the device",
		Args:  cobra.ExactArgs(1),
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

			data, err := ctrl.LoadData(ctx)
			if err != nil {
				return errors.Wrap(err, "load data")
			}
			return os.WriteFile(args[0], data, 0o644)
		},
	}
}
