package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newWriteCmd writes a local file's contents into the device through
// Controller.SaveData, recording a file metadata record for later
// restore.
func newWriteCmd(cfgFile *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Write a local file onto the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "read %s", args[0])
			}

			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			ctrl, err := newController(ctx, cfg)
			if err != nil {
				return err
			}
			defer ctrl.Shutdown(ctx)

			if name == "" {
				name = args[0]
			}
			return ctrl.SaveData(ctx, name, data)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "file name recorded in the metadata record (defaults to the path)")
	return cmd
}
