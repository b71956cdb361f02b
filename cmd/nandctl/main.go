// Command nandctl is the operator CLI for the NAND control plane: format,
// write/read files, inspect device info, and validate a firmware spec
// document, per spec.md §4.10.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "nandctl",
		Short:         "Operate a NAND flash control plane",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (defaults applied for any key it omits)")

	root.AddCommand(
		newFormatCmd(&cfgFile),
		newWriteCmd(&cfgFile),
		newReadCmd(&cfgFile),
		newInfoCmd(&cfgFile),
		newValidateFirmwareCmd(),
	)
	return root
}
