package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nandctl/ecc"
	"nandctl/firmwarespec"
)

// newValidateFirmwareCmd checks a firmware descriptor document against
// the rules of spec.md §6, independent of any live device.
func newValidateFirmwareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-firmware <path>",
		Short: "Validate a firmware spec document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetConfigFile(args[0])
			if err := v.ReadInConfig(); err != nil {
				return errors.Wrapf(err, "read %s", args[0])
			}

			spec := firmwarespec.Spec{
				FirmwareVersion: v.GetString("firmware_version"),
				NAND: firmwarespec.NANDConfig{
					PageSize:       v.GetInt("nand_config.page_size"),
					BlockSizeBytes: v.GetInt("nand_config.block_size_bytes"),
					NumBlocks:      v.GetInt("nand_config.num_blocks"),
				},
				ECC: firmwarespec.ECCConfig{
					Algorithm: ecc.Algorithm(v.GetString("ecc_config.algorithm")),
					BCH: ecc.BCHParams{
						M: v.GetInt("ecc_config.bch.m"),
						T: v.GetInt("ecc_config.bch.t"),
					},
					LDPC: ecc.LDPCParams{
						N:  v.GetInt("ecc_config.ldpc.n"),
						Dv: v.GetInt("ecc_config.ldpc.dv"),
						Dc: v.GetInt("ecc_config.ldpc.dc"),
					},
				},
				WearLevel: firmwarespec.WearLevelConfig{
					Threshold: uint32(v.GetInt("wl_config.threshold")),
				},
			}

			if err := firmwarespec.Validate(spec); err != nil {
				return err
			}
			cmd.Println("firmware spec is valid")
			return nil
		},
	}
}
