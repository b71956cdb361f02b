package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"nandctl/config"
	"nandctl/controller"
	"nandctl/nand"
)

// loadConfig reads cfgFile (if non-empty) through Viper and applies
// spec.md §4.10's defaults for anything it omits.
func loadConfig(cfgFile string) (*config.Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	}
	return config.NewFromViper(v)
}

// newController builds a Controller against the in-memory Simulator
// transport, using cfg.Simulation for error-injection and initial
// bad-block parameters. A real deployment would swap in
// nand.HardwareTransport, whose methods all return nanderr.Transport
// until a concrete wire driver is wired in (spec.md §1 treats the
// concrete transport as an external collaborator).
func newController(ctx context.Context, cfg *config.Config) (*controller.Controller, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}

	geometry := nand.Geometry{
		PageSize:      cfg.NAND.PageSize,
		PagesPerBlock: cfg.NAND.PagesPerBlock,
		NumBlocks:     cfg.NAND.NumBlocks,
		OOBSize:       cfg.NAND.OOBSize,
		NumPlanes:     cfg.NAND.NumPlanes,
	}
	transport := nand.NewSimulator(geometry, nand.SimulatorOptions{
		Enabled:             cfg.Simulation.Enabled,
		ErrorRate:           cfg.Simulation.ErrorRate,
		InitialBadBlockRate: cfg.Simulation.InitialBadBlockRate,
	}, 1)

	return controller.New(ctx, *cfg, transport, logger)
}
