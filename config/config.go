// Package config is the Go struct mirror of spec.md §4.10's option
// table, decoded by Viper per SPEC_FULL.md §4.12: unknown keys ignored,
// missing keys default via viper.SetDefault.
package config

import (
	"github.com/spf13/viper"
)

// NANDConfig is the nand.* option group.
type NANDConfig struct {
	PageSize      int `mapstructure:"page_size"`
	PagesPerBlock int `mapstructure:"pages_per_block"`
	NumBlocks     int `mapstructure:"num_blocks"`
	OOBSize       int `mapstructure:"oob_size"`
	NumPlanes     int `mapstructure:"num_planes"`
}

// FirmwareConfig is the firmware.* option group.
type FirmwareConfig struct {
	ReadRetry       bool   `mapstructure:"read_retry"`
	MaxReadRetries  int    `mapstructure:"max_read_retries"`
	DataScrambling  bool   `mapstructure:"data_scrambling"`
	ScramblingSeed  uint32 `mapstructure:"scrambling_seed"`
}

// ECCConfig is the ecc.* option group.
type ECCConfig struct {
	Algorithm string `mapstructure:"algorithm"`
	BCH       struct {
		M int `mapstructure:"m"`
		T int `mapstructure:"t"`
	} `mapstructure:"bch"`
	LDPC struct {
		N                int  `mapstructure:"n"`
		Dv               int  `mapstructure:"dv"`
		Dc               int  `mapstructure:"dc"`
		Systematic       bool `mapstructure:"systematic"`
		MaxIterations    int  `mapstructure:"max_iterations"`
		EarlyTermination bool `mapstructure:"early_termination"`
	} `mapstructure:"ldpc"`
}

// CompressionConfig is the compression.* option group.
type CompressionConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Algorithm string `mapstructure:"algorithm"`
	Level     int    `mapstructure:"level"`
}

// CacheConfig is the cache.* option group.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Capacity int    `mapstructure:"capacity"`
	Policy   string `mapstructure:"policy"`
	TTLMS    int64  `mapstructure:"ttl_ms"`
}

// ParallelismConfig is the parallelism.* option group.
type ParallelismConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

// WearConfig is the wear.* option group — the should_level() threshold
// referenced by spec.md §4.5, not itself named in §4.10's option table
// but needed to construct wear.Engine.
type WearConfig struct {
	Threshold uint32 `mapstructure:"threshold"`
}

// SimulationConfig is the simulator-only option group, spec.md §6.
type SimulationConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	ErrorRate           float64 `mapstructure:"error_rate"`
	InitialBadBlockRate float64 `mapstructure:"initial_bad_block_rate"`
}

// Config is the full nested configuration tree.
type Config struct {
	NAND         NANDConfig        `mapstructure:"nand"`
	Firmware     FirmwareConfig    `mapstructure:"firmware"`
	ECC          ECCConfig         `mapstructure:"ecc"`
	Compression  CompressionConfig `mapstructure:"compression"`
	Cache        CacheConfig       `mapstructure:"cache"`
	Parallelism  ParallelismConfig `mapstructure:"parallelism"`
	Wear         WearConfig        `mapstructure:"wear"`
	Simulation   SimulationConfig  `mapstructure:"simulation"`
}

// setDefaults installs every missing-key default named in spec.md §4.10.
func setDefaults(v *viper.Viper) {
	v.SetDefault("nand.page_size", 4096)
	v.SetDefault("nand.pages_per_block", 64)
	v.SetDefault("nand.num_blocks", 1024)
	v.SetDefault("nand.oob_size", 128)
	v.SetDefault("nand.num_planes", 1)

	v.SetDefault("firmware.read_retry", true)
	v.SetDefault("firmware.max_read_retries", 3)
	v.SetDefault("firmware.data_scrambling", false)
	v.SetDefault("firmware.scrambling_seed", 0)

	v.SetDefault("ecc.algorithm", "bch")
	v.SetDefault("ecc.bch.m", 8)
	v.SetDefault("ecc.bch.t", 4)
	v.SetDefault("ecc.ldpc.n", 256)
	v.SetDefault("ecc.ldpc.dv", 3)
	v.SetDefault("ecc.ldpc.dc", 6)
	v.SetDefault("ecc.ldpc.systematic", true)
	v.SetDefault("ecc.ldpc.max_iterations", 50)
	v.SetDefault("ecc.ldpc.early_termination", true)

	v.SetDefault("compression.enabled", false)
	v.SetDefault("compression.algorithm", "zstd")
	v.SetDefault("compression.level", 3)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.capacity", 256)
	v.SetDefault("cache.policy", "lru")
	v.SetDefault("cache.ttl_ms", 0)

	v.SetDefault("parallelism.max_workers", 4)

	v.SetDefault("wear.threshold", 1000)

	v.SetDefault("simulation.enabled", false)
	v.SetDefault("simulation.error_rate", 0.0)
	v.SetDefault("simulation.initial_bad_block_rate", 0.0)
}

// NewFromViper builds a Config from v, applying defaults for any key v
// doesn't already have set (from file, env, or flags). Unknown keys in v
// are simply not decoded into any field, matching Viper's default
// "unknown keys ignored" behavior.
func NewFromViper(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every spec.md §4.10 default and
// no overrides, equivalent to NewFromViper(viper.New()).
func Default() *Config {
	cfg, err := NewFromViper(viper.New())
	if err != nil {
		// setDefaults only installs well-typed literals, so Unmarshal
		// against them cannot fail.
		panic(err)
	}
	return cfg
}
