// Package daemon holds the node configuration for the FundHive
// settlement service: ~/.fundhive/config.toml, section per concern.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/fundhive-network/fundhive/internal/domain"
	"github.com/fundhive-network/fundhive/internal/engine"
)

// Config is the full daemon configuration.
type Config struct {
	API      APIConfig      `toml:"api"`
	Platform PlatformConfig `toml:"platform"`
	Storage  StorageConfig  `toml:"storage"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// PlatformConfig configures the settlement engine.
type PlatformConfig struct {
	Admin       string `toml:"admin"`
	Treasury    string `toml:"treasury"`
	FeeBps      uint32 `toml:"fee_bps"`
	MinDonation uint64 `toml:"min_donation"`
	MaxDonation uint64 `toml:"max_donation"`
	GoalCeiling uint64 `toml:"goal_ceiling"`
	MaxBatch    int    `toml:"max_batch"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	Path string `toml:"path"` // empty = memory-only
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	ec := engine.DefaultConfig()
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8480,
			Metrics: true,
		},
		Platform: PlatformConfig{
			Admin:       string(ec.Admin),
			Treasury:    string(ec.Treasury),
			FeeBps:      ec.FeeBps,
			MinDonation: uint64(ec.MinDonation),
			MaxDonation: uint64(ec.MaxDonation),
			GoalCeiling: uint64(ec.GoalCeiling),
			MaxBatch:    ec.MaxBatch,
		},
		Storage: StorageConfig{
			Path: filepath.Join(homeDir(), "fundhive.db"),
		},
	}
}

// Load reads the config file at path, overlaying the defaults.
// A missing file returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Platform.FeeBps > domain.TotalBps {
		return cfg, fmt.Errorf("fee_bps %d exceeds %d", cfg.Platform.FeeBps, domain.TotalBps)
	}
	return cfg, nil
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	return filepath.Join(homeDir(), "config.toml")
}

// EngineConfig converts the platform section into an engine.Config.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		Admin:       domain.AccountID(c.Platform.Admin),
		Treasury:    domain.AccountID(c.Platform.Treasury),
		FeeBps:      c.Platform.FeeBps,
		MinDonation: domain.Amount(c.Platform.MinDonation),
		MaxDonation: domain.Amount(c.Platform.MaxDonation),
		GoalCeiling: domain.Amount(c.Platform.GoalCeiling),
		MaxBatch:    c.Platform.MaxBatch,
	}
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// homeDir resolves ~/.fundhive, falling back to the working directory.
func homeDir() string {
	if env := os.Getenv("FUNDHIVE_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fundhive"
	}
	return filepath.Join(home, ".fundhive")
}
