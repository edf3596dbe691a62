package snooze

import (
	"github.com/hazyhaar/snooze/snooze/internal/config"
)

// Config is the top-level snooze configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig is the dashboard tab.
type PageConfig = config.PageConfig

// StoreConfig selects where snooze dates live.
type StoreConfig = config.StoreConfig

// EngineConfig tunes the reconciliation loop and the display policy.
type EngineConfig = config.EngineConfig

// HTTPConfig is the admin surface.
type HTTPConfig = config.HTTPConfig

// SinkConfig defines a transition output.
type SinkConfig = config.SinkConfig

// Store backends.
const (
	BackendLocalStorage = config.BackendLocalStorage
	BackendSQLite       = config.BackendSQLite
	BackendDiskv        = config.BackendDiskv
	BackendMemory       = config.BackendMemory
)

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
