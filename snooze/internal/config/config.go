// Package config handles snooze configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultURL is the dashboard the engine drives.
const DefaultURL = "https://secure.phabricator.com/"

// Config is the top-level snooze configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Page    PageConfig    `yaml:"page"`
	Store   StoreConfig   `yaml:"store"`
	Engine  EngineConfig  `yaml:"engine"`
	HTTP    HTTPConfig    `yaml:"http"`
	Sinks   []SinkConfig  `yaml:"sinks"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	UserDataDir      string        `yaml:"user_data_dir"` // profile with a logged-in session
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          string        `yaml:"stealth"` // headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
}

// PageConfig is the dashboard tab.
type PageConfig struct {
	URL              string        `yaml:"url"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
	DatepickerScript string        `yaml:"datepicker_script"`
	WeekStart        *int          `yaml:"week_start"` // 0 = Sunday, default Monday
}

// StoreConfig selects where snooze dates live.
type StoreConfig struct {
	Backend       string        `yaml:"backend"` // localstorage | sqlite | diskv | memory
	Path          string        `yaml:"path"`
	WatchInterval time.Duration `yaml:"watch_interval"`
}

// EngineConfig tunes the reconciliation loop and the display policy.
type EngineConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	MutationSettle time.Duration `yaml:"mutation_settle"`
	HideUnsnoozed  *bool         `yaml:"hide_unsnoozed"`
	LookaheadDays  float64       `yaml:"lookahead_days"`
	ImportFilter   string        `yaml:"import_filter"` // strict | open
	Location       string        `yaml:"location"`      // IANA zone, "Local" or "UTC"
}

// HTTPConfig is the admin surface. Empty Addr disables it.
type HTTPConfig struct {
	Addr         string `yaml:"addr"`
	PasswordHash string `yaml:"password_hash"` // bcrypt; empty disables auth
	MaxBody      int64  `yaml:"max_body"`
}

// SinkConfig defines a transition event output.
type SinkConfig struct {
	Type    string        `yaml:"type"` // stdout | webhook | journal
	URL     string        `yaml:"url"`
	Path    string        `yaml:"path"`  // journal file
	Kinds   []string      `yaml:"kinds"` // snoozed, woken; empty = both
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
}

// Backends accepted in StoreConfig.Backend.
const (
	BackendLocalStorage = "localstorage"
	BackendSQLite       = "sqlite"
	BackendDiskv        = "diskv"
	BackendMemory       = "memory"
)

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Page.URL == "" {
		c.Page.URL = DefaultURL
	}
	if c.Page.NavigateTimeout <= 0 {
		c.Page.NavigateTimeout = 30 * time.Second
	}
	if c.Page.WeekStart == nil {
		monday := 1
		c.Page.WeekStart = &monday
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendLocalStorage
	}
	if c.Store.WatchInterval <= 0 {
		c.Store.WatchInterval = time.Second
	}
	if c.Engine.PollInterval <= 0 {
		c.Engine.PollInterval = 500 * time.Millisecond
	}
	if c.Engine.HideUnsnoozed == nil {
		hide := true
		c.Engine.HideUnsnoozed = &hide
	}
	if c.Engine.LookaheadDays <= 0 {
		c.Engine.LookaheadDays = 21
	}
	if c.Engine.ImportFilter == "" {
		c.Engine.ImportFilter = "strict"
	}
	if c.Engine.Location == "" {
		c.Engine.Location = "Local"
	}
	if c.HTTP.MaxBody <= 0 {
		c.HTTP.MaxBody = 1 << 20
	}
	for i := range c.Sinks {
		if c.Sinks[i].Retries <= 0 {
			c.Sinks[i].Retries = 3
		}
		if c.Sinks[i].Backoff <= 0 {
			c.Sinks[i].Backoff = time.Second
		}
	}
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendLocalStorage, BackendMemory:
	case BackendSQLite, BackendDiskv:
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path required for %s backend", c.Store.Backend)
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	switch c.Browser.Stealth {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.stealth must be headless or headful, got %q", c.Browser.Stealth)
	}
	if w := c.Page.Week(); w < 0 || w > 6 {
		return fmt.Errorf("config: page.week_start out of range: %d", w)
	}
	if _, err := c.Engine.Loc(); err != nil {
		return err
	}
	switch c.Engine.ImportFilter {
	case "strict", "open":
	default:
		return fmt.Errorf("config: engine.import_filter must be strict or open, got %q", c.Engine.ImportFilter)
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook needs url", i)
			}
		case "journal":
			if s.Path == "" {
				return fmt.Errorf("config: sinks[%d]: journal needs path", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
		for _, k := range s.Kinds {
			if k != "snoozed" && k != "woken" {
				return fmt.Errorf("config: sinks[%d]: unknown kind %q", i, k)
			}
		}
	}
	return nil
}

// Loc resolves Location.
func (e EngineConfig) Loc() (*time.Location, error) {
	switch e.Location {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(e.Location)
	if err != nil {
		return nil, fmt.Errorf("config: engine.location: %w", err)
	}
	return loc, nil
}

// Hide reports HideUnsnoozed with its default.
func (e EngineConfig) Hide() bool {
	return e.HideUnsnoozed == nil || *e.HideUnsnoozed
}

// Week reports WeekStart with its default.
func (p PageConfig) Week() int {
	if p.WeekStart == nil {
		return 1
	}
	return *p.WeekStart
}
