package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Engine.PollInterval != 500*time.Millisecond {
		t.Errorf("poll: got %v", c.Engine.PollInterval)
	}
	if !c.Engine.Hide() {
		t.Error("hide_unsnoozed should default to true")
	}
	if c.Engine.LookaheadDays != 21 || c.Engine.ImportFilter != "strict" {
		t.Errorf("engine: got %+v", c.Engine)
	}
	if c.Store.Backend != BackendLocalStorage || c.Page.URL != DefaultURL || c.Page.Week() != 1 {
		t.Errorf("store/page: got %+v %+v", c.Store, c.Page)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snooze.yaml")
	data := `
browser:
  stealth: headful
  user_data_dir: /home/me/.config/chromium
page:
  url: https://phab.example.com/
store:
  backend: sqlite
  path: /var/lib/snooze/snooze.db
engine:
  poll_interval: 1s
  hide_unsnoozed: false
  import_filter: open
  location: UTC
http:
  addr: 127.0.0.1:8089
sinks:
  - type: webhook
    url: http://localhost:9000/hook
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Engine.Hide() {
		t.Error("hide_unsnoozed: false ignored")
	}
	if c.Engine.PollInterval != time.Second || c.Engine.ImportFilter != "open" {
		t.Errorf("engine: %+v", c.Engine)
	}
	if loc, err := c.Engine.Loc(); err != nil || loc != time.UTC {
		t.Errorf("loc: got %v %v", loc, err)
	}
	if c.Store.Backend != BackendSQLite || c.Store.Path != "/var/lib/snooze/snooze.db" {
		t.Errorf("store: %+v", c.Store)
	}
	if len(c.Sinks) != 1 || c.Sinks[0].Retries != 3 || c.Sinks[0].Backoff != time.Second {
		t.Errorf("sinks: %+v", c.Sinks)
	}
	if c.Browser.UserDataDir != "/home/me/.config/chromium" {
		t.Errorf("user_data_dir: %q", c.Browser.UserDataDir)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown backend": "store: {backend: redis}",
		"sqlite no path":  "store: {backend: sqlite}",
		"bad stealth":     "browser: {stealth: invisible}",
		"webhook no url":  "sinks: [{type: webhook}]",
		"unknown sink":    "sinks: [{type: nats}]",
		"journal no path": "sinks: [{type: journal}]",
		"bad sink kind":   "sinks: [{type: stdout, kinds: [deleted]}]",
		"bad location":    "engine: {location: Mars/Olympus}",
		"bad week start":  "page: {week_start: 9}",
		"bad filter":      "engine: {import_filter: lax}",
		"malformed yaml":  "store: [",
	}
	for name, in := range tests {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
