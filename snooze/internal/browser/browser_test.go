package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": Headless, "headless": Headless, "headful": Headful} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q): got %v %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("kiosk"); err == nil {
		t.Error("expected error")
	}
}

func TestResourceType(t *testing.T) {
	tests := []struct {
		in   string
		want proto.NetworkResourceType
		ok   bool
	}{
		{"images", proto.NetworkResourceTypeImage, true},
		{"Fonts", proto.NetworkResourceTypeFont, true},
		{"media", proto.NetworkResourceTypeMedia, true},
		{" stylesheet ", proto.NetworkResourceTypeStylesheet, true},
		{"script", "", false},
		{"document", "", false},
	}
	for _, tt := range tests {
		got, ok := resourceType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("resourceType(%q): got %q %v, want %q %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	m := NewManager(Config{})
	c := m.Config()
	if c.RecycleInterval == 0 || c.XvfbDisplay != ":99" || c.Logger == nil {
		t.Errorf("defaults not applied: %+v", c)
	}
	if m.Browser() != nil {
		t.Error("browser before Start")
	}
}

func TestX11Socket(t *testing.T) {
	for in, want := range map[string]string{":99": "/tmp/.X11-unix/X99", ":0.0": "/tmp/.X11-unix/X0", "1": "/tmp/.X11-unix/X1"} {
		got, err := x11Socket(in)
		if err != nil || got != want {
			t.Errorf("x11Socket(%q): got %q %v, want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", ":", "host:0", ":abc"} {
		if _, err := x11Socket(bad); err == nil {
			t.Errorf("x11Socket(%q): expected error", bad)
		}
	}
}
