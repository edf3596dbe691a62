package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Version(t *testing.T) {
	id := UUIDv7()()
	u, err := ParseUUID(id, "")
	if err != nil {
		t.Fatal(err)
	}
	if u.Version() != 7 {
		t.Errorf("version: got %d, want 7", u.Version())
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		next := gen()
		if next <= prev {
			t.Fatalf("not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestShort(t *testing.T) {
	gen := Short(8)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen()
		if len(id) != 8 {
			t.Fatalf("length: got %d", len(id))
		}
		if strings.Trim(id, "0123456789abcdefghijklmnopqrstuvwxyz") != "" {
			t.Fatalf("alphabet: %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 990 {
		t.Errorf("too many collisions: %d unique", len(seen))
	}
}

func TestSessionAndEvent(t *testing.T) {
	s := Session()
	if _, err := ParseUUID(s, "ses_"); err != nil {
		t.Errorf("session %q: %v", s, err)
	}
	e := Event()
	if _, err := ParseUUID(e, "evt_"); err != nil {
		t.Errorf("event %q: %v", e, err)
	}
	if _, err := ParseUUID(e, "ses_"); err == nil {
		t.Error("event accepted as session")
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("s")
	if a, b := gen(), gen(); a != "s1" || b != "s2" {
		t.Errorf("got %s %s", a, b)
	}
}

func TestParseUUID_Invalid(t *testing.T) {
	if _, err := ParseUUID("ses_nope", "ses_"); err == nil {
		t.Error("expected error")
	}
}
