package store

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/snooze/dbopen"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	db := dbopen.OpenMemory(t)
	sq, err := NewSQLite(db)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]KV{
		"memory": NewMemory(),
		"sqlite": sq,
		"diskv":  NewDiskv(t.TempDir()),
	}
}

func TestKV_Contract(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := kv.Get(ctx, "T1"); err != nil || ok {
				t.Fatalf("Get absent: ok=%v err=%v", ok, err)
			}
			if err := kv.Remove(ctx, "T1"); err != nil {
				t.Fatalf("Remove absent: %v", err)
			}
			if err := kv.Set(ctx, "T1", "a"); err != nil {
				t.Fatal(err)
			}
			if err := kv.Set(ctx, "T1", "b"); err != nil {
				t.Fatal(err)
			}
			if err := kv.Set(ctx, "snooze override show", "true"); err != nil {
				t.Fatal(err)
			}
			v, ok, err := kv.Get(ctx, "T1")
			if err != nil || !ok || v != "b" {
				t.Fatalf("Get: got %q ok=%v err=%v, want b", v, ok, err)
			}
			all, err := kv.All(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 2 || all["snooze override show"] != "true" {
				t.Errorf("All: got %v", all)
			}
			if err := kv.Remove(ctx, "T1"); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := kv.Get(ctx, "T1"); ok {
				t.Error("Get after Remove: still present")
			}
		})
	}
}

func TestParseISO(t *testing.T) {
	got, err := ParseISO("2099-01-01T00:00:00.000Z", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseISO: got %v, want %v", got, want)
	}

	got, err = ParseISO("2030-05-06", time.UTC)
	if err != nil || !got.Equal(time.Date(2030, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseISO day-only: got %v err=%v", got, err)
	}

	if _, err := ParseISO("next tuesday", time.UTC); err == nil {
		t.Error("ParseISO: expected error for garbage")
	}
}

func TestISO_RoundTripAtDayGranularity(t *testing.T) {
	loc := time.FixedZone("CEST", 2*3600)
	d := time.Date(2031, 3, 14, 0, 0, 0, 0, loc)
	got, err := ParseISO(FormatISO(d), loc)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(d) {
		t.Errorf("round trip: got %v, want %v", got, d)
	}
	if s := FormatISO(d); s != "2031-03-13T22:00:00.000Z" {
		t.Errorf("FormatISO: got %q", s)
	}
}

func TestDates_CorruptIsAbsent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	kv.Set(ctx, "T9", "not a date")
	d := NewDates(kv, time.UTC, nil)

	if _, ok := d.Get(ctx, "T9"); ok {
		t.Error("corrupt value reported as present")
	}

	when := time.Date(2040, 2, 2, 0, 0, 0, 0, time.UTC)
	if err := d.Set(ctx, "T9", when); err != nil {
		t.Fatal(err)
	}
	got, ok := d.Get(ctx, "T9")
	if !ok || !got.Equal(when) {
		t.Errorf("Get: got %v ok=%v, want %v", got, ok, when)
	}
}

func TestParseDay(t *testing.T) {
	if _, err := ParseDay("", time.UTC); err == nil {
		t.Error("ParseDay empty: expected error")
	}
	got, err := ParseDay("2027-12-31", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if FormatDay(got, time.UTC) != "2027-12-31" {
		t.Errorf("FormatDay: got %q", FormatDay(got, time.UTC))
	}
}
