package watch

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// counter is a detector the test moves by hand.
type counter struct{ v atomic.Int64 }

func (c *counter) detect(context.Context, *sql.DB) (int64, error) { return c.v.Load(), nil }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOnChange_Fires(t *testing.T) {
	var c counter
	w := New(nil, Options{Interval: 10 * time.Millisecond, Detector: c.detect})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	go w.OnChange(ctx, func() error { fired.Add(1); return nil })

	waitFor(t, func() bool { return w.Stats().Checks > 0 })
	if fired.Load() != 0 {
		t.Fatalf("fired without change: %d", fired.Load())
	}

	c.v.Store(1)
	waitFor(t, func() bool { return fired.Load() == 1 })
	if w.Version() != 1 {
		t.Errorf("version: got %d, want 1", w.Version())
	}

	checks := w.Stats().Checks
	waitFor(t, func() bool { return w.Stats().Checks > checks+3 })
	if fired.Load() != 1 {
		t.Errorf("fired again without change: %d", fired.Load())
	}
}

func TestOnChange_Debounce(t *testing.T) {
	var c counter
	w := New(nil, Options{
		Interval: 5 * time.Millisecond,
		Debounce: 100 * time.Millisecond,
		Detector: c.detect,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	go w.OnChange(ctx, func() error { fired.Add(1); return nil })

	for i := int64(1); i <= 5; i++ {
		c.v.Store(i)
		time.Sleep(15 * time.Millisecond)
	}
	waitFor(t, func() bool { return fired.Load() > 0 })
	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired: got %d, want 1", got)
	}
	if w.Version() != 5 {
		t.Errorf("version: got %d, want 5", w.Version())
	}
}

func TestOnChange_FailedActionRetries(t *testing.T) {
	var c counter
	w := New(nil, Options{Interval: 10 * time.Millisecond, Detector: c.detect})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go w.OnChange(ctx, func() error {
		if calls.Add(1) == 1 {
			return errors.New("busy")
		}
		return nil
	})

	waitFor(t, func() bool { return w.Stats().Checks > 0 })
	c.v.Store(7)
	waitFor(t, func() bool { return w.Stats().Fired == 1 })
	if calls.Load() < 2 {
		t.Errorf("calls: got %d, want a retry", calls.Load())
	}
	if w.Stats().Errors == 0 {
		t.Error("failed action not counted")
	}
}

func TestPragmaDataVersion_ForeignWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snooze.db")

	watched, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	watched.SetMaxOpenConns(1)
	defer watched.Close()

	writer, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()

	ctx := context.Background()
	if _, err := watched.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`); err != nil {
		t.Fatal(err)
	}
	before, err := PragmaDataVersion(ctx, watched)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := watched.Exec(`INSERT INTO kv VALUES ('own', '1')`); err != nil {
		t.Fatal(err)
	}
	own, _ := PragmaDataVersion(ctx, watched)
	if own != before {
		t.Fatalf("own write moved data_version: %d -> %d", before, own)
	}

	if _, err := writer.Exec(`INSERT INTO kv VALUES ('T1', '1')`); err != nil {
		t.Fatal(err)
	}
	after, _ := PragmaDataVersion(ctx, watched)
	if after == before {
		t.Fatal("foreign write did not move data_version")
	}
}
