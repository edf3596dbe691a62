package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/snooze/dbopen"
	"github.com/hazyhaar/snooze/snooze/internal/event"

	_ "modernc.org/sqlite"
)

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	s.Send(context.Background(), event.Transition{ItemID: "T1", Kind: event.KindSnoozed})
	s.Send(context.Background(), event.Transition{ItemID: "T1", Kind: event.KindWoken})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(lines))
	}
	var env envelope
	if err := json.Unmarshal(lines[1], &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "transition" || env.Data.Kind != event.KindWoken {
		t.Errorf("envelope: got %+v", env)
	}
}

func TestRouter_OneFailureDoesNotBlockOthers(t *testing.T) {
	var got atomic.Int32
	boom := errors.New("boom")
	r := NewRouter(nil,
		NewCallback(func(context.Context, event.Transition) error { return boom }),
		NewCallback(func(context.Context, event.Transition) error { got.Add(1); return nil }),
	)
	err := r.Send(context.Background(), event.Transition{ItemID: "T2"})
	if !errors.Is(err, boom) {
		t.Errorf("Send: got %v, want boom", err)
	}
	if got.Load() != 1 {
		t.Errorf("second sink calls: got %d, want 1", got.Load())
	}
}

func TestRouter_Only(t *testing.T) {
	var got []event.Kind
	r := NewRouter(nil, Only(NewCallback(func(_ context.Context, tr event.Transition) error {
		got = append(got, tr.Kind)
		return nil
	}), event.KindWoken))
	r.Send(context.Background(), event.Transition{ItemID: "T1", Kind: event.KindSnoozed})
	r.Send(context.Background(), event.Transition{ItemID: "T1", Kind: event.KindWoken})
	if len(got) != 1 || got[0] != event.KindWoken {
		t.Errorf("delivered: got %v, want [woken]", got)
	}
}

func TestWebhook_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Idempotency-Key") != "evt_1" || r.Header.Get("X-Snooze-Event") != "woken" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.Send(context.Background(), event.Transition{ID: "evt_1", ItemID: "T3", Kind: event.KindWoken}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls: got %d, want 3", calls.Load())
	}
}

func TestWebhook_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	if err := w.Send(context.Background(), event.Transition{ItemID: "T4"}); err == nil {
		t.Fatal("Send: expected error after retries")
	}
}

func TestWebhook_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.Send(context.Background(), event.Transition{ID: "evt_2", ItemID: "T4"}); err == nil {
		t.Fatal("Send: expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls: got %d, want 1", calls.Load())
	}
}

func TestJournal_Query(t *testing.T) {
	j, err := NewJournal(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for i, tr := range []event.Transition{
		{ID: "e1", SessionID: "s1", ItemID: "T1", Kind: event.KindSnoozed, Date: "2026-10-25", Snoozed: 1, Timestamp: 1000},
		{ID: "e2", SessionID: "s1", ItemID: "T2", Kind: event.KindSnoozed, Date: "2026-10-30", Snoozed: 2, Timestamp: 2000},
		{ID: "e3", SessionID: "s2", ItemID: "T1", Kind: event.KindWoken, Date: "2026-10-25", Snoozed: 1, Timestamp: 3000},
	} {
		if err := j.Send(ctx, tr); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	// Redelivery of the same event is ignored.
	if err := j.Send(ctx, event.Transition{ID: "e1", ItemID: "T1", Kind: event.KindSnoozed}); err != nil {
		t.Fatal(err)
	}

	all, err := j.Query(ctx, JournalFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "e3" || all[2].ID != "e1" {
		t.Errorf("all: got %+v", all)
	}

	t1, _ := j.Query(ctx, JournalFilter{ItemID: "T1", Kind: event.KindWoken})
	if len(t1) != 1 || t1[0].SessionID != "s2" {
		t.Errorf("T1 woken: got %+v", t1)
	}

	recent, _ := j.Query(ctx, JournalFilter{Since: 2000, Limit: 1})
	if len(recent) != 1 || recent[0].ID != "e3" {
		t.Errorf("since: got %+v", recent)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
}
