package snooze

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenStore_Backends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, cfg := range []StoreConfig{
		{Backend: BackendMemory},
		{Backend: BackendSQLite, Path: filepath.Join(dir, "sub", "snooze.db")},
		{Backend: BackendDiskv, Path: filepath.Join(dir, "diskv")},
	} {
		t.Run(cfg.Backend, func(t *testing.T) {
			kv, closeFn, err := OpenStore(cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer closeFn()
			if err := kv.Set(ctx, "T1", "2026-10-25T00:00:00.000Z"); err != nil {
				t.Fatal(err)
			}
			v, ok, err := kv.Get(ctx, "T1")
			if err != nil || !ok || v != "2026-10-25T00:00:00.000Z" {
				t.Errorf("Get: %q %v %v", v, ok, err)
			}
		})
	}

	if _, _, err := OpenStore(StoreConfig{Backend: BackendLocalStorage}); !errors.Is(err, ErrBrowserStore) {
		t.Errorf("localstorage: got %v", err)
	}
	if _, _, err := OpenStore(StoreConfig{Backend: "floppy"}); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestExportImportStore(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	src.Set(ctx, "T1", "2026-10-25T00:00:00.000Z")
	src.Set(ctx, "snooze override show", "true")

	data, err := ExportStore(ctx, src)
	if err != nil {
		t.Fatal(err)
	}

	dst := NewMemoryStore()
	rep, err := ImportStore(ctx, dst, data, "strict")
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Written) != 2 || len(rep.Rejected) != 0 {
		t.Errorf("report: got %+v", rep)
	}
	if v, _, _ := dst.Get(ctx, "T1"); v != "2026-10-25T00:00:00.000Z" {
		t.Errorf("T1: got %q", v)
	}

	if _, err := ImportStore(ctx, dst, data, "lax"); err == nil {
		t.Error("unknown filter accepted")
	}
}

func TestListStore(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	kv.Set(ctx, "T3", "2026-11-20T00:00:00.000Z")
	kv.Set(ctx, "T7", "2026-10-21T00:00:00.000Z")
	kv.Set(ctx, "T1", "2026-01-01T00:00:00.000Z") // past
	kv.Set(ctx, "T2", "someday")
	kv.Set(ctx, "snooze override show", "true")

	items, err := ListStore(ctx, kv, testConfig().Engine, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items: got %+v", items)
	}
	if items[0].ID != "T7" || items[1].ID != "T3" {
		t.Errorf("order: got %s, %s", items[0].ID, items[1].ID)
	}
	if items[0].Urgency <= items[1].Urgency {
		t.Errorf("urgency: T7 %.2f should exceed T3 %.2f", items[0].Urgency, items[1].Urgency)
	}
	if items[0].Color == "" || !items[0].Snoozed {
		t.Errorf("T7: got %+v", items[0])
	}
}

func TestRenderFile(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	kv.Set(ctx, "T1", "2026-10-25T00:00:00.000Z")

	var out bytes.Buffer
	res, err := RenderFile(ctx, testConfig(), kv, strings.NewReader(dashboard), &out, now, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Seen != 3 || res.Attached != 2 || res.Skipped != 1 || res.Snoozed != 1 {
		t.Errorf("result: got %+v", res)
	}
	if len(res.Items) != 2 || !res.Items[0].Snoozed {
		t.Errorf("items: got %+v", res.Items)
	}
	html := out.String()
	if n := strings.Count(html, "phabricator-date-control"); n < 2 {
		t.Errorf("controls in output: got %d, want >= 2", n)
	}
}

func TestRenderFile_NoMenu(t *testing.T) {
	var out bytes.Buffer
	res, err := RenderFile(context.Background(), testConfig(), NewMemoryStore(), strings.NewReader(anonymous), &out, now, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Attached != 1 {
		t.Errorf("attached: got %d, want 1", res.Attached)
	}
}

func TestSinksFromConfig(t *testing.T) {
	var buf bytes.Buffer
	sinks, err := SinksFromConfig([]SinkConfig{
		{Type: "stdout"},
		{Type: "webhook", URL: "http://127.0.0.1:1/hook"},
		{Type: "journal", Path: filepath.Join(t.TempDir(), "journal.db")},
	}, &buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(sinks) != 3 {
		t.Fatalf("sinks: got %d", len(sinks))
	}
	for _, s := range sinks {
		defer s.Close()
	}
	if _, err := SinksFromConfig([]SinkConfig{{Type: "pager"}}, &buf, nil); err == nil {
		t.Error("unknown sink type accepted")
	}
}
