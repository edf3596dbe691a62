package htmlpage

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/snooze/snooze/internal/binder"
	"github.com/hazyhaar/snooze/snooze/internal/display"
	"github.com/hazyhaar/snooze/snooze/internal/item"
	"github.com/hazyhaar/snooze/snooze/internal/store"
	"github.com/hazyhaar/snooze/snooze/internal/toolbar"
)

var now = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

func loadDashboard(t *testing.T) *Document {
	t.Helper()
	f, err := os.Open("testdata/dashboard.html")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d, err := Parse(f)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newRegistry(kv store.KV, show func() bool) *item.Registry {
	return item.NewRegistry(item.Options{
		Dates:  store.NewDates(kv, time.UTC, nil),
		Policy: display.DefaultPolicy(),
		Show:   show,
		Now:    func() time.Time { return now },
	})
}

func blocksByID(d *Document) map[string][]BlockState {
	out := map[string][]BlockState{}
	for _, b := range d.Blocks() {
		out[b.ID] = append(out[b.ID], b)
	}
	return out
}

func TestLinks(t *testing.T) {
	d := loadDashboard(t)
	links, err := d.Links(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 7 {
		t.Fatalf("links: got %d, want 7", len(links))
	}
	if got := links[4].Href(); got != "/T102" {
		t.Errorf("href: got %q", got)
	}
	_, ok, err := links[6].Container(context.Background())
	if err != nil || ok {
		t.Errorf("loose link container: got %v %v, want false", ok, err)
	}
}

func TestScan_Decorates(t *testing.T) {
	ctx := context.Background()
	d := loadDashboard(t)
	kv := store.NewMemory()
	kv.Set(ctx, "T102", store.FormatISO(time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC)))
	show := false
	reg := newRegistry(kv, func() bool { return show })
	b := binder.New(reg, nil)

	res, err := b.Scan(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	// T101, T102 twice, rPHUa1b2c3 attached; project, T103 (crowded) and
	// T104 (no list item) left alone.
	if res.Attached != 4 {
		t.Errorf("attached: got %d, want 4 (%+v)", res.Attached, res)
	}

	blocks := blocksByID(d)
	for _, id := range []string{"T101", "rPHUa1b2c3"} {
		bs := blocks[id][0]
		if bs.Controls != 1 || !bs.Hidden() || bs.Date != "2026-10-19" {
			t.Errorf("%s: got %+v", id, bs)
		}
	}
	for i, bs := range blocks["T102"] {
		if bs.Controls != 1 || !bs.Hidden() || bs.Date != "2026-10-22" {
			t.Errorf("T102[%d]: got %+v", i, bs)
		}
	}
	if bs := blocks["T103"][0]; bs.Controls != 0 || bs.Display != "" {
		t.Errorf("crowded frame decorated: %+v", bs)
	}
	if got := blocks["T101"][0].MarginRight; got != "36px" {
		t.Errorf("T101 margin: got %q, want 36px", got)
	}
	// Existing action plus the control.
	if got := blocks["rPHUa1b2c3"][0].MarginRight; got != "66px" {
		t.Errorf("audit margin: got %q, want 66px", got)
	}

	show = true
	reg.RenderAll(ctx)
	blocks = blocksByID(d)
	if bs := blocks["T102"][0]; bs.Hidden() || bs.Background == "" {
		t.Errorf("T102 with override: %+v", bs)
	}
	if bs := blocks["T101"][0]; bs.Hidden() || bs.Background != "" {
		t.Errorf("T101 with override: %+v", bs)
	}
}

func TestScan_SecondPassIsQuiet(t *testing.T) {
	ctx := context.Background()
	d := loadDashboard(t)
	mutations := 0
	d.OnMutate(func() { mutations++ })
	reg := newRegistry(store.NewMemory(), nil)
	b := binder.New(reg, nil)

	if _, err := b.Scan(ctx, d); err != nil {
		t.Fatal(err)
	}
	reg.PullAll(ctx)
	if mutations == 0 {
		t.Fatal("first scan made no DOM changes")
	}

	mutations = 0
	if _, err := b.Scan(ctx, d); err != nil {
		t.Fatal(err)
	}
	reg.PullAll(ctx)
	if mutations != 0 {
		t.Errorf("second scan mutated the page %d times", mutations)
	}
}

func TestEditDate(t *testing.T) {
	ctx := context.Background()
	d := loadDashboard(t)
	kv := store.NewMemory()
	reg := newRegistry(kv, nil)
	b := binder.New(reg, nil)
	if _, err := b.Scan(ctx, d); err != nil {
		t.Fatal(err)
	}

	if err := d.EditDate("T102", "2026-11-01"); err != nil {
		t.Fatal(err)
	}
	reg.PullAll(ctx)

	it, _ := reg.Lookup("T102")
	if !it.Snoozed() || reg.SnoozedCount() != 1 {
		t.Fatalf("after edit: snoozed=%v count=%d", it.Snoozed(), reg.SnoozedCount())
	}
	for i, bs := range blocksByID(d)["T102"] {
		if bs.Date != "2026-11-01" {
			t.Errorf("T102[%d] not synced: %q", i, bs.Date)
		}
	}
	if v, ok, _ := kv.Get(ctx, "T102"); !ok || v != "2026-11-01T00:00:00.000Z" {
		t.Errorf("stored: %q %v", v, ok)
	}

	if err := d.EditDate("T999", "2026-11-01"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	d := loadDashboard(t)
	if _, err := binder.New(newRegistry(store.NewMemory(), nil), nil).Scan(ctx, d); err != nil {
		t.Fatal(err)
	}
	if _, err := d.InstallToolbar(ctx); err != nil {
		t.Fatal(err)
	}
	if err := d.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if d.Reloads() != 1 {
		t.Errorf("reloads: got %d", d.Reloads())
	}
	for _, bs := range d.Blocks() {
		if bs.Controls != 0 || bs.Display != "" {
			t.Errorf("decoration survived reload: %+v", bs)
		}
	}
	if d.Toolbar().Installed {
		t.Error("toolbar survived reload")
	}
}

func TestToolbar(t *testing.T) {
	ctx := context.Background()
	d := loadDashboard(t)
	tb, err := d.InstallToolbar(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tb.SetCount(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if err := tb.SetOverride(ctx, false); err != nil {
		t.Fatal(err)
	}
	st := d.Toolbar()
	if !st.Installed || st.Count != "3" || !st.Unread {
		t.Errorf("toolbar: got %+v", st)
	}
	if err := tb.SetOverride(ctx, true); err != nil {
		t.Fatal(err)
	}
	if d.Toolbar().Unread {
		t.Error("unread class kept with override on")
	}

	// A second install reuses the buttons.
	if _, err := d.InstallToolbar(ctx); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(d.String(), toolbar.ToggleClass); n != 1 {
		t.Errorf("toggle buttons: got %d, want 1", n)
	}

	if err := tb.Download(ctx, "x.json", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if dl := d.Downloads(); len(dl) != 1 || dl[0].Name != "x.json" {
		t.Errorf("downloads: got %+v", dl)
	}
}

func TestToolbar_NoAnchor(t *testing.T) {
	d, err := ParseString(`<html><body><p>Log in</p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.InstallToolbar(context.Background()); !errors.Is(err, toolbar.ErrNoAnchor) {
		t.Errorf("got %v, want ErrNoAnchor", err)
	}
}

func TestStyle(t *testing.T) {
	st := parseStyle("color: red; display:none;;  margin-right : 4px")
	if st.get("display") != "none" || st.get("margin-right") != "4px" {
		t.Errorf("parse: got %+v", st.vals)
	}
	st.set("display", "")
	st.set("background-color", "rgb(255, 255, 50)")
	if got, want := st.String(), "color: red; margin-right: 4px; background-color: rgb(255, 255, 50);"; got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
}
