package snooze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hazyhaar/snooze/dbopen"
	"github.com/hazyhaar/snooze/snooze/internal/binder"
	"github.com/hazyhaar/snooze/snooze/internal/display"
	"github.com/hazyhaar/snooze/snooze/internal/htmlpage"
	"github.com/hazyhaar/snooze/snooze/internal/item"
	"github.com/hazyhaar/snooze/snooze/internal/override"
	"github.com/hazyhaar/snooze/snooze/internal/reconcile"
	"github.com/hazyhaar/snooze/snooze/internal/store"
	"github.com/hazyhaar/snooze/snooze/internal/toolbar"
	"github.com/hazyhaar/snooze/snooze/internal/transfer"

	_ "modernc.org/sqlite"
)

// KV is a raw key/value store backend.
type KV = store.KV

// ErrBrowserStore means the configured backend lives in the page and cannot
// be opened without the browser.
var ErrBrowserStore = errors.New("snooze: localstorage backend is only reachable through the browser")

// NewMemoryStore returns an empty in-memory backend.
func NewMemoryStore() KV { return store.NewMemory() }

// OpenStore opens the configured backend outside the browser. The returned
// func releases it.
func OpenStore(cfg StoreConfig) (KV, func() error, error) {
	nop := func() error { return nil }
	switch cfg.Backend {
	case BackendMemory:
		return store.NewMemory(), nop, nil
	case BackendDiskv:
		return store.NewDiskv(cfg.Path), nop, nil
	case BackendSQLite:
		db, err := dbopen.Open(cfg.Path, dbopen.WithMkdirAll(), dbopen.WithSingleConn())
		if err != nil {
			return nil, nil, fmt.Errorf("snooze: open store: %w", err)
		}
		s, err := store.NewSQLite(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	case BackendLocalStorage:
		return nil, nil, ErrBrowserStore
	}
	return nil, nil, fmt.Errorf("snooze: unknown store backend %q", cfg.Backend)
}

// ExportStore serialises every entry of kv in the export file format.
func ExportStore(ctx context.Context, kv KV) ([]byte, error) {
	return transfer.Export(ctx, kv)
}

// ImportStore writes the accepted entries of data into kv. filter is
// "strict" or "open".
func ImportStore(ctx context.Context, kv KV, data []byte, filter string) (ImportReport, error) {
	f, err := transfer.ParseFilter(filter)
	if err != nil {
		return ImportReport{}, err
	}
	return transfer.Import(ctx, kv, data, f)
}

// ListStore returns every item kv holds a future date for, soonest first.
func ListStore(ctx context.Context, kv KV, cfg EngineConfig, now time.Time) ([]ItemView, error) {
	loc, err := cfg.Loc()
	if err != nil {
		return nil, err
	}
	all, err := kv.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("snooze: list: %w", err)
	}
	p := display.Policy{LookaheadDays: cfg.LookaheadDays, HideUnsnoozed: cfg.Hide()}
	var out []ItemView
	for _, k := range store.Keys(all) {
		if !binder.ValidID(k) {
			continue
		}
		if v, ok := storedView(k, all[k], loc, now, p); ok {
			out = append(out, v)
		}
	}
	sortByDate(out)
	return out, nil
}

// RenderResult summarises an offline render.
type RenderResult struct {
	Seen     int        `json:"seen"`
	Attached int        `json:"attached"`
	Skipped  int        `json:"skipped"`
	Snoozed  int        `json:"snoozed"`
	Items    []ItemView `json:"items"`
}

// RenderFile runs one reconciliation pass over a saved dashboard page and
// writes the decorated page to out. Stale dates found in kv are cleaned up
// exactly as a live session would.
func RenderFile(ctx context.Context, cfg *Config, kv KV, in io.Reader, out io.Writer, now time.Time, logger *slog.Logger) (RenderResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Engine.Loc()
	if err != nil {
		return RenderResult{}, err
	}
	doc, err := htmlpage.Parse(in)
	if err != nil {
		return RenderResult{}, err
	}

	toggle := override.Load(ctx, kv, logger)
	var counter item.CounterView
	bar, err := doc.InstallToolbar(ctx)
	switch {
	case errors.Is(err, toolbar.ErrNoAnchor):
		logger.Warn("snooze: page has no main menu, rendering without toolbar")
	case err != nil:
		return RenderResult{}, err
	default:
		counter = bar
		if err := toggle.Attach(ctx, bar); err != nil {
			return RenderResult{}, err
		}
		if err := bar.SetCount(ctx, 0); err != nil {
			return RenderResult{}, err
		}
	}

	reg := item.NewRegistry(item.Options{
		Dates:   store.NewDates(kv, loc, logger),
		Policy:  display.Policy{LookaheadDays: cfg.Engine.LookaheadDays, HideUnsnoozed: cfg.Engine.Hide()},
		Show:    toggle.Show,
		Counter: counter,
		Now:     func() time.Time { return now },
		Logger:  logger,
	})
	res, err := reconcile.Reconcile(ctx, binder.New(reg, logger), reg, doc)
	if err != nil {
		return RenderResult{}, err
	}
	if err := doc.Render(out); err != nil {
		return RenderResult{}, err
	}

	rr := RenderResult{Seen: res.Seen, Attached: res.Attached, Skipped: res.Skipped, Snoozed: reg.SnoozedCount()}
	for _, it := range reg.Items() {
		rr.Items = append(rr.Items, viewOf(it, reg))
	}
	return rr, nil
}
