package item

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/snooze/snooze/internal/display"
	"github.com/hazyhaar/snooze/snooze/internal/event"
	"github.com/hazyhaar/snooze/snooze/internal/store"
)

// CounterView shows the snoozed counter somewhere on the page.
type CounterView interface {
	SetCount(ctx context.Context, n int) error
}

// Options configures a Registry.
type Options struct {
	Dates  *store.Dates
	Policy display.Policy
	// Show reports the override flag. Nil means never shown.
	Show func() bool
	// Counter is optional.
	Counter CounterView
	// Notify receives every transition. Optional.
	Notify func(ctx context.Context, t event.Transition)
	// SessionID is stamped on transitions.
	SessionID string
	// NewID generates transition IDs. Optional.
	NewID func() string
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Registry maps identifiers to Items and owns the snoozed counter. One
// Registry lives per page session.
type Registry struct {
	dates   *store.Dates
	loc     *time.Location
	policy  display.Policy
	show    func() bool
	counter CounterView
	notify  func(context.Context, event.Transition)
	session string
	newID   func() string
	now     func() time.Time
	logger  *slog.Logger

	items   map[string]*Item
	order   []*Item
	snoozed int
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Show == nil {
		opts.Show = func() bool { return false }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "" }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		dates:   opts.Dates,
		loc:     opts.Dates.Location(),
		policy:  opts.Policy,
		show:    opts.Show,
		counter: opts.Counter,
		notify:  opts.Notify,
		session: opts.SessionID,
		newID:   opts.NewID,
		now:     opts.Now,
		logger:  opts.Logger,
		items:   make(map[string]*Item),
	}
}

// Lookup returns the item for id if it has been seen.
func (r *Registry) Lookup(id string) (*Item, bool) {
	it, ok := r.items[id]
	return it, ok
}

// Resolve returns the item for id, creating it on first sight. A new item
// takes its date from storage when a future date is stored, otherwise
// today; that first SetDate may clean up a stale stored value.
func (r *Registry) Resolve(ctx context.Context, id string) (*Item, error) {
	if it, ok := r.items[id]; ok {
		return it, nil
	}

	now := r.now()
	d := store.Midnight(now, r.loc)
	if stored, ok := r.dates.Get(ctx, id); ok && stored.After(now) {
		d = stored
	}

	it := &Item{id: id, reg: r}
	if err := it.SetDate(ctx, d); err != nil {
		return nil, fmt.Errorf("item: init %s: %w", id, err)
	}
	r.items[id] = it
	r.order = append(r.order, it)
	r.logger.Debug("item: new", "id", id, "snoozed", it.snoozed)
	return it, nil
}

// Items returns every known item in first-seen order.
func (r *Registry) Items() []*Item {
	out := make([]*Item, len(r.order))
	copy(out, r.order)
	return out
}

// SnoozedCount is the number of items whose date is in the future.
func (r *Registry) SnoozedCount() int { return r.snoozed }

// Location is the zone days are cut in.
func (r *Registry) Location() *time.Location { return r.loc }

// Now is the registry clock.
func (r *Registry) Now() time.Time { return r.now() }

// Policy returns the display policy in force.
func (r *Registry) Policy() display.Policy { return r.policy }

// RenderAll re-renders every bound block of every item.
func (r *Registry) RenderAll(ctx context.Context) {
	for _, it := range r.order {
		it.UpdateToBlocks(ctx)
	}
}

// PullAll reads every item's date back from its blocks.
func (r *Registry) PullAll(ctx context.Context) {
	for _, it := range r.order {
		it.UpdateFromBlocks(ctx)
	}
}

// Expire wakes items whose date has elapsed since they were last set.
// Without it a snoozed item would stay hidden until the page reloads.
func (r *Registry) Expire(ctx context.Context) int {
	now := r.now()
	woken := 0
	for _, it := range r.order {
		if !it.snoozed || it.date.After(now) {
			continue
		}
		if err := it.SetDate(ctx, now); err != nil {
			r.logger.Warn("item: expire failed", "id", it.id, "error", err)
			continue
		}
		woken++
	}
	return woken
}

func (r *Registry) transition(ctx context.Context, it *Item, kind event.Kind, delta int) {
	r.snoozed += delta
	if r.counter != nil {
		if err := r.counter.SetCount(ctx, r.snoozed); err != nil {
			r.logger.Debug("item: counter update failed", "error", err)
		}
	}
	r.logger.Info("item: "+string(kind), "id", it.id, "date", store.FormatDay(it.date, r.loc), "snoozed", r.snoozed)
	if r.notify != nil {
		r.notify(ctx, event.Transition{
			ID:        r.newID(),
			SessionID: r.session,
			ItemID:    it.id,
			Kind:      kind,
			Date:      store.FormatDay(it.date, r.loc),
			Snoozed:   r.snoozed,
			Timestamp: r.now().UnixMilli(),
		})
	}
}
