// Package item holds the in-memory snooze state: one Item per identifier,
// owned by a session-scoped Registry together with the snoozed counter.
//
// Every method must be called from the reconciliation goroutine. Nothing
// here locks; the owner serialises access.
package item

import (
	"context"
	"time"

	"github.com/hazyhaar/snooze/snooze/internal/display"
	"github.com/hazyhaar/snooze/snooze/internal/event"
	"github.com/hazyhaar/snooze/snooze/internal/store"
)

// Block is one on-page rendering of an item.
type Block interface {
	// DateField returns the raw value of the block's date field.
	DateField(ctx context.Context) (string, error)
	SetDateField(ctx context.Context, value string) error
	Render(ctx context.Context, o display.Outcome) error
}

// Item is the canonical snooze date of one identifier plus the blocks
// currently showing it. Blocks are never pruned: a block whose node left
// the page just fails its writes.
type Item struct {
	id      string
	date    time.Time
	snoozed bool
	blocks  []Block
	reg     *Registry
}

// ID returns the identifier.
func (it *Item) ID() string { return it.id }

// Date returns the snooze date (midnight, registry location).
func (it *Item) Date() time.Time { return it.date }

// Snoozed reports whether the date was in the future at last evaluation.
func (it *Item) Snoozed() bool { return it.snoozed }

// Blocks returns how many blocks are bound.
func (it *Item) Blocks() int { return len(it.blocks) }

// SetDate makes d the item's date. A date equal to the current one at day
// granularity is a no-op unless the clock has since crossed it, in which
// case the item wakes. Storage is written before the counter and the
// blocks are touched; if the write fails nothing else changes and the next
// scan retries.
func (it *Item) SetDate(ctx context.Context, d time.Time) error {
	r := it.reg
	d = store.Midnight(d, r.loc)
	now := r.now()
	future := d.After(now)
	if !it.date.IsZero() && it.date.Equal(d) && future == it.snoozed {
		return nil
	}

	if future {
		if err := r.dates.Set(ctx, it.id, d); err != nil {
			return err
		}
		it.date = d
		if !it.snoozed {
			it.snoozed = true
			r.transition(ctx, it, event.KindSnoozed, 1)
		}
	} else {
		if err := r.dates.Remove(ctx, it.id); err != nil {
			return err
		}
		it.date = d
		if it.snoozed {
			it.snoozed = false
			r.transition(ctx, it, event.KindWoken, -1)
		}
	}

	it.UpdateToBlocks(ctx)
	return nil
}

// AddBlock binds b. The caller guarantees b is not already bound.
func (it *Item) AddBlock(b Block) {
	it.blocks = append(it.blocks, b)
	it.reg.logger.Debug("item: block added", "id", it.id, "blocks", len(it.blocks))
}

// UpdateToBlocks pushes the current outcome and date to every bound block.
func (it *Item) UpdateToBlocks(ctx context.Context) {
	for _, b := range it.blocks {
		it.RenderBlock(ctx, b)
	}
}

// RenderBlock pushes the current outcome and date to one block.
func (it *Item) RenderBlock(ctx context.Context, b Block) {
	r := it.reg
	o := r.policy.Decide(it.date, r.now(), r.show())
	if err := b.Render(ctx, o); err != nil {
		r.logger.Debug("item: render failed", "id", it.id, "error", err)
		return
	}
	if err := b.SetDateField(ctx, store.FormatDay(it.date, r.loc)); err != nil {
		r.logger.Debug("item: set date field failed", "id", it.id, "error", err)
	}
}

// UpdateFromBlocks reads every bound block's date field back into the
// item. This is how a date-picker edit becomes state. Empty or unparseable
// fields are skipped.
func (it *Item) UpdateFromBlocks(ctx context.Context) {
	r := it.reg
	for _, b := range it.blocks {
		raw, err := b.DateField(ctx)
		if err != nil {
			r.logger.Debug("item: read date field failed", "id", it.id, "error", err)
			continue
		}
		d, err := store.ParseDay(raw, r.loc)
		if err != nil {
			r.logger.Debug("item: ignoring date field", "id", it.id, "value", raw)
			continue
		}
		if err := it.SetDate(ctx, d); err != nil {
			r.logger.Warn("item: set date failed", "id", it.id, "error", err)
		}
	}
}
