// Package binder discovers list entries on the page, resolves them to
// blocks and decorates each block with a snooze control exactly once.
//
// The DOM is reached only through the Page, Link and Container interfaces;
// rodpage implements them over a live tab and htmlpage over a parsed
// document.
package binder

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/hazyhaar/snooze/snooze/internal/item"
	"github.com/hazyhaar/snooze/snooze/internal/store"
)

// Host page class names and markers.
const (
	LinkClass       = "phui-object-item-link"
	ActionsClass    = "phui-object-item-actions"
	ContentBoxClass = "phui-object-item-content-box"
	DateInputClass  = "date-input"
	ControlSigil    = "phabricator-date-control"
	DateInputSigil  = "date-input"
	TimeInputSigil  = "time-input"
	CalendarSigil   = "calendar-button"

	// OffsetPadding is added to the actions width when shifting the content box.
	OffsetPadding = 6
)

// idFromPath matches the last segment of a task (T123) or audit (rXYZ) link.
var idFromPath = regexp.MustCompile(`/(T[0-9]+|r[a-zA-Z0-9]+)$`)

// IDPattern matches a bare identifier.
var IDPattern = regexp.MustCompile(`^(T[0-9]+|r[a-zA-Z0-9]+)$`)

// ValidID reports whether s is a well-formed identifier.
func ValidID(s string) bool { return IDPattern.MatchString(s) }

// ParseID extracts the identifier from a link target. Absolute and
// relative targets are accepted; origin, query and fragment are ignored.
func ParseID(href string) (string, bool) {
	path := href
	if u, err := url.Parse(href); err == nil {
		path = u.Path
	}
	m := idFromPath.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Page enumerates candidate entries.
type Page interface {
	// Links returns every element carrying LinkClass, in document order.
	Links(ctx context.Context) ([]Link, error)
}

// Link is one clickable entry.
type Link interface {
	Href() string
	// Container climbs to the nearest enclosing list item. false when the
	// document body is reached first.
	Container(ctx context.Context) (Container, bool, error)
	Release()
}

// Container is a list-item block. It is the item.Block the registry renders.
type Container interface {
	item.Block
	// EnsureActions locates the actions list or creates it when the block's
	// frame has exactly one child. false means the block cannot host a control.
	EnsureActions(ctx context.Context) (bool, error)
	// HasControl reports whether a snooze control is already present.
	HasControl(ctx context.Context) (bool, error)
	// AddControl appends the control with its date field preset to day.
	AddControl(ctx context.Context, day string) error
	// CorrectOffset widens the content box's right margin to clear the
	// actions list. Writes only when the margin changes.
	CorrectOffset(ctx context.Context) error
	Release()
}

// Result counts one scan's outcome.
type Result struct {
	Seen     int // links enumerated
	Attached int // new controls created
	Skipped  int // unparseable link, no container, or a failed attach
}

// Binder decorates blocks and registers them on items.
type Binder struct {
	reg    *item.Registry
	logger *slog.Logger
}

// New creates a binder over reg.
func New(reg *item.Registry, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{reg: reg, logger: logger}
}

// Attach decorates c for it. When c already carries a control only the
// offset correction runs. Returns true when c was newly registered.
func (b *Binder) Attach(ctx context.Context, c Container, it *item.Item) (bool, error) {
	ok, err := c.EnsureActions(ctx)
	if err != nil {
		return false, fmt.Errorf("binder: actions: %w", err)
	}
	if !ok {
		return false, nil
	}

	has, err := c.HasControl(ctx)
	if err != nil {
		return false, fmt.Errorf("binder: control check: %w", err)
	}
	attached := false
	if !has {
		if err := c.AddControl(ctx, store.FormatDay(it.Date(), b.reg.Location())); err != nil {
			return false, fmt.Errorf("binder: add control: %w", err)
		}
		it.AddBlock(c)
		it.RenderBlock(ctx, c)
		attached = true
	}

	if err := c.CorrectOffset(ctx); err != nil {
		b.logger.Debug("binder: offset correction failed", "id", it.ID(), "error", err)
	}
	return attached, nil
}

// Scan runs the decorate phase over every link on the page. Per-entry
// failures are logged and skipped; only a failure to enumerate links is
// returned.
func (b *Binder) Scan(ctx context.Context, p Page) (Result, error) {
	var res Result
	links, err := p.Links(ctx)
	if err != nil {
		return res, fmt.Errorf("binder: links: %w", err)
	}
	res.Seen = len(links)

	for _, l := range links {
		if ctx.Err() != nil {
			l.Release()
			continue
		}
		attached, skipped := b.bind(ctx, l)
		l.Release()
		if attached {
			res.Attached++
		}
		if skipped {
			res.Skipped++
		}
	}
	return res, ctx.Err()
}

func (b *Binder) bind(ctx context.Context, l Link) (attached, skipped bool) {
	href := l.Href()
	id, ok := ParseID(href)
	if !ok {
		b.logger.Debug("binder: skipping link", "href", href)
		return false, true
	}

	c, ok, err := l.Container(ctx)
	if err != nil {
		b.logger.Debug("binder: container lookup failed", "id", id, "error", err)
		return false, true
	}
	if !ok {
		return false, true
	}

	it, err := b.reg.Resolve(ctx, id)
	if err != nil {
		b.logger.Warn("binder: resolve failed", "id", id, "error", err)
		c.Release()
		return false, true
	}

	attached, err = b.Attach(ctx, c, it)
	if err != nil {
		b.logger.Debug("binder: attach failed", "id", id, "error", err)
	}
	if !attached {
		// Only containers registered on an item keep their handle.
		c.Release()
	}
	return attached, err != nil
}

// ControlHTML is the markup of one snooze control with its date field set
// to day. The time input is never read but the date picker requires it.
func ControlHTML(day string) string {
	return `<li class="phui-list-item-view phui-list-item-type-link phui-list-item-has-icon" data-sigil="` + ControlSigil + `">` +
		`<input type="hidden" class="` + DateInputClass + `" data-sigil="` + DateInputSigil + `" value="` + html.EscapeString(day) + `">` +
		`<input type="hidden" data-sigil="` + TimeInputSigil + `">` +
		`<a class="phui-list-item-href" data-sigil="` + CalendarSigil + `">` +
		`<span class="visual-only phui-icon-view phui-font-fa fa-clock-o phui-list-item-icon" aria-hidden="true"></span></a></li>`
}
