package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// isoLayout matches the browser's Date.toISOString output, which is what
// browser-written stores contain.
const isoLayout = "2006-01-02T15:04:05.000Z"

// DayLayout is the date field format shared with the date picker.
const DayLayout = "2006-01-02"

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// FormatISO encodes a date for persistence.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISO decodes a persisted date and normalises it to midnight in loc.
// A bare YYYY-MM-DD is accepted too.
func ParseISO(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Midnight(t, loc), nil
	}
	if t, err := time.ParseInLocation(DayLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("store: unparseable date %q", s)
}

// FormatDay renders the date field value.
func FormatDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// ParseDay reads a date field value as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: bad day %q: %w", s, err)
	}
	return t, nil
}

// Dates is the per-item snooze date store over a KV backend.
type Dates struct {
	kv     KV
	loc    *time.Location
	logger *slog.Logger
}

// NewDates wraps kv. A nil loc means time.Local.
func NewDates(kv KV, loc *time.Location, logger *slog.Logger) *Dates {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dates{kv: kv, loc: loc, logger: logger}
}

// Location is the zone days are cut in.
func (d *Dates) Location() *time.Location { return d.loc }

// KV returns the underlying backend.
func (d *Dates) KV() KV { return d.kv }

// Get returns the stored date for id. Read failures and corrupt values are
// reported as absent: an unreadable date means "not snoozed".
func (d *Dates) Get(ctx context.Context, id string) (time.Time, bool) {
	raw, ok, err := d.kv.Get(ctx, id)
	if err != nil {
		d.logger.Warn("store: read failed, treating as not snoozed", "id", id, "error", err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseISO(raw, d.loc)
	if err != nil {
		d.logger.Debug("store: corrupt date ignored", "id", id, "value", raw)
		return time.Time{}, false
	}
	return t, true
}

// Set persists the date for id.
func (d *Dates) Set(ctx context.Context, id string, t time.Time) error {
	return d.kv.Set(ctx, id, FormatISO(t))
}

// Remove drops any stored date for id.
func (d *Dates) Remove(ctx context.Context, id string) error {
	return d.kv.Remove(ctx, id)
}
