// Package override holds the global show-snoozed flag.
package override

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/snooze/snooze/internal/store"
)

// Key is the storage key of the flag.
const Key = "snooze override show"

// View displays the flag.
type View interface {
	SetOverride(ctx context.Context, show bool) error
}

// Renderer re-renders every item.
type Renderer interface {
	RenderAll(ctx context.Context)
}

// Toggle is the flag, read once at load and changed only by Set or Flip.
type Toggle struct {
	kv     store.KV
	show   bool
	view   View
	logger *slog.Logger
}

// Load reads the flag. Anything but "true" (including a read error) means
// hidden.
func Load(ctx context.Context, kv store.KV, logger *slog.Logger) *Toggle {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Toggle{kv: kv, logger: logger}
	v, ok, err := kv.Get(ctx, Key)
	switch {
	case err != nil:
		logger.Warn("override: read failed, hiding snoozed", "error", err)
	case ok:
		t.show = v == "true"
	}
	return t
}

// Show reports the flag.
func (t *Toggle) Show() bool { return t.show }

// Attach binds v and brings it up to date.
func (t *Toggle) Attach(ctx context.Context, v View) error {
	t.view = v
	return v.SetOverride(ctx, t.show)
}

// Set persists show, updates the view and re-renders everything through
// r. Setting the current value re-renders anyway.
func (t *Toggle) Set(ctx context.Context, show bool, r Renderer) error {
	if err := t.kv.Set(ctx, Key, fmt.Sprint(show)); err != nil {
		return fmt.Errorf("override: persist: %w", err)
	}
	t.show = show
	t.logger.Info("override: set", "show", show)
	if t.view != nil {
		if err := t.view.SetOverride(ctx, show); err != nil {
			t.logger.Debug("override: view update failed", "error", err)
		}
	}
	if r != nil {
		r.RenderAll(ctx)
	}
	return nil
}

// Flip inverts the flag.
func (t *Toggle) Flip(ctx context.Context, r Renderer) error {
	return t.Set(ctx, !t.show, r)
}
