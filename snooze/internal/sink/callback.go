package sink

import (
	"context"

	"github.com/hazyhaar/snooze/snooze/internal/event"
)

// Func is called for each transition.
type Func func(ctx context.Context, t event.Transition) error

// Callback delivers transitions as in-process function calls.
type Callback struct {
	fn Func
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn Func) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, t event.Transition) error {
	if c.fn != nil {
		return c.fn(ctx, t)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
