// Package sink delivers transition events to output backends.
package sink

import (
	"context"

	"github.com/hazyhaar/snooze/snooze/internal/event"
)

// Sink is the output interface. Implementations deliver transitions to
// different backends (stdout, webhook, in-process callback).
type Sink interface {
	Send(ctx context.Context, t event.Transition) error
	Close() error
}
