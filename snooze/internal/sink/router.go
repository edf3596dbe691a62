package sink

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/hazyhaar/snooze/snooze/internal/event"
)

// Router fans transitions out to every sink. A failing sink does not stop
// delivery to the others; all failures come back joined.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Send(ctx context.Context, t event.Transition) error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Send(ctx, t); err != nil {
			r.logger.Warn("sink: delivery failed", "item", t.ItemID, "kind", t.Kind, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Router) Close() error {
	var errs []error
	for _, s := range r.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Only passes through transitions of the listed kinds. No kinds passes
// everything.
func Only(s Sink, kinds ...event.Kind) Sink {
	if len(kinds) == 0 {
		return s
	}
	return &only{Sink: s, kinds: kinds}
}

type only struct {
	Sink
	kinds []event.Kind
}

func (o *only) Send(ctx context.Context, t event.Transition) error {
	if !slices.Contains(o.kinds, t.Kind) {
		return nil
	}
	return o.Sink.Send(ctx, t)
}
