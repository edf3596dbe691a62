package snooze

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/snooze/snooze/internal/event"
	"github.com/hazyhaar/snooze/snooze/internal/sink"
)

// Transition is emitted each time an item falls asleep or wakes up.
type Transition = event.Transition

// Transition kinds.
const (
	KindSnoozed = event.KindSnoozed
	KindWoken   = event.KindWoken
)

// Sink is the output interface for transitions.
type Sink = sink.Sink

// NewStdoutSink creates a JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink delivers transitions to an in-process function.
func NewCallbackSink(fn func(ctx context.Context, t Transition) error) Sink {
	return sink.NewCallback(fn)
}

// Journal is an SQLite history of transitions.
type Journal = sink.Journal

// JournalFilter narrows Journal.Query.
type JournalFilter = sink.JournalFilter

// OpenJournal opens (or creates) a journal file.
func OpenJournal(path string) (*Journal, error) {
	return sink.OpenJournal(path)
}

// SinksFromConfig builds the sinks listed in cfg. stdout sinks write to w.
// Journal sinks open their file here; the engine closes them on exit.
func SinksFromConfig(cfg []SinkConfig, w io.Writer, logger *slog.Logger) ([]Sink, error) {
	var out []Sink
	fail := func(err error) ([]Sink, error) {
		for _, s := range out {
			s.Close()
		}
		return nil, err
	}
	for i, c := range cfg {
		var s Sink
		switch c.Type {
		case "stdout":
			s = sink.NewStdout(w)
		case "webhook":
			s = sink.NewWebhook(c.URL,
				sink.WithWebhookRetries(c.Retries),
				sink.WithWebhookBackoff(c.Backoff),
				sink.WithWebhookLogger(logger))
		case "journal":
			j, err := sink.OpenJournal(c.Path)
			if err != nil {
				return fail(fmt.Errorf("snooze: sinks[%d]: %w", i, err))
			}
			s = j
		default:
			return fail(fmt.Errorf("snooze: sinks[%d]: unknown type %q", i, c.Type))
		}
		var kinds []event.Kind
		for _, k := range c.Kinds {
			kinds = append(kinds, event.Kind(k))
		}
		out = append(out, sink.Only(s, kinds...))
	}
	return out, nil
}
