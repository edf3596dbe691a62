package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/snooze/snooze/internal/event"
)

// Stdout writes one JSON line per transition.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Send(_ context.Context, t event.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: "transition", At: t.Timestamp, Data: t})
}

func (s *Stdout) Close() error { return nil }

// envelope is the wire shape shared by stdout and webhook deliveries.
type envelope struct {
	Type string           `json:"type"`
	At   int64            `json:"at"` // epoch milliseconds
	Data event.Transition `json:"data"`
}
