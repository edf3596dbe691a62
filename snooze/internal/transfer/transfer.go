// Package transfer moves the raw store in and out as a JSON object of
// key to string, the format the export button downloads.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hazyhaar/snooze/snooze/internal/binder"
	"github.com/hazyhaar/snooze/snooze/internal/override"
	"github.com/hazyhaar/snooze/snooze/internal/store"
)

// FileName is the suggested download name.
const FileName = "phabricator-snoozed.json"

// Filter decides which imported keys are written.
type Filter int

const (
	// Strict accepts identifiers and the override key.
	Strict Filter = iota
	// Open accepts every key.
	Open
)

func (f Filter) String() string {
	if f == Open {
		return "open"
	}
	return "strict"
}

// ParseFilter reads "strict" or "open". Empty means Strict.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "open":
		return Open, nil
	}
	return Strict, fmt.Errorf("transfer: unknown import filter %q", s)
}

// Accepts reports whether key passes f.
func (f Filter) Accepts(key string) bool {
	return f == Open || key == override.Key || binder.ValidID(key)
}

// Export serialises every entry of kv.
func Export(ctx context.Context, kv store.KV) ([]byte, error) {
	all, err := kv.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("transfer: export: %w", err)
	}
	data, err := json.Marshal(all)
	if err != nil {
		return nil, fmt.Errorf("transfer: export: %w", err)
	}
	return data, nil
}

// Report lists what an import did, keys sorted.
type Report struct {
	Written  []string `json:"written"`
	Rejected []string `json:"rejected"`
}

// Import writes every accepted entry of data into kv. Values must be JSON
// strings. The whole object is validated before anything is written. On a
// write error the returned report still lists what reached kv.
func Import(ctx context.Context, kv store.KV, data []byte, f Filter) (Report, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Report{}, fmt.Errorf("transfer: import: %w", err)
	}

	entries := make(map[string]string, len(raw))
	var rep Report
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil || !f.Accepts(k) {
			rep.Rejected = append(rep.Rejected, k)
			continue
		}
		entries[k] = s
	}
	rep.Written = store.Keys(entries)
	sort.Strings(rep.Rejected)

	if b, ok := kv.(store.Batcher); ok {
		if err := b.SetMany(ctx, entries); err != nil {
			return Report{}, fmt.Errorf("transfer: import: %w", err)
		}
		return rep, nil
	}
	// Without a batch earlier writes stay; Written then lists only those.
	keys := rep.Written
	rep.Written = make([]string, 0, len(keys))
	for _, k := range keys {
		if err := kv.Set(ctx, k, entries[k]); err != nil {
			return rep, fmt.Errorf("transfer: import %s: %w", k, err)
		}
		rep.Written = append(rep.Written, k)
	}
	return rep, nil
}
