// Package idgen mints the identifiers the engine stamps on sessions and
// transition events. Generators are plain functions so tests can swap in
// a deterministic one.
package idgen

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 produces time-sortable RFC 9562 identifiers.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Short produces base-36 identifiers of the given length.
func Short(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// Prefixed prepends prefix to every ID from gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string { return prefix + gen() }
}

// Sequence returns a deterministic generator: prefix1, prefix2, ...
// Not safe for concurrent use.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

var (
	// Session names one registry lifetime; a restart mints a new one.
	Session Generator = Prefixed("ses_", UUIDv7())
	// Event names one snoozed/woken transition.
	Event Generator = Prefixed("evt_", UUIDv7())
	// Trace names one HTTP request.
	Trace Generator = Short(8)
)

// ParseUUID validates the UUID part of a possibly prefixed ID.
func ParseUUID(id, prefix string) (uuid.UUID, error) {
	if len(id) < len(prefix) || id[:len(prefix)] != prefix {
		return uuid.Nil, fmt.Errorf("idgen: %q lacks prefix %q", id, prefix)
	}
	u, err := uuid.Parse(id[len(prefix):])
	if err != nil {
		return uuid.Nil, fmt.Errorf("idgen: invalid UUID in %q: %w", id, err)
	}
	return u, nil
}
