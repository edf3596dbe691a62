// Package display maps an item's snooze date and the global override flag
// to what its blocks should look like.
package display

import (
	"fmt"
	"math"
	"time"
)

// Kind is the rendering instruction for a block.
type Kind int

const (
	Hidden Kind = iota
	ShownPlain
	ShownMarked
)

func (k Kind) String() string {
	switch k {
	case Hidden:
		return "hidden"
	case ShownPlain:
		return "shown"
	case ShownMarked:
		return "marked"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is the per-block result. Urgency and Color are only set for
// ShownMarked.
type Outcome struct {
	Kind    Kind
	Urgency float64 // 0..1, 1 = wakes up now
	Color   string  // CSS colour
}

// Policy holds the tunables of the mapping. The zero value is not useful;
// start from DefaultPolicy.
type Policy struct {
	// LookaheadDays is the window over which urgency fades from 1 to 0.
	LookaheadDays float64
	// HideUnsnoozed hides active items too while the override is off.
	HideUnsnoozed bool
}

// DefaultPolicy returns the stock mapping.
func DefaultPolicy() Policy {
	return Policy{LookaheadDays: 21, HideUnsnoozed: true}
}

// Decide returns the outcome for an item dated date, evaluated at now.
func (p Policy) Decide(date, now time.Time, show bool) Outcome {
	snoozed := date.After(now)
	if !show {
		if snoozed || p.HideUnsnoozed {
			return Outcome{Kind: Hidden}
		}
		return Outcome{Kind: ShownPlain}
	}
	if !snoozed {
		return Outcome{Kind: ShownPlain}
	}
	u := p.Urgency(date, now)
	return Outcome{Kind: ShownMarked, Urgency: u, Color: Color(u)}
}

// Urgency is 1 for a date about to elapse and 0 at or past the lookahead.
func (p Policy) Urgency(date, now time.Time) float64 {
	window := p.LookaheadDays
	if window <= 0 {
		window = DefaultPolicy().LookaheadDays
	}
	days := date.Sub(now).Hours() / 24
	return 1 - clamp(days/window, 0, 1)
}

// Color maps urgency to a yellow tint, paler as the wake-up approaches.
func Color(urgency float64) string {
	b := math.Round(50 + 150*clamp(urgency, 0, 1))
	return fmt.Sprintf("rgb(255, 255, %d)", int(b))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
