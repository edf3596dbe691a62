// Package event defines what the engine emits when an item falls asleep or
// wakes up. Consumers (webhooks, log shippers) decode these.
package event

import "encoding/json"

// Kind of transition.
type Kind string

const (
	KindSnoozed Kind = "snoozed" // not snoozed -> snoozed
	KindWoken   Kind = "woken"   // snoozed -> not snoozed
)

// Transition is one snooze state change of one item.
type Transition struct {
	ID        string `json:"id"`         // UUIDv7
	SessionID string `json:"session_id"` // engine session that observed it
	ItemID    string `json:"item_id"`
	Kind      Kind   `json:"kind"`
	Date      string `json:"date"`      // YYYY-MM-DD
	Snoozed   int    `json:"snoozed"`   // counter after the transition
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Marshal serialises a Transition to JSON.
func Marshal(t *Transition) ([]byte, error) {
	return json.Marshal(t)
}

// Unmarshal deserialises a Transition from JSON.
func Unmarshal(data []byte) (*Transition, error) {
	var t Transition
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
