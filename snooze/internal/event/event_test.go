package event

import "testing"

func TestUnmarshal_WireNames(t *testing.T) {
	data := []byte(`{"id":"e1","session_id":"s1","item_id":"T42","kind":"woken","date":"2026-10-19","snoozed":3,"timestamp":1700000000000}`)
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ItemID != "T42" || got.Kind != KindWoken || got.Snoozed != 3 {
		t.Errorf("Unmarshal: got %+v", got)
	}
	if _, err := Unmarshal([]byte(`{`)); err == nil {
		t.Error("Unmarshal: expected error on truncated input")
	}
}
