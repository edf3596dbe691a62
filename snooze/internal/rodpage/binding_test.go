package rodpage

import (
	"sync"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		in   string
		want Event
		ok   bool
	}{
		{`{"kind":"mutation"}`, Event{Kind: EventMutation}, true},
		{`{"kind":"toggle"}`, Event{Kind: EventToggle}, true},
		{`{"kind":"import","data":"{\"T1\":\"x\"}"}`, Event{Kind: EventImport, Data: `{"T1":"x"}`}, true},
		{`{"kind":"reboot"}`, Event{}, false},
		{`not json`, Event{}, false},
	}
	for _, tt := range tests {
		got, err := ParseEvent(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseEvent(%s): got %+v %v", tt.in, got, err)
		}
	}
}

func TestDispatch(t *testing.T) {
	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := map[string]string{}
	record := func(k, v string) {
		mu.Lock()
		seen[k] = v
		mu.Unlock()
		wg.Done()
	}
	h := Handlers{
		OnMutation: func() { record("mutation", "") },
		OnToggle:   func() { record("toggle", "") },
		OnExport:   func() { record("export", "") },
		OnImport:   func(d string) { record("import", d) },
	}
	wg.Add(4)
	dispatch(Event{Kind: EventMutation}, h)
	dispatch(Event{Kind: EventToggle}, h)
	dispatch(Event{Kind: EventExport}, h)
	dispatch(Event{Kind: EventImport, Data: "payload"}, h)
	wg.Wait()

	if len(seen) != 4 || seen["import"] != "payload" {
		t.Errorf("dispatched: got %v", seen)
	}

	// Missing handlers are skipped.
	dispatch(Event{Kind: EventToggle}, Handlers{})
}
