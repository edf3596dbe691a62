package rodpage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/proto"
)

// BindingName is the window function page scripts call to reach Go.
const BindingName = "__snooze_binding"

// DefaultDatepickerScript is the host's date picker behavior.
const DefaultDatepickerScript = "https://secure.phabricator.com/res/phabricator/8ae55229/rsrc/js/core/behavior-fancy-datepicker.js"

// Event kinds sent through the binding.
const (
	EventMutation = "mutation"
	EventToggle   = "toggle"
	EventExport   = "export"
	EventImport   = "import"
)

// Event is one binding call.
type Event struct {
	Kind string `json:"kind"`
	Data string `json:"data,omitempty"`
}

// ParseEvent decodes a binding payload.
func ParseEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("rodpage: bad binding payload: %w", err)
	}
	switch ev.Kind {
	case EventMutation, EventToggle, EventExport, EventImport:
		return ev, nil
	}
	return Event{}, fmt.Errorf("rodpage: unknown event kind %q", ev.Kind)
}

// Handlers receive binding events. OnMutation runs on the event goroutine
// and must not block; the others run on their own goroutine.
type Handlers struct {
	OnMutation func()
	OnToggle   func()
	OnExport   func()
	OnImport   func(data string)
}

// Bind registers the binding on the tab and dispatches calls to h until
// ctx is done. The binding survives reloads.
func (p *Page) Bind(ctx context.Context, h Handlers, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := (proto.RuntimeAddBinding{Name: BindingName}).Call(p.page); err != nil {
		return fmt.Errorf("rodpage: add binding: %w", err)
	}

	wait := p.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != BindingName {
			return
		}
		ev, err := ParseEvent(e.Payload)
		if err != nil {
			logger.Debug("rodpage: ignoring binding call", "error", err)
			return
		}
		dispatch(ev, h)
	})
	go wait()
	return nil
}

func dispatch(ev Event, h Handlers) {
	switch ev.Kind {
	case EventMutation:
		if h.OnMutation != nil {
			h.OnMutation()
		}
	case EventToggle:
		if h.OnToggle != nil {
			go h.OnToggle()
		}
	case EventExport:
		if h.OnExport != nil {
			go h.OnExport()
		}
	case EventImport:
		if h.OnImport != nil {
			go h.OnImport(ev.Data)
		}
	}
}

// One binding call per script turn however many records arrive.
const observeJS = `function(name) {
	if (window.__snoozeObserver) window.__snoozeObserver.disconnect();
	let pending = false;
	const o = new MutationObserver(function() {
		if (pending) return;
		pending = true;
		setTimeout(function() {
			pending = false;
			window[name](JSON.stringify({kind: 'mutation'}));
		}, 0);
	});
	o.observe(document.body, {attributes: true, childList: true, characterData: true, subtree: true});
	window.__snoozeObserver = o;
}`

// Observe installs the MutationObserver that feeds EventMutation. Must be
// called again after every reload.
func (p *Page) Observe(ctx context.Context) error {
	if _, err := p.page.Context(ctx).Eval(observeJS, BindingName); err != nil {
		return fmt.Errorf("rodpage: observe: %w", err)
	}
	return nil
}

const datepickerJS = `function(src, weekStart) {
	if (window.__snoozeDatepicker) return;
	window.__snoozeDatepicker = true;
	const s = document.createElement('SCRIPT');
	s.type = 'text/javascript';
	s.src = src;
	s.onload = function() {
		JX.initBehaviors({'fancy-datepicker': [{format: 'Y-m-d', weekStart: weekStart}]});
	};
	document.body.appendChild(s);
}`

// InjectDatepicker loads the host's date picker behavior and binds it to
// the controls. An empty src uses DefaultDatepickerScript.
func (p *Page) InjectDatepicker(ctx context.Context, src string, weekStart int) error {
	if src == "" {
		src = DefaultDatepickerScript
	}
	if _, err := p.page.Context(ctx).Eval(datepickerJS, src, weekStart); err != nil {
		return fmt.Errorf("rodpage: datepicker: %w", err)
	}
	return nil
}

// Reload reloads the tab and waits for load.
func (p *Page) Reload(ctx context.Context) error {
	pg := p.page.Context(ctx)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := pg.Reload(); err != nil {
		return fmt.Errorf("rodpage: reload: %w", err)
	}
	wait()
	return nil
}

