package rodpage

import (
	"context"
	"fmt"

	"github.com/hazyhaar/snooze/snooze/internal/toolbar"
)

const installJS = `function(c) {
	const anchor = document.getElementsByClassName(c.anchor)[0];
	if (!anchor) return false;
	if (anchor.getElementsByClassName(c.toggle).length > 0) return true;

	const send = function(msg) { window[c.binding](JSON.stringify(msg)); };
	const button = function(cls, inner) {
		const a = document.createElement('A');
		a.classList.add(c.button, cls);
		a.innerHTML = inner;
		anchor.appendChild(a);
		return a;
	};

	button(c.toggle, c.toggleHTML).onclick = function() { send({kind: 'toggle'}); };
	button(c.export, c.exportHTML).onclick = function() { send({kind: 'export'}); };

	const upload = document.createElement('INPUT');
	upload.type = 'file';
	upload.style.display = 'none';
	upload.addEventListener('change', function(e) {
		const file = e.target.files[0];
		if (!file) return;
		const reader = new FileReader();
		reader.onload = function(ev) { send({kind: 'import', data: ev.target.result}); };
		reader.readAsText(file);
		upload.value = '';
	});
	document.body.appendChild(upload);
	button(c.import, c.importHTML).onclick = function() { upload.click(); };
	return true;
}`

type installArgs struct {
	Anchor     string `json:"anchor"`
	Button     string `json:"button"`
	Toggle     string `json:"toggle"`
	Export     string `json:"export"`
	Import     string `json:"import"`
	ToggleHTML string `json:"toggleHTML"`
	ExportHTML string `json:"exportHTML"`
	ImportHTML string `json:"importHTML"`
	Binding    string `json:"binding"`
}

// InstallToolbar adds the toggle, export and import buttons to the main
// menu. Button clicks arrive on the binding. Requires Bind first.
func (p *Page) InstallToolbar(ctx context.Context) (toolbar.Toolbar, error) {
	res, err := p.page.Context(ctx).Eval(installJS, installArgs{
		Anchor:     toolbar.AnchorClass,
		Button:     toolbar.ButtonClass,
		Toggle:     toolbar.ToggleClass,
		Export:     toolbar.ExportClass,
		Import:     toolbar.ImportClass,
		ToggleHTML: toolbar.ToggleHTML,
		ExportHTML: toolbar.ExportHTML,
		ImportHTML: toolbar.ImportHTML,
		Binding:    BindingName,
	})
	if err != nil {
		return nil, fmt.Errorf("rodpage: install toolbar: %w", err)
	}
	if !res.Value.Bool() {
		return nil, toolbar.ErrNoAnchor
	}
	return &bar{p: p}, nil
}

type bar struct{ p *Page }

func (b *bar) SetCount(ctx context.Context, n int) error {
	_, err := b.p.page.Context(ctx).Eval(`function(id, n) {
		const c = document.getElementById(id);
		if (c && c.textContent !== n) c.textContent = n;
	}`, toolbar.CounterID, fmt.Sprint(n))
	return err
}

func (b *bar) SetOverride(ctx context.Context, show bool) error {
	_, err := b.p.page.Context(ctx).Eval(`function(cls, unread, show) {
		const t = document.getElementsByClassName(cls)[0];
		if (t) t.classList.toggle(unread, !show);
	}`, toolbar.ToggleClass, toolbar.UnreadClass, show)
	return err
}

func (b *bar) Download(ctx context.Context, name string, data []byte) error {
	_, err := b.p.page.Context(ctx).Eval(`function(name, data) {
		const a = document.createElement('A');
		a.style.display = 'none';
		a.setAttribute('download', name);
		a.setAttribute('href', 'data:text/json;charset=utf-8,' + encodeURIComponent(data));
		document.body.appendChild(a);
		a.click();
		a.remove();
	}`, name, string(data))
	return err
}
