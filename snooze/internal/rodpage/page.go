// Package rodpage runs the binder against a live dashboard tab through
// rod. Every DOM touch is one Runtime.callFunctionOn on an element handle;
// writes compare before they assign so a quiet scan stays quiet.
package rodpage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/snooze/snooze/internal/binder"
	"github.com/hazyhaar/snooze/snooze/internal/display"
)

var errNoField = errors.New("rodpage: block has no date field")

// Page adapts a rod page to binder.Page.
type Page struct {
	page *rod.Page
}

// New wraps p.
func New(p *rod.Page) *Page {
	return &Page{page: p}
}

// Rod returns the wrapped page.
func (p *Page) Rod() *rod.Page { return p.page }

// Links returns every entry link, hrefs resolved.
func (p *Page) Links(ctx context.Context) ([]binder.Link, error) {
	els, err := p.page.Context(ctx).Elements("." + binder.LinkClass)
	if err != nil {
		return nil, fmt.Errorf("rodpage: links: %w", err)
	}
	out := make([]binder.Link, 0, len(els))
	for _, el := range els {
		href := ""
		if v, err := el.Property("href"); err == nil && !v.Nil() {
			href = v.Str()
		}
		out = append(out, &link{page: p.page, el: el, href: href})
	}
	return out, nil
}

type link struct {
	page *rod.Page
	el   *rod.Element
	href string
}

func (l *link) Href() string { return l.href }

const climbJS = `function() {
	let n = this;
	while (n && n.nodeName !== 'LI') {
		if (n === document.body) return null;
		n = n.parentNode;
	}
	return n || null;
}`

func (l *link) Container(ctx context.Context) (binder.Container, bool, error) {
	obj, err := l.el.Context(ctx).Evaluate(rod.Eval(climbJS).ByObject())
	if err != nil {
		return nil, false, fmt.Errorf("rodpage: climb: %w", err)
	}
	if obj.ObjectID == "" || obj.Subtype == proto.RuntimeRemoteObjectSubtypeNull {
		return nil, false, nil
	}
	el, err := l.page.ElementFromObject(obj)
	if err != nil {
		return nil, false, fmt.Errorf("rodpage: container handle: %w", err)
	}
	return &container{el: el}, true, nil
}

func (l *link) Release() { l.el.Release() }

type container struct {
	el *rod.Element
}

func (c *container) call(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	return c.el.Context(ctx).Eval(js, args...)
}

const ensureActionsJS = `function(cls) {
	if (this.getElementsByClassName(cls).length === 1) return true;
	const frame = this.firstElementChild;
	if (!frame || frame.children.length !== 1) return false;
	const ul = document.createElement('UL');
	ul.classList.add(cls);
	frame.appendChild(ul);
	return true;
}`

func (c *container) EnsureActions(ctx context.Context) (bool, error) {
	res, err := c.call(ctx, ensureActionsJS, binder.ActionsClass)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

const hasControlJS = `function(sigil) {
	return this.querySelector('[data-sigil="' + sigil + '"]') !== null;
}`

func (c *container) HasControl(ctx context.Context) (bool, error) {
	res, err := c.call(ctx, hasControlJS, binder.ControlSigil)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

const addControlJS = `function(cls, markup) {
	const acts = this.getElementsByClassName(cls);
	if (acts.length !== 1) throw new Error('no actions list');
	acts[0].insertAdjacentHTML('beforeend', markup);
}`

func (c *container) AddControl(ctx context.Context, day string) error {
	_, err := c.call(ctx, addControlJS, binder.ActionsClass, binder.ControlHTML(day))
	return err
}

const correctOffsetJS = `function(actsCls, boxCls, pad) {
	const acts = this.getElementsByClassName(actsCls)[0];
	if (!acts || acts.offsetWidth <= 0) return;
	const box = this.getElementsByClassName(boxCls)[0];
	if (!box) return;
	const m = (acts.offsetWidth + pad) + 'px';
	if (box.style.marginRight !== m) box.style.marginRight = m;
}`

func (c *container) CorrectOffset(ctx context.Context) error {
	_, err := c.call(ctx, correctOffsetJS, binder.ActionsClass, binder.ContentBoxClass, binder.OffsetPadding)
	return err
}

const dateFieldJS = `function(cls) {
	const i = this.getElementsByClassName(cls)[0];
	return i ? i.value : null;
}`

func (c *container) DateField(ctx context.Context) (string, error) {
	res, err := c.call(ctx, dateFieldJS, binder.DateInputClass)
	if err != nil {
		return "", err
	}
	if res.Value.Nil() {
		return "", errNoField
	}
	return res.Value.Str(), nil
}

const setDateFieldJS = `function(cls, v) {
	const i = this.getElementsByClassName(cls)[0];
	if (!i) return false;
	if (i.value !== v) i.value = v;
	return true;
}`

func (c *container) SetDateField(ctx context.Context, v string) error {
	res, err := c.call(ctx, setDateFieldJS, binder.DateInputClass, v)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return errNoField
	}
	return nil
}

const renderJS = `function(kind, color) {
	const s = this.style;
	if (kind === 'hidden') {
		if (s.display !== 'none') s.display = 'none';
		return;
	}
	if (s.display !== '') s.display = '';
	const bg = kind === 'marked' ? color : '';
	if (s.backgroundColor !== bg) s.backgroundColor = bg;
}`

func (c *container) Render(ctx context.Context, o display.Outcome) error {
	_, err := c.call(ctx, renderJS, o.Kind.String(), o.Color)
	return err
}

func (c *container) Release() { c.el.Release() }
