// Package htmlpage runs the binder against a parsed HTML document instead
// of a live tab. It backs `snooze render` and every test that needs a page.
//
// There is no layout engine: an actions list is ItemWidth pixels wide per
// child, which is enough for the offset correction to have something to
// correct.
package htmlpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/snooze/snooze/internal/binder"
	"github.com/hazyhaar/snooze/snooze/internal/display"
	"github.com/hazyhaar/snooze/snooze/internal/toolbar"
)

// DefaultItemWidth is the width of one action in pixels.
const DefaultItemWidth = 30

var errNoField = errors.New("htmlpage: block has no date field")

// Download is a file the page offered to the user.
type Download struct {
	Name string
	Data []byte
}

// Document is a page held in memory. All methods are safe for concurrent
// use; DOM writes that change something fire the mutation callback.
type Document struct {
	mu        sync.Mutex
	src       []byte
	root      *html.Node
	onMutate  func()
	downloads []Download
	reloads   int

	// ItemWidth is the width of one action. Default DefaultItemWidth.
	ItemWidth int
}

// Parse reads a document. Reload re-parses the same bytes.
func Parse(r io.Reader) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: read: %w", err)
	}
	root, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("htmlpage: parse: %w", err)
	}
	return &Document{src: src, root: root, ItemWidth: DefaultItemWidth}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(bytes.NewReader([]byte(s)))
}

// OnMutate sets the callback fired after each DOM change.
func (d *Document) OnMutate(fn func()) {
	d.mu.Lock()
	d.onMutate = fn
	d.mu.Unlock()
}

// mutated is only called with d.mu held.
func (d *Document) mutated() {
	if d.onMutate != nil {
		d.onMutate()
	}
}

// Render writes the current document.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document, or returns the render error text.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return err.Error()
	}
	return buf.String()
}

// Reload throws away every change and re-parses the original bytes, the
// way a browser reload drops script decorations.
func (d *Document) Reload(context.Context) error {
	root, err := html.Parse(bytes.NewReader(d.src))
	if err != nil {
		return fmt.Errorf("htmlpage: reload: %w", err)
	}
	d.mu.Lock()
	d.root = root
	d.reloads++
	d.mu.Unlock()
	return nil
}

// Reloads counts Reload calls.
func (d *Document) Reloads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reloads
}

// Downloads returns what the toolbar offered so far.
func (d *Document) Downloads() []Download {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Download, len(d.downloads))
	copy(out, d.downloads)
	return out
}

// Links returns every entry link in document order.
func (d *Document) Links(ctx context.Context) ([]binder.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes := findAll(d.root, byClass(binder.LinkClass))
	out := make([]binder.Link, len(nodes))
	for i, n := range nodes {
		out[i] = &link{d: d, n: n}
	}
	return out, nil
}

// EditDate writes day into the date field of the first block showing id,
// as a date-picker pick would.
func (d *Document) EditDate(id, day string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range findAll(d.root, byClass(binder.LinkClass)) {
		lid, ok := binder.ParseID(getAttr(l, "href"))
		if !ok || lid != id {
			continue
		}
		li := enclosingItem(l)
		if li == nil {
			continue
		}
		in := findFirst(li, byClass(binder.DateInputClass))
		if in == nil {
			continue
		}
		if setAttr(in, "value", day) {
			d.mutated()
		}
		return nil
	}
	return fmt.Errorf("htmlpage: no decorated block for %s", id)
}

// BlockState is what one list item looks like.
type BlockState struct {
	ID          string `json:"id"`
	Display     string `json:"display,omitempty"`
	Background  string `json:"background,omitempty"`
	Date        string `json:"date,omitempty"`
	Controls    int    `json:"controls"`
	MarginRight string `json:"margin_right,omitempty"`
}

// Hidden reports whether the block is display:none.
func (b BlockState) Hidden() bool { return b.Display == "none" }

// Blocks describes every list item reached from an entry link.
func (d *Document) Blocks() []BlockState {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []BlockState
	for _, l := range findAll(d.root, byClass(binder.LinkClass)) {
		id, ok := binder.ParseID(getAttr(l, "href"))
		li := enclosingItem(l)
		if !ok || li == nil {
			continue
		}
		st := parseStyle(getAttr(li, "style"))
		bs := BlockState{
			ID:         id,
			Display:    st.get("display"),
			Background: st.get("background-color"),
			Controls:   len(findAll(li, byAttr("data-sigil", binder.ControlSigil))),
		}
		if in := findFirst(li, byClass(binder.DateInputClass)); in != nil {
			bs.Date = getAttr(in, "value")
		}
		if box := findFirst(li, byClass(binder.ContentBoxClass)); box != nil {
			bs.MarginRight = parseStyle(getAttr(box, "style")).get("margin-right")
		}
		out = append(out, bs)
	}
	return out
}

// enclosingItem climbs to the nearest LI. nil when body or a detached
// root is reached first.
func enclosingItem(n *html.Node) *html.Node {
	for n != nil && n.DataAtom != atom.Li {
		if n.DataAtom == atom.Body {
			return nil
		}
		n = n.Parent
	}
	return n
}

type link struct {
	d *Document
	n *html.Node
}

func (l *link) Href() string {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()
	return getAttr(l.n, "href")
}

func (l *link) Container(context.Context) (binder.Container, bool, error) {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()
	li := enclosingItem(l.n)
	if li == nil {
		return nil, false, nil
	}
	return &container{d: l.d, n: li}, true, nil
}

func (l *link) Release() {}

type container struct {
	d *Document
	n *html.Node
}

func (c *container) actions() *html.Node {
	acts := findAll(c.n, byClass(binder.ActionsClass))
	if len(acts) == 1 {
		return acts[0]
	}
	return nil
}

func (c *container) EnsureActions(context.Context) (bool, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if c.actions() != nil {
		return true, nil
	}
	frame := c.n.FirstChild
	for frame != nil && frame.Type != html.ElementNode {
		frame = frame.NextSibling
	}
	if frame == nil || len(elementChildren(frame)) != 1 {
		return false, nil
	}
	frame.AppendChild(element(atom.Ul, "class", binder.ActionsClass))
	c.d.mutated()
	return true, nil
}

func (c *container) HasControl(context.Context) (bool, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	return findFirst(c.n, byAttr("data-sigil", binder.ControlSigil)) != nil, nil
}

func (c *container) AddControl(_ context.Context, day string) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	acts := c.actions()
	if acts == nil {
		return errors.New("htmlpage: no actions list")
	}
	nodes, err := fragment(acts, binder.ControlHTML(day))
	if err != nil {
		return fmt.Errorf("htmlpage: control markup: %w", err)
	}
	for _, n := range nodes {
		acts.AppendChild(n)
	}
	c.d.mutated()
	return nil
}

func (c *container) CorrectOffset(context.Context) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	acts := c.actions()
	if acts == nil {
		return nil
	}
	width := c.d.ItemWidth * len(elementChildren(acts))
	if width <= 0 {
		return nil
	}
	box := findFirst(c.n, byClass(binder.ContentBoxClass))
	if box == nil {
		return nil
	}
	st := parseStyle(getAttr(box, "style"))
	st.set("margin-right", strconv.Itoa(width+binder.OffsetPadding)+"px")
	if setAttr(box, "style", st.String()) {
		c.d.mutated()
	}
	return nil
}

func (c *container) DateField(context.Context) (string, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	in := findFirst(c.n, byClass(binder.DateInputClass))
	if in == nil {
		return "", errNoField
	}
	return getAttr(in, "value"), nil
}

func (c *container) SetDateField(_ context.Context, v string) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	in := findFirst(c.n, byClass(binder.DateInputClass))
	if in == nil {
		return errNoField
	}
	if setAttr(in, "value", v) {
		c.d.mutated()
	}
	return nil
}

func (c *container) Render(_ context.Context, o display.Outcome) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	st := parseStyle(getAttr(c.n, "style"))
	switch o.Kind {
	case display.Hidden:
		st.set("display", "none")
	case display.ShownPlain:
		st.set("display", "")
		st.set("background-color", "")
	case display.ShownMarked:
		st.set("display", "")
		st.set("background-color", o.Color)
	}
	var changed bool
	if s := st.String(); s == "" {
		changed = removeAttr(c.n, "style")
	} else {
		changed = setAttr(c.n, "style", s)
	}
	if changed {
		c.d.mutated()
	}
	return nil
}

func (c *container) Release() {}

// InstallToolbar adds the toggle, export and import buttons to the main
// menu alerts area. Installing twice reuses the existing buttons.
func (d *Document) InstallToolbar(context.Context) (toolbar.Toolbar, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	anchor := findFirst(d.root, byClass(toolbar.AnchorClass))
	if anchor == nil {
		return nil, toolbar.ErrNoAnchor
	}
	if findFirst(anchor, byClass(toolbar.ToggleClass)) == nil {
		buttons := []struct{ class, inner string }{
			{toolbar.ToggleClass, toolbar.ToggleHTML},
			{toolbar.ExportClass, toolbar.ExportHTML},
			{toolbar.ImportClass, toolbar.ImportHTML},
		}
		for _, b := range buttons {
			a := element(atom.A, "class", toolbar.ButtonClass+" "+b.class)
			if err := setInner(a, b.inner); err != nil {
				return nil, fmt.Errorf("htmlpage: toolbar markup: %w", err)
			}
			anchor.AppendChild(a)
		}
		d.mutated()
	}
	return &bar{d: d}, nil
}

// ToolbarState is what the toolbar shows.
type ToolbarState struct {
	Installed bool
	Count     string
	Unread    bool
}

// Toolbar describes the installed toolbar.
func (d *Document) Toolbar() ToolbarState {
	d.mu.Lock()
	defer d.mu.Unlock()
	tg := findFirst(d.root, byClass(toolbar.ToggleClass))
	if tg == nil {
		return ToolbarState{}
	}
	st := ToolbarState{Installed: true, Unread: hasClass(tg, toolbar.UnreadClass)}
	if c := findFirst(tg, byID(toolbar.CounterID)); c != nil {
		st.Count = textContent(c)
	}
	return st
}

type bar struct{ d *Document }

func (b *bar) SetCount(_ context.Context, n int) error {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	c := findFirst(b.d.root, byID(toolbar.CounterID))
	if c == nil {
		return errors.New("htmlpage: counter not installed")
	}
	txt := strconv.Itoa(n)
	if textContent(c) == txt {
		return nil
	}
	for ch := c.FirstChild; ch != nil; {
		next := ch.NextSibling
		c.RemoveChild(ch)
		ch = next
	}
	c.AppendChild(&html.Node{Type: html.TextNode, Data: txt})
	b.d.mutated()
	return nil
}

func (b *bar) SetOverride(_ context.Context, show bool) error {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	tg := findFirst(b.d.root, byClass(toolbar.ToggleClass))
	if tg == nil {
		return errors.New("htmlpage: toggle not installed")
	}
	var changed bool
	if show {
		changed = removeClass(tg, toolbar.UnreadClass)
	} else {
		changed = addClass(tg, toolbar.UnreadClass)
	}
	if changed {
		b.d.mutated()
	}
	return nil
}

func (b *bar) Download(_ context.Context, name string, data []byte) error {
	b.d.mu.Lock()
	defer b.d.mu.Unlock()
	b.d.downloads = append(b.d.downloads, Download{Name: name, Data: append([]byte(nil), data...)})
	return nil
}
