// Package snooze runs the snooze engine against a task-tracker dashboard.
//
// The engine drives a Chrome tab on the dashboard (or any Surface), keeps
// one reconciliation session per page load and rebuilds the session after
// every reload. Everything that changes dates, the override flag or the
// store goes through the session's loop goroutine, whether it comes from a
// toolbar click, the admin API or an MCP tool.
//
//	cfg, _ := snooze.LoadConfigFile("snooze.yaml")
//	e := snooze.New(cfg, logger, snooze.WithSinks(snooze.NewStdoutSink(os.Stdout)))
//	err := e.Run(ctx)
package snooze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/snooze/idgen"
	"github.com/hazyhaar/snooze/kit"
	"github.com/hazyhaar/snooze/snooze/internal/binder"
	"github.com/hazyhaar/snooze/snooze/internal/browser"
	"github.com/hazyhaar/snooze/snooze/internal/event"
	"github.com/hazyhaar/snooze/snooze/internal/reconcile"
	"github.com/hazyhaar/snooze/snooze/internal/rodpage"
	"github.com/hazyhaar/snooze/snooze/internal/sink"
	"github.com/hazyhaar/snooze/snooze/internal/store"
	"github.com/hazyhaar/snooze/snooze/internal/toolbar"
	"github.com/hazyhaar/snooze/snooze/internal/transfer"
	"github.com/hazyhaar/snooze/watch"
)

// Version is reported by the MCP server and /health.
const Version = "0.1.0"

// ErrNotRunning means no session is live: the engine has not started yet,
// is between two page loads, or has stopped.
var ErrNotRunning = errors.New("snooze: no live session")

// ErrNoAnchor means the dashboard has no main menu to put the toolbar in,
// which usually means the browser profile is not logged in.
var ErrNoAnchor = toolbar.ErrNoAnchor

const eventBuffer = 256

// Option customises an Engine.
type Option func(*Engine)

// WithSurface drives s instead of a Chrome tab.
func WithSurface(s Surface) Option { return func(e *Engine) { e.surface = s } }

// WithStore uses kv instead of the configured backend.
func WithStore(kv KV) Option { return func(e *Engine) { e.kv = kv } }

// WithSinks adds transition sinks.
func WithSinks(sinks ...Sink) Option {
	return func(e *Engine) { e.sinkList = append(e.sinkList, sinks...) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDs replaces the session and event ID generators.
func WithIDs(session, event func() string) Option {
	return func(e *Engine) {
		e.sessionID = session
		e.eventID = event
	}
}

// Engine is the top-level orchestrator. Create one per dashboard.
type Engine struct {
	cfg       *Config
	logger    *slog.Logger
	sinkList  []Sink
	sinks     *sink.Router
	filter    transfer.Filter
	now       func() time.Time
	sessionID func() string
	eventID   func() string

	surface Surface
	kv      KV
	closers []func() error

	// browser mode only
	mgr    *browser.Manager
	tab    *browser.Tab
	page   *rodpage.Page
	reopen atomic.Bool

	watcher *watch.Watcher
	events  chan event.Transition

	mu        sync.Mutex
	cur       *session
	ready     chan struct{}
	readyOnce sync.Once

	restarts atomic.Int64
	dropped  atomic.Int64
}

// New creates an Engine. Call Run to start it.
func New(cfg *Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	f, err := transfer.ParseFilter(cfg.Engine.ImportFilter)
	if err != nil {
		logger.Warn("snooze: falling back to strict import filter", "error", err)
	}
	e := &Engine{
		cfg:       cfg,
		logger:    logger,
		filter:    f,
		now:       time.Now,
		sessionID: idgen.Session,
		eventID:   idgen.Event,
		events:    make(chan event.Transition, eventBuffer),
		ready:     make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	e.sinks = sink.NewRouter(logger, e.sinkList...)
	return e
}

// Ready is closed once the first session has started.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// Run opens the page and the store, then runs sessions until ctx is
// cancelled. A page without a main menu is refused with ErrNoAnchor.
// Cancellation returns nil.
func (e *Engine) Run(ctx context.Context) error {
	defer e.close()
	if err := e.open(ctx); err != nil {
		return err
	}

	go e.dispatch(ctx)

	if s, ok := e.kv.(*store.SQLite); ok {
		e.watcher = watch.New(s.DB(), watch.Options{
			Interval: e.cfg.Store.WatchInterval,
			Logger:   e.logger,
		})
		go e.watcher.OnChange(ctx, func() error {
			e.logger.Info("snooze: store written by another process, restarting session")
			e.requestRestart()
			return nil
		})
	}

	if e.cfg.HTTP.Addr != "" {
		ln, err := net.Listen("tcp", e.cfg.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("snooze: listen %s: %w", e.cfg.HTTP.Addr, err)
		}
		go e.serveHTTP(ctx, ln)
	}

	for {
		s, err := e.newSession(ctx)
		if errors.Is(err, toolbar.ErrNoAnchor) {
			e.logger.Error("snooze: main menu alerts not found, refusing to start", "url", e.cfg.Page.URL)
			return err
		}
		if err != nil {
			return fmt.Errorf("snooze: new session: %w", err)
		}

		e.setSession(s)
		e.readyOnce.Do(func() { close(e.ready) })
		e.logger.Info("snooze: session started", "session", s.id, "store", e.cfg.Store.Backend)

		err = s.loop.Run(ctx)
		e.setSession(nil)
		if ctx.Err() != nil {
			return nil
		}
		if !errors.Is(err, reconcile.ErrRestart) {
			return err
		}

		e.restarts.Add(1)
		if err := e.reload(ctx); err != nil {
			return err
		}
	}
}

func (e *Engine) open(ctx context.Context) error {
	if e.surface == nil {
		if err := e.startBrowser(ctx); err != nil {
			return err
		}
	} else if m, ok := e.surface.(interface{ OnMutate(func()) }); ok {
		m.OnMutate(e.notify)
	}

	if e.kv == nil {
		kv, closeFn, err := OpenStore(e.cfg.Store)
		if err != nil {
			return err
		}
		e.kv = kv
		e.closers = append(e.closers, closeFn)
	}
	return nil
}

func (e *Engine) startBrowser(ctx context.Context) error {
	mode, err := browser.ParseMode(e.cfg.Browser.Stealth)
	if err != nil {
		return err
	}
	e.mgr = browser.NewManager(browser.Config{
		RemoteURL:        e.cfg.Browser.Remote,
		UserDataDir:      e.cfg.Browser.UserDataDir,
		RecycleInterval:  e.cfg.Browser.RecycleInterval,
		ResourceBlocking: e.cfg.Browser.ResourceBlocking,
		Mode:             mode,
		XvfbDisplay:      e.cfg.Browser.XvfbDisplay,
		Logger:           e.logger,
	})
	if _, err := e.mgr.Start(ctx); err != nil {
		return fmt.Errorf("snooze: start browser: %w", err)
	}
	e.closers = append(e.closers, e.mgr.Close)
	e.mgr.OnRecycle(func(*rod.Browser) {
		e.reopen.Store(true)
		e.requestRestart()
	})
	return e.openTab(ctx)
}

// openTab navigates a fresh tab to the dashboard and wires its binding.
func (e *Engine) openTab(ctx context.Context) error {
	tab, err := browser.OpenTab(ctx, e.mgr, e.cfg.Page.URL, e.cfg.Page.NavigateTimeout)
	if err != nil {
		return fmt.Errorf("snooze: %w", err)
	}
	p := rodpage.New(tab.Page)
	err = p.Bind(ctx, rodpage.Handlers{
		OnMutation: e.notify,
		OnToggle: func() {
			if _, err := e.ToggleOverride(ctx); err != nil {
				e.logger.Warn("snooze: toggle failed", "error", err)
			}
		},
		OnExport: func() {
			if err := e.Download(ctx); err != nil {
				e.logger.Warn("snooze: export failed", "error", err)
			}
		},
		OnImport: func(data string) {
			rep, err := e.Import(ctx, []byte(data))
			if err != nil {
				e.logger.Warn("snooze: import failed", "error", err)
				return
			}
			e.logger.Info("snooze: imported from page", "written", len(rep.Written), "rejected", len(rep.Rejected))
		},
	}, e.logger)
	if err != nil {
		tab.Close()
		return err
	}

	e.tab, e.page, e.surface = tab, p, p
	if e.cfg.Store.Backend == BackendLocalStorage {
		e.kv = rodpage.NewLocalStorage(tab.Page)
	}
	return e.preparePage(ctx)
}

// preparePage installs what every fresh document needs.
func (e *Engine) preparePage(ctx context.Context) error {
	if err := e.page.Observe(ctx); err != nil {
		return err
	}
	if err := e.page.InjectDatepicker(ctx, e.cfg.Page.DatepickerScript, e.cfg.Page.Week()); err != nil {
		e.logger.Warn("snooze: date picker unavailable", "error", err)
	}
	return nil
}

// reload gives the next session a clean document. Old decorations would
// make the new registry skip every block.
func (e *Engine) reload(ctx context.Context) error {
	if e.page != nil && e.reopen.Swap(false) {
		e.logger.Info("snooze: browser recycled, reopening tab")
		if e.tab != nil {
			e.tab.Close()
		}
		return e.openTab(ctx)
	}
	if err := e.surface.Reload(ctx); err != nil {
		return fmt.Errorf("snooze: reload: %w", err)
	}
	if e.page != nil {
		return e.preparePage(ctx)
	}
	return nil
}

func (e *Engine) close() {
	if e.tab != nil {
		e.tab.Close()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Debug("snooze: close", "error", err)
		}
	}
	e.sinks.Close()
}

func (e *Engine) setSession(s *session) {
	e.mu.Lock()
	e.cur = s
	e.mu.Unlock()
}

func (e *Engine) session() (*session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return nil, kit.Unavailable(ErrNotRunning)
	}
	return e.cur, nil
}

// notify forwards a DOM mutation to the live loop. Never blocks.
func (e *Engine) notify() {
	if s, err := e.session(); err == nil {
		s.loop.Notify()
	}
}

func (e *Engine) requestRestart() {
	if s, err := e.session(); err == nil {
		s.loop.Restart()
	}
}

// emit queues a transition for the sinks. Called on the loop goroutine, so
// a slow webhook must not be waited for.
func (e *Engine) emit(_ context.Context, t event.Transition) {
	select {
	case e.events <- t:
	default:
		e.dropped.Add(1)
		e.logger.Warn("snooze: event buffer full, dropping transition", "item", t.ItemID, "kind", t.Kind)
	}
}

func (e *Engine) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-e.events:
			e.sinks.Send(ctx, t)
		}
	}
}

// stopped maps the loop having exited under a caller to ErrNotRunning.
func stopped(err error) error {
	if errors.Is(err, reconcile.ErrStopped) {
		return kit.Unavailable(ErrNotRunning)
	}
	return err
}

// Items lists every item seen on the page, in first-seen order.
func (e *Engine) Items(ctx context.Context) ([]ItemView, error) {
	s, err := e.session()
	if err != nil {
		return nil, err
	}
	v, err := s.items(ctx)
	return v, stopped(err)
}

// SetItem snoozes id until day (YYYY-MM-DD). A day not in the future wakes
// the item.
func (e *Engine) SetItem(ctx context.Context, id, day string) (ItemView, error) {
	if !binder.ValidID(id) {
		return ItemView{}, kit.BadRequest(fmt.Errorf("snooze: invalid identifier %q", id))
	}
	loc, err := e.cfg.Engine.Loc()
	if err != nil {
		return ItemView{}, err
	}
	d, err := store.ParseDay(day, loc)
	if err != nil {
		return ItemView{}, kit.BadRequest(err)
	}
	s, err := e.session()
	if err != nil {
		return ItemView{}, err
	}
	v, err := s.setItem(ctx, id, d)
	return v, stopped(err)
}

// ClearItem wakes id now.
func (e *Engine) ClearItem(ctx context.Context, id string) (ItemView, error) {
	if !binder.ValidID(id) {
		return ItemView{}, kit.BadRequest(fmt.Errorf("snooze: invalid identifier %q", id))
	}
	s, err := e.session()
	if err != nil {
		return ItemView{}, err
	}
	v, err := s.clearItem(ctx, id)
	return v, stopped(err)
}

// SetOverride shows (true) or hides snoozed items and returns the new state.
func (e *Engine) SetOverride(ctx context.Context, show bool) (bool, error) {
	s, err := e.session()
	if err != nil {
		return false, err
	}
	v, err := s.setOverride(ctx, &show)
	return v, stopped(err)
}

// ToggleOverride flips the override, like the toolbar button.
func (e *Engine) ToggleOverride(ctx context.Context) (bool, error) {
	s, err := e.session()
	if err != nil {
		return false, err
	}
	v, err := s.setOverride(ctx, nil)
	return v, stopped(err)
}

// Export returns the whole store in the export file format.
func (e *Engine) Export(ctx context.Context) ([]byte, error) {
	s, err := e.session()
	if err != nil {
		return nil, err
	}
	data, err := s.export(ctx)
	return data, stopped(err)
}

// Download offers the export to the page user as ExportFileName.
func (e *Engine) Download(ctx context.Context) error {
	s, err := e.session()
	if err != nil {
		return err
	}
	return stopped(s.download(ctx))
}

// Import merges an export into the store, then reloads the page and starts
// a new session.
func (e *Engine) Import(ctx context.Context, data []byte) (ImportReport, error) {
	s, err := e.session()
	if err != nil {
		return ImportReport{}, err
	}
	rep, err := s.importData(ctx, data, e.filter)
	return rep, stopped(err)
}

// Stats are point-in-time counters.
type Stats struct {
	Version  string          `json:"version"`
	Session  string          `json:"session,omitempty"`
	Running  bool            `json:"running"`
	Restarts int64           `json:"restarts"`
	Dropped  int64           `json:"dropped_events"`
	Loop     reconcile.Stats `json:"loop"`
	Watch    *watch.Stats    `json:"watch,omitempty"`
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	st := Stats{
		Version:  Version,
		Restarts: e.restarts.Load(),
		Dropped:  e.dropped.Load(),
	}
	if s, err := e.session(); err == nil {
		st.Running = true
		st.Session = s.id
		st.Loop = s.loop.Stats()
	}
	if e.watcher != nil {
		ws := e.watcher.Stats()
		st.Watch = &ws
	}
	return st
}
