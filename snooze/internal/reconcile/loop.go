// Package reconcile runs the scan loop: one goroutine that owns the item
// registry and folds the mutation trigger, the poll timer and external
// commands into a single stream of scans.
//
// Both triggers call the same Reconcile routine. There is no lock; every
// step of a scan is idempotent, so a scan caused by the previous scan's own
// DOM writes changes nothing and the cascade stops.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/snooze/snooze/internal/binder"
	"github.com/hazyhaar/snooze/snooze/internal/item"
)

var (
	// ErrRestart is returned by Run when the session must be rebuilt, for
	// example after an import reloaded the page.
	ErrRestart = errors.New("reconcile: restart requested")
	// ErrStopped is returned by Do once the loop has exited.
	ErrStopped = errors.New("reconcile: loop stopped")
)

// DefaultPollInterval is the fixed-interval trigger period.
const DefaultPollInterval = 500 * time.Millisecond

// State of the loop.
type State int32

const (
	Idle State = iota
	Scanning
)

func (s State) String() string {
	if s == Scanning {
		return "scanning"
	}
	return "idle"
}

// Trigger is what caused a scan.
type Trigger int

const (
	TriggerInitial Trigger = iota
	TriggerMutation
	TriggerPoll
	TriggerCommand
)

func (t Trigger) String() string {
	switch t {
	case TriggerInitial:
		return "initial"
	case TriggerMutation:
		return "mutation"
	case TriggerPoll:
		return "poll"
	case TriggerCommand:
		return "command"
	}
	return fmt.Sprintf("trigger(%d)", int(t))
}

// Reconcile performs one scan: decorate every entry, then pull every known
// item's date back from its blocks, then wake items whose date elapsed.
// Decorating before pulling means a new control's default value is in the
// DOM before it is read back.
func Reconcile(ctx context.Context, b *binder.Binder, reg *item.Registry, p binder.Page) (binder.Result, error) {
	res, err := b.Scan(ctx, p)
	reg.PullAll(ctx)
	reg.Expire(ctx)
	return res, err
}

// Options configures a Loop.
type Options struct {
	Binder   *binder.Binder
	Registry *item.Registry
	Page     binder.Page
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// MutationSettle delays a mutation scan until the page has been quiet
	// this long. 0 scans on the next turn.
	MutationSettle time.Duration
	Logger         *slog.Logger
}

// Stats are point-in-time counters.
type Stats struct {
	State         string        `json:"state"`
	InitialScans  int64         `json:"initial_scans"`
	MutationScans int64         `json:"mutation_scans"`
	PollScans     int64         `json:"poll_scans"`
	CommandScans  int64         `json:"command_scans"`
	Commands      int64         `json:"commands"`
	Attached      int64         `json:"attached"`
	Errors        int64         `json:"errors"`
	LastScanTime  time.Duration `json:"last_scan_time"`
	Snoozed       int64         `json:"snoozed"`
}

type command struct {
	fn    func(ctx context.Context) error
	scan  bool
	reply chan error
}

// Loop is the reconciliation loop of one page session.
type Loop struct {
	opts Options

	mutations chan struct{}
	restart   chan struct{}
	cmds      chan command
	done      chan struct{}

	state    atomic.Int32
	scans    [4]atomic.Int64
	commands atomic.Int64
	attached atomic.Int64
	errs     atomic.Int64
	lastNs   atomic.Int64
	snoozed  atomic.Int64
}

// New creates a loop. Call Run to start it.
func New(opts Options) *Loop {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Loop{
		opts:      opts,
		mutations: make(chan struct{}, 1),
		restart:   make(chan struct{}, 1),
		cmds:      make(chan command),
		done:      make(chan struct{}),
	}
}

// Notify signals a DOM mutation. Signals arriving while one is pending
// coalesce. Safe from any goroutine.
func (l *Loop) Notify() {
	select {
	case l.mutations <- struct{}{}:
	default:
	}
}

// Restart asks Run to return ErrRestart at its next turn. Safe from any
// goroutine.
func (l *Loop) Restart() {
	select {
	case l.restart <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop goroutine and waits for its result. fn may touch
// the registry and the store freely. Returning ErrRestart from fn ends the
// session after fn's caller has been answered with nil.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return l.submit(ctx, command{fn: fn, reply: make(chan error, 1)})
}

// DoScan is Do followed by a scan, for commands that change what blocks
// should show.
func (l *Loop) DoScan(ctx context.Context, fn func(ctx context.Context) error) error {
	return l.submit(ctx, command{fn: fn, scan: true, reply: make(chan error, 1)})
}

func (l *Loop) submit(ctx context.Context, c command) error {
	select {
	case l.cmds <- c:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns whether a scan is in progress.
func (l *Loop) State() State { return State(l.state.Load()) }

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Stats returns the current counters.
func (l *Loop) Stats() Stats {
	return Stats{
		State:         l.State().String(),
		InitialScans:  l.scans[TriggerInitial].Load(),
		MutationScans: l.scans[TriggerMutation].Load(),
		PollScans:     l.scans[TriggerPoll].Load(),
		CommandScans:  l.scans[TriggerCommand].Load(),
		Commands:      l.commands.Load(),
		Attached:      l.attached.Load(),
		Errors:        l.errs.Load(),
		LastScanTime:  time.Duration(l.lastNs.Load()),
		Snoozed:       l.snoozed.Load(),
	}
}

// Run scans once, then reacts to triggers until ctx is cancelled or a
// restart is requested. It returns ctx.Err() or ErrRestart.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	log := l.opts.Logger

	l.scan(ctx, TriggerInitial)

	timer := time.NewTimer(l.opts.PollInterval)
	defer timer.Stop()

	var settle *time.Timer
	var settleC <-chan time.Time
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	log.Info("reconcile: started", "poll_interval", l.opts.PollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info("reconcile: stopped")
			return ctx.Err()

		case <-l.restart:
			log.Info("reconcile: restart requested")
			return ErrRestart

		case <-l.mutations:
			if l.opts.MutationSettle <= 0 {
				l.scan(ctx, TriggerMutation)
				continue
			}
			if settle == nil {
				settle = time.NewTimer(l.opts.MutationSettle)
			} else {
				settle.Reset(l.opts.MutationSettle)
			}
			settleC = settle.C

		case <-settleC:
			settleC = nil
			l.scan(ctx, TriggerMutation)

		case <-timer.C:
			l.scan(ctx, TriggerPoll)
			// Re-armed after the scan, not on a fixed tick.
			timer.Reset(l.opts.PollInterval)

		case c := <-l.cmds:
			l.commands.Add(1)
			err := c.fn(ctx)
			if errors.Is(err, ErrRestart) {
				c.reply <- nil
				log.Info("reconcile: restart after command")
				return ErrRestart
			}
			if err == nil && c.scan {
				l.scan(ctx, TriggerCommand)
			}
			c.reply <- err
		}
	}
}

func (l *Loop) scan(ctx context.Context, trig Trigger) {
	l.state.Store(int32(Scanning))
	start := time.Now()

	res, err := Reconcile(ctx, l.opts.Binder, l.opts.Registry, l.opts.Page)

	l.lastNs.Store(int64(time.Since(start)))
	l.scans[trig].Add(1)
	l.attached.Add(int64(res.Attached))
	l.snoozed.Store(int64(l.opts.Registry.SnoozedCount()))
	l.state.Store(int32(Idle))

	if err != nil && ctx.Err() == nil {
		l.errs.Add(1)
		l.opts.Logger.Warn("reconcile: scan failed", "trigger", trig.String(), "error", err)
		return
	}
	if res.Attached > 0 {
		l.opts.Logger.Debug("reconcile: scan", "trigger", trig.String(),
			"seen", res.Seen, "attached", res.Attached, "skipped", res.Skipped)
	}
}
