package snooze

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/snooze/kit"
	"github.com/hazyhaar/snooze/snooze/internal/binder"
	"github.com/hazyhaar/snooze/snooze/internal/display"
	"github.com/hazyhaar/snooze/snooze/internal/item"
	"github.com/hazyhaar/snooze/snooze/internal/override"
	"github.com/hazyhaar/snooze/snooze/internal/reconcile"
	"github.com/hazyhaar/snooze/snooze/internal/store"
	"github.com/hazyhaar/snooze/snooze/internal/toolbar"
	"github.com/hazyhaar/snooze/snooze/internal/transfer"
)

// Surface is a dashboard page the engine can drive.
type Surface interface {
	binder.Page
	toolbar.Installer
	// Reload discards every decoration and loads the page afresh.
	Reload(ctx context.Context) error
}

// session is one page load: its toolbar, override flag, registry and loop.
// Everything but loop is touched only from the loop goroutine.
type session struct {
	id     string
	kv     store.KV
	bar    toolbar.Toolbar
	toggle *override.Toggle
	reg    *item.Registry
	loop   *reconcile.Loop
}

func (e *Engine) newSession(ctx context.Context) (*session, error) {
	loc, err := e.cfg.Engine.Loc()
	if err != nil {
		return nil, err
	}
	bar, err := e.surface.InstallToolbar(ctx)
	if err != nil {
		return nil, err
	}

	s := &session{id: e.sessionID(), kv: e.kv, bar: bar}
	s.toggle = override.Load(ctx, e.kv, e.logger)
	if err := s.toggle.Attach(ctx, bar); err != nil {
		return nil, fmt.Errorf("snooze: toolbar: %w", err)
	}
	if err := bar.SetCount(ctx, 0); err != nil {
		return nil, fmt.Errorf("snooze: toolbar: %w", err)
	}

	logger := e.logger.With("session", s.id)
	s.reg = item.NewRegistry(item.Options{
		Dates: store.NewDates(e.kv, loc, logger),
		Policy: display.Policy{
			LookaheadDays: e.cfg.Engine.LookaheadDays,
			HideUnsnoozed: e.cfg.Engine.Hide(),
		},
		Show:      s.toggle.Show,
		Counter:   bar,
		Notify:    e.emit,
		SessionID: s.id,
		NewID:     e.eventID,
		Now:       e.now,
		Logger:    logger,
	})
	s.loop = reconcile.New(reconcile.Options{
		Binder:         binder.New(s.reg, logger),
		Registry:       s.reg,
		Page:           e.surface,
		PollInterval:   e.cfg.Engine.PollInterval,
		MutationSettle: e.cfg.Engine.MutationSettle,
		Logger:         logger,
	})
	return s, nil
}

func (s *session) items(ctx context.Context) ([]ItemView, error) {
	var out []ItemView
	err := s.loop.Do(ctx, func(context.Context) error {
		for _, it := range s.reg.Items() {
			out = append(out, viewOf(it, s.reg))
		}
		return nil
	})
	return out, err
}

// setItem dates id. An identifier not on the page is registered anyway so
// the date is stored and applies once it shows up.
func (s *session) setItem(ctx context.Context, id string, d time.Time) (ItemView, error) {
	var v ItemView
	err := s.loop.Do(ctx, func(ctx context.Context) error {
		it, err := s.reg.Resolve(ctx, id)
		if err != nil {
			return err
		}
		if err := it.SetDate(ctx, d); err != nil {
			return err
		}
		v = viewOf(it, s.reg)
		return nil
	})
	return v, err
}

func (s *session) clearItem(ctx context.Context, id string) (ItemView, error) {
	var v ItemView
	err := s.loop.Do(ctx, func(ctx context.Context) error {
		it, ok := s.reg.Lookup(id)
		if !ok {
			_, stored, err := s.kv.Get(ctx, id)
			if err != nil {
				return err
			}
			if !stored {
				return kit.NotFound(fmt.Errorf("snooze: %s is neither on the page nor stored", id))
			}
			if err := store.NewDates(s.kv, s.reg.Location(), nil).Remove(ctx, id); err != nil {
				return err
			}
			v = ItemView{ID: id, Date: store.FormatDay(s.reg.Now(), s.reg.Location())}
			return nil
		}
		if err := it.SetDate(ctx, s.reg.Now()); err != nil {
			return err
		}
		v = viewOf(it, s.reg)
		return nil
	})
	return v, err
}

// setOverride sets the flag, or flips it when show is nil.
func (s *session) setOverride(ctx context.Context, show *bool) (bool, error) {
	var now bool
	err := s.loop.Do(ctx, func(ctx context.Context) error {
		var err error
		if show == nil {
			err = s.toggle.Flip(ctx, s.reg)
		} else {
			err = s.toggle.Set(ctx, *show, s.reg)
		}
		now = s.toggle.Show()
		return err
	})
	return now, err
}

func (s *session) export(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.loop.Do(ctx, func(ctx context.Context) error {
		var err error
		data, err = transfer.Export(ctx, s.kv)
		return err
	})
	return data, err
}

func (s *session) download(ctx context.Context) error {
	return s.loop.Do(ctx, func(ctx context.Context) error {
		data, err := transfer.Export(ctx, s.kv)
		if err != nil {
			return err
		}
		return s.bar.Download(ctx, transfer.FileName, data)
	})
}

// importData writes data to the store and ends the session so the page is
// reloaded against the new contents. A failed import that still wrote some
// keys restarts too, then reports the error.
func (s *session) importData(ctx context.Context, data []byte, f transfer.Filter) (ImportReport, error) {
	var (
		rep       ImportReport
		importErr error
	)
	err := s.loop.Do(ctx, func(ctx context.Context) error {
		rep, importErr = transfer.Import(ctx, s.kv, data, f)
		if importErr != nil && len(rep.Written) == 0 {
			return kit.BadRequest(importErr)
		}
		return reconcile.ErrRestart
	})
	if err == nil && importErr != nil {
		err = kit.BadRequest(importErr)
	}
	return rep, err
}
