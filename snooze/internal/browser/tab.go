package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is the dashboard page.
type Tab struct {
	Page    *rod.Page
	URL     string
	timeout time.Duration
	router  *rod.HijackRouter
	mgr     *Manager
}

// OpenTab creates a tab on the manager's browser and navigates to url.
func OpenTab(ctx context.Context, mgr *Manager, url string, timeout time.Duration) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Mode == Headless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{Page: page, URL: url, timeout: timeout, mgr: mgr}
	if len(mgr.cfg.ResourceBlocking) > 0 {
		t.router = blockResources(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(url); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	mgr.cfg.Logger.Info("browser: tab open", "url", url)
	return t, nil
}

// Reload reloads the tab and waits for the load event. Every script
// decoration and binding callback registered on the old document is gone
// afterwards.
func (t *Tab) Reload(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	p := t.Page.Context(rctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := p.Reload(); err != nil {
		return fmt.Errorf("browser: reload: %w", err)
	}
	wait()
	return nil
}

// HTML returns the current document's outer HTML.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		t.router.Stop()
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
