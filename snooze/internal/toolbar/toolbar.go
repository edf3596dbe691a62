// Package toolbar defines the snooze controls added to the page's main
// menu: the override toggle with the snoozed counter, and the export and
// import buttons.
package toolbar

import (
	"context"
	"errors"
)

// ErrNoAnchor means the main-menu alerts area is missing, which on the
// dashboard means nobody is logged in.
var ErrNoAnchor = errors.New("toolbar: main menu alerts not found (login required?)")

// Markup shared by the page adapters.
const (
	AnchorClass  = "phabricator-main-menu-alerts"
	ButtonClass  = "alert-notifications"
	UnreadClass  = "alert-unread"
	ToggleClass  = "snooze-toggle"
	ExportClass  = "snooze-export"
	ImportClass  = "snooze-import"
	CounterID    = "snoozedCounter"
	CounterClass = "phabricator-main-menu-alert-count"

	ToggleHTML = `<span class="phabricator-main-menu-alert-icon phui-icon-view phui-font-fa fa-clock-o" data-sigil="menu-icon"></span>` +
		`<span id="` + CounterID + `" class="` + CounterClass + `"></span>`
	ExportHTML = `<span class="phabricator-main-menu-alert-icon phui-icon-view phui-font-fa fa-download" data-sigil="menu-icon"></span>`
	ImportHTML = `<span class="phabricator-main-menu-alert-icon phui-icon-view phui-font-fa fa-upload" data-sigil="menu-icon"></span>`
)

// Toolbar is the installed controls.
type Toolbar interface {
	// SetCount shows the snoozed counter.
	SetCount(ctx context.Context, n int) error
	// SetOverride shows the toggle state; the button reads "unread" while
	// snoozed items are hidden.
	SetOverride(ctx context.Context, show bool) error
	// Download offers data to the user as a file.
	Download(ctx context.Context, name string, data []byte) error
}

// Installer adds the toolbar to a page. It returns ErrNoAnchor when the
// page has no place for it.
type Installer interface {
	InstallToolbar(ctx context.Context) (Toolbar, error)
}
