package snooze

import (
	"sort"
	"time"

	"github.com/hazyhaar/snooze/snooze/internal/display"
	"github.com/hazyhaar/snooze/snooze/internal/item"
	"github.com/hazyhaar/snooze/snooze/internal/store"
	"github.com/hazyhaar/snooze/snooze/internal/transfer"
)

// ItemView is an item as reported by the API, the MCP tools and the CLI.
type ItemView struct {
	ID      string  `json:"id"`
	Date    string  `json:"date"` // YYYY-MM-DD
	Snoozed bool    `json:"snoozed"`
	Blocks  int     `json:"blocks"`
	Urgency float64 `json:"urgency,omitempty"`
	Color   string  `json:"color,omitempty"`
}

// ImportReport lists the keys an import wrote and rejected.
type ImportReport = transfer.Report

// ExportFileName is the suggested name of an export.
const ExportFileName = transfer.FileName

func viewOf(it *item.Item, reg *item.Registry) ItemView {
	v := ItemView{
		ID:      it.ID(),
		Date:    store.FormatDay(it.Date(), reg.Location()),
		Snoozed: it.Snoozed(),
		Blocks:  it.Blocks(),
	}
	if v.Snoozed {
		v.Urgency = reg.Policy().Urgency(it.Date(), reg.Now())
		v.Color = display.Color(v.Urgency)
	}
	return v
}

// storedView builds a view from a raw stored value; ok is false when the
// value does not hold a future date.
func storedView(id, value string, loc *time.Location, now time.Time, p display.Policy) (ItemView, bool) {
	d, err := store.ParseISO(value, loc)
	if err != nil || !d.After(now) {
		return ItemView{}, false
	}
	u := p.Urgency(d, now)
	return ItemView{
		ID:      id,
		Date:    store.FormatDay(d, loc),
		Snoozed: true,
		Urgency: u,
		Color:   display.Color(u),
	}, true
}

// sortByDate orders views by wake-up date, then identifier.
func sortByDate(views []ItemView) {
	sort.Slice(views, func(i, j int) bool {
		if views[i].Date != views[j].Date {
			return views[i].Date < views[j].Date
		}
		return views[i].ID < views[j].ID
	})
}
