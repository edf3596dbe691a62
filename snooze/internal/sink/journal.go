package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/snooze/dbopen"
	"github.com/hazyhaar/snooze/snooze/internal/event"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS snooze_journal (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	item_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	date       TEXT NOT NULL,
	snoozed    INTEGER NOT NULL,
	timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snooze_journal_item ON snooze_journal(item_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_snooze_journal_ts ON snooze_journal(timestamp);
`

// Journal records every transition in an SQLite table.
type Journal struct {
	db    *sql.DB
	owned bool
}

// OpenJournal opens (or creates) a journal file.
func OpenJournal(path string) (*Journal, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(journalSchema))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{db: db, owned: true}, nil
}

// NewJournal uses an already open database. Close leaves db open.
func NewJournal(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(journalSchema); err != nil {
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Send(ctx context.Context, t event.Transition) error {
	_, err := dbopen.Exec(ctx, j.db,
		`INSERT OR IGNORE INTO snooze_journal (id, session_id, item_id, kind, date, snoozed, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.ItemID, string(t.Kind), t.Date, t.Snoozed, t.Timestamp)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// JournalFilter narrows Query. Zero fields match everything.
type JournalFilter struct {
	ItemID string
	Kind   event.Kind
	Since  int64 // epoch milliseconds, inclusive
	Limit  int   // default 100
}

// Query returns matching transitions, newest first.
func (j *Journal) Query(ctx context.Context, f JournalFilter) ([]event.Transition, error) {
	q := `SELECT id, session_id, item_id, kind, date, snoozed, timestamp FROM snooze_journal WHERE 1=1`
	var args []any
	if f.ItemID != "" {
		q += " AND item_id = ?"
		args = append(args, f.ItemID)
	}
	if f.Kind != "" {
		q += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	if f.Since > 0 {
		q += " AND timestamp >= ?"
		args = append(args, f.Since)
	}
	limit := 100
	if f.Limit > 0 {
		limit = f.Limit
	}
	q += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []event.Transition
	for rows.Next() {
		var t event.Transition
		var kind string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.ItemID, &kind, &t.Date, &t.Snoozed, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		t.Kind = event.Kind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	if j.owned {
		return j.db.Close()
	}
	return nil
}
