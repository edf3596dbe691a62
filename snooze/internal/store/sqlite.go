package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/snooze/dbopen"
)

// Schema for the sqlite backend.
const Schema = `
CREATE TABLE IF NOT EXISTS snooze_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLite stores keys in a single table. Writes go through dbopen.Exec so a
// concurrent CLI import hitting SQLITE_BUSY is retried instead of failing.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open database and creates the table if needed.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// DB exposes the handle so callers can attach a change watcher.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM snooze_kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: sqlite get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO snooze_kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: sqlite set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	if _, err := dbopen.Exec(ctx, s.db, `DELETE FROM snooze_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: sqlite remove %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM snooze_kv`)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite all: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetMany writes every entry in one transaction.
func (s *SQLite) SetMany(ctx context.Context, entries map[string]string) error {
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, k := range Keys(entries) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO snooze_kv (key, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				k, entries[k], now); err != nil {
				return fmt.Errorf("store: sqlite set %s: %w", k, err)
			}
		}
		return nil
	})
}
