// Package store keeps an archive of submitted payloads in SQLite.
//
// The database is opened with WAL journaling, a busy timeout and NORMAL
// synchronous mode. Writes retry on SQLITE_BUSY.
//
// In tests:
//
//	st := store.OpenMemory(t)
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domtarget/payload"
)

const schema = `
CREATE TABLE IF NOT EXISTS payloads (
	id         TEXT PRIMARY KEY,
	page_url   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	count      INTEGER NOT NULL,
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS payloads_created ON payloads(created_at);
`

const maxRetries = 3

// Store is the payload archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at path, creating parent directories.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory archive closed by t.Cleanup.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("store.OpenMemory: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// Save archives p. Saving an ID twice replaces the earlier row.
func (s *Store) Save(ctx context.Context, p payload.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	return s.exec(ctx,
		`INSERT OR REPLACE INTO payloads (id, page_url, created_at, count, body) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.PageURL, p.CreatedAt.UnixMilli(), p.Count, string(body))
}

// Recent returns up to n payloads, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]payload.Payload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM payloads ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var out []payload.Payload
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		var p payload.Payload
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("store: decode: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Prune deletes payloads created before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payloads WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	for i := range maxRetries {
		_, err := s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return nil
		}
		if !isBusy(err) || i == maxRetries-1 {
			return fmt.Errorf("store: exec: %w", err)
		}
		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("store: cancelled during retry: %w", ctx.Err())
		case <-t.C:
		}
	}
	return nil
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
