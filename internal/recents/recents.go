// Package recents keeps a small on-device history of opened lists. A
// list's id is its share capability, so this file is how a device finds
// its way back to lists it has seen.
package recents

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// keep is how many lists the history retains; older entries are pruned
// on every touch.
const keep = 50

// Entry is one remembered list.
type Entry struct {
	ListID   string    `json:"listId"`
	Title    string    `json:"title"`
	Theme    string    `json:"theme"`
	OpenedAt time.Time `json:"openedAt"`
}

type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create recents dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open recents db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS recents (
			list_id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			theme TEXT NOT NULL DEFAULT '',
			opened_at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init recents db: %w", err)
	}
	return &Store{db: db}, nil
}

// Touch records that a list was opened now, updating its title and
// theme, and prunes history beyond the retention cap.
func (s *Store) Touch(ctx context.Context, listID, title, theme string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recents (list_id, title, theme, opened_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (list_id) DO UPDATE SET
			title=excluded.title, theme=excluded.theme, opened_at=excluded.opened_at
	`, listID, title, theme, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch recents: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM recents WHERE list_id NOT IN (
			SELECT list_id FROM recents ORDER BY opened_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("prune recents: %w", err)
	}
	return nil
}

// Recent returns remembered lists, most recently opened first. A limit
// of zero or less means everything retained.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > keep {
		limit = keep
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT list_id, title, theme, opened_at FROM recents
		ORDER BY opened_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recents: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ListID, &entry.Title, &entry.Theme, &entry.OpenedAt); err != nil {
			return nil, fmt.Errorf("scan recents: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recents: %w", err)
	}
	return entries, nil
}

// Forget drops one list from the history.
func (s *Store) Forget(ctx context.Context, listID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recents WHERE list_id=?`, listID); err != nil {
		return fmt.Errorf("forget recents: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
