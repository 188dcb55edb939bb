// Package store persists lists and items in Postgres and mirrors every
// committed write onto the change feed, so other sessions converge on
// the same rows.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"ticklist/internal/feed"
	"ticklist/internal/item"
	"ticklist/internal/util"
)

type PostgresStore struct {
	db   *sql.DB
	feed feed.Publisher
}

// NewPostgresStore wraps an open database handle. The publisher may be
// nil, in which case writes simply go unannounced.
func NewPostgresStore(db *sql.DB, publisher feed.Publisher) *PostgresStore {
	return &PostgresStore{db: db, feed: publisher}
}

// IsNotFound reports whether an error from this package means the row
// does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func (s *PostgresStore) CreateList(ctx context.Context, title, theme string) (item.List, error) {
	list, err := scanList(s.db.QueryRowContext(ctx, `
		INSERT INTO lists (id, title, theme)
		VALUES ($1, $2, $3)
		RETURNING `+listColumns, util.NewID("lst"), title, theme))
	if err != nil {
		return item.List{}, fmt.Errorf("create list: %w", err)
	}
	s.publish(ctx, feed.Event{Op: feed.OpInsert, Table: feed.TableLists, ListID: list.ID, List: &list})
	return list, nil
}

func (s *PostgresStore) GetList(ctx context.Context, listID string) (item.List, error) {
	list, err := scanList(s.db.QueryRowContext(ctx, `
		SELECT `+listColumns+` FROM lists WHERE id=$1
	`, listID))
	if err != nil {
		return item.List{}, fmt.Errorf("get list %s: %w", listID, err)
	}
	return list, nil
}

func (s *PostgresStore) UpdateList(ctx context.Context, listID string, patch item.ListPatch) error {
	columns, args := listPatchArgs(patch)
	if len(columns) == 0 {
		return nil
	}
	set := make([]string, 0, len(columns)+1)
	for i, column := range columns {
		set = append(set, fmt.Sprintf("%s=$%d", column, i+2))
	}
	set = append(set, "updated_at=NOW()")
	query := fmt.Sprintf(`UPDATE lists SET %s WHERE id=$1 RETURNING %s`, strings.Join(set, ", "), listColumns)

	list, err := scanList(s.db.QueryRowContext(ctx, query, append([]any{listID}, args...)...))
	if err != nil {
		return fmt.Errorf("update list %s: %w", listID, err)
	}
	s.publish(ctx, feed.Event{Op: feed.OpUpdate, Table: feed.TableLists, ListID: list.ID, List: &list, Changed: columns})
	return nil
}

// DeleteList removes a list; its items go with it via the schema
// cascade.
func (s *PostgresStore) DeleteList(ctx context.Context, listID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id=$1`, listID); err != nil {
		return fmt.Errorf("delete list %s: %w", listID, err)
	}
	s.publish(ctx, feed.Event{Op: feed.OpDelete, Table: feed.TableLists, ListID: listID, OldID: listID})
	return nil
}

func (s *PostgresStore) ListItems(ctx context.Context, listID string) ([]item.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE list_id=$1
		ORDER BY position, created_at
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]item.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// InsertItem stores a draft under a freshly minted id; whatever id the
// draft carried is the caller's placeholder and never persists. The
// draft's token rides along so the caller can recognize the row when it
// comes back over the feed.
func (s *PostgresStore) InsertItem(ctx context.Context, draft item.Item) (item.Item, error) {
	var parent any
	if draft.ParentID != nil {
		parent = *draft.ParentID
	}
	row, err := scanItem(s.db.QueryRowContext(ctx, `
		INSERT INTO items (id, list_id, kind, content, completed, parent_id, position, token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+itemColumns,
		util.NewID("itm"), draft.ListID, string(draft.Kind), draft.Content, draft.Completed, parent, draft.Position, draft.Token))
	if err != nil {
		return item.Item{}, fmt.Errorf("insert item: %w", err)
	}
	s.publish(ctx, feed.Event{Op: feed.OpInsert, Table: feed.TableItems, ListID: row.ListID, Item: &row})
	return row, nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, id string, patch item.Patch) error {
	columns, args := patchArgs(patch)
	if len(columns) == 0 {
		return nil
	}
	set := make([]string, 0, len(columns)+1)
	for i, column := range columns {
		set = append(set, fmt.Sprintf("%s=$%d", column, i+2))
	}
	set = append(set, "updated_at=NOW()")
	query := fmt.Sprintf(`UPDATE items SET %s WHERE id=$1 RETURNING %s`, strings.Join(set, ", "), itemColumns)

	row, err := scanItem(s.db.QueryRowContext(ctx, query, append([]any{id}, args...)...))
	if err != nil {
		return fmt.Errorf("update item %s: %w", id, err)
	}
	s.publish(ctx, feed.Event{Op: feed.OpUpdate, Table: feed.TableItems, ListID: row.ListID, Item: &row, Changed: columns})
	return nil
}

// DeleteItem removes one row. Deleting a row that is already gone is
// not an error; concurrent sessions race their deletes.
func (s *PostgresStore) DeleteItem(ctx context.Context, id string) error {
	row, err := scanItem(s.db.QueryRowContext(ctx, `
		DELETE FROM items WHERE id=$1 RETURNING `+itemColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	s.publish(ctx, feed.Event{Op: feed.OpDelete, Table: feed.TableItems, ListID: row.ListID, OldID: row.ID})
	return nil
}

// DeleteItems clears a list's rows, announcing each one so watchers can
// drop them individually.
func (s *PostgresStore) DeleteItems(ctx context.Context, listID string) error {
	rows, err := s.db.QueryContext(ctx, `DELETE FROM items WHERE list_id=$1 RETURNING id`, listID)
	if err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan deleted item: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate deleted items: %w", err)
	}

	for _, id := range ids {
		s.publish(ctx, feed.Event{Op: feed.OpDelete, Table: feed.TableItems, ListID: listID, OldID: id})
	}
	return nil
}

// publish announces a committed write. The write has already happened,
// so a feed failure is logged and swallowed; watchers heal on their
// next full load.
func (s *PostgresStore) publish(ctx context.Context, ev feed.Event) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		log.Printf("store: publish %s %s: %v", ev.Op, ev.Table, err)
	}
}
