package store

import (
	"database/sql"

	"ticklist/internal/item"
)

// rowScanner is the piece of *sql.Row and *sql.Rows the mappers need.
type rowScanner interface {
	Scan(dest ...any) error
}

const listColumns = `id, title, theme, created_at, updated_at`

func scanList(row rowScanner) (item.List, error) {
	var list item.List
	if err := row.Scan(&list.ID, &list.Title, &list.Theme, &list.CreatedAt, &list.UpdatedAt); err != nil {
		return item.List{}, err
	}
	return list, nil
}

const itemColumns = `id, list_id, kind, content, completed, parent_id, position, token, created_at, updated_at`

func scanItem(row rowScanner) (item.Item, error) {
	var (
		it     item.Item
		kind   string
		parent sql.NullString
	)
	err := row.Scan(&it.ID, &it.ListID, &kind, &it.Content, &it.Completed, &parent, &it.Position, &it.Token, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return item.Item{}, err
	}
	it.Kind = item.Kind(kind)
	if parent.Valid {
		it.ParentID = &parent.String
	}
	return it, nil
}

// patchArgs flattens an item patch into parallel column and value
// slices for a dynamic UPDATE. A nil parent ref maps to SQL NULL.
func patchArgs(patch item.Patch) ([]string, []any) {
	columns := make([]string, 0, 5)
	args := make([]any, 0, 5)
	if patch.Content != nil {
		columns = append(columns, "content")
		args = append(args, *patch.Content)
	}
	if patch.Kind != nil {
		columns = append(columns, "kind")
		args = append(args, string(*patch.Kind))
	}
	if patch.Completed != nil {
		columns = append(columns, "completed")
		args = append(args, *patch.Completed)
	}
	if patch.Parent != nil {
		columns = append(columns, "parent_id")
		if patch.Parent.ID != nil {
			args = append(args, *patch.Parent.ID)
		} else {
			args = append(args, nil)
		}
	}
	if patch.Position != nil {
		columns = append(columns, "position")
		args = append(args, *patch.Position)
	}
	return columns, args
}

func listPatchArgs(patch item.ListPatch) ([]string, []any) {
	columns := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if patch.Title != nil {
		columns = append(columns, "title")
		args = append(args, *patch.Title)
	}
	if patch.Theme != nil {
		columns = append(columns, "theme")
		args = append(args, *patch.Theme)
	}
	return columns, args
}
