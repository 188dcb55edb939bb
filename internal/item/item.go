// Package item holds the record types shared by the sync engine, the
// stores and the change feed.
package item

import (
	"strings"
	"time"
)

// Kind tags what a row is. It is stored as a column and carried on the
// wire so nothing downstream has to sniff content prefixes.
type Kind string

const (
	KindTask   Kind = "task"
	KindHeader Kind = "header"
	KindNote   Kind = "note"
)

// ParseContent classifies raw input text and strips its marker prefix.
// "# Groceries" is a header, "note: ring the bell twice" is a note,
// anything else is a plain task. Classification happens once here, at
// the input boundary; stored content never keeps the marker.
func ParseContent(raw string) (Kind, string) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "#") {
		return KindHeader, strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	}
	if len(trimmed) >= 5 && strings.EqualFold(trimmed[:5], "note:") {
		return KindNote, strings.TrimSpace(trimmed[5:])
	}
	return KindTask, trimmed
}

// Item is the only persisted entity: one row of a list. Position is an
// ordinal inside the item's sibling scope (the set of items sharing one
// ParentID); scopes are densely numbered 0..n-1 at rest, though a gap may
// exist between two structural mutations.
type Item struct {
	ID        string    `json:"id"`
	ListID    string    `json:"listId"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Completed bool      `json:"completed"`
	ParentID  *string   `json:"parentId"`
	Position  int       `json:"position"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy that shares no pointers with the original.
func (it Item) Clone() Item {
	out := it
	if it.ParentID != nil {
		parentID := *it.ParentID
		out.ParentID = &parentID
	}
	return out
}

// List is the metadata row for one shared checklist. The id doubles as
// the share capability: anyone holding it may read and write the list.
type List struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SameScope reports whether two parent ids name the same sibling scope.
func SameScope(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ParentRef wraps a nullable parent assignment so a patch can tell
// "leave the parent alone" (no ref) apart from "make this a root"
// (ref holding nil).
type ParentRef struct {
	ID *string
}

// Patch is a partial update to an item. Nil fields are untouched.
type Patch struct {
	Content   *string
	Kind      *Kind
	Completed *bool
	Parent    *ParentRef
	Position  *int
}

// Columns lists the column names the patch touches, in schema order.
// Feed updates carry this list so reconcilers merge only what changed.
func (p Patch) Columns() []string {
	columns := make([]string, 0, 5)
	if p.Content != nil {
		columns = append(columns, "content")
	}
	if p.Kind != nil {
		columns = append(columns, "kind")
	}
	if p.Completed != nil {
		columns = append(columns, "completed")
	}
	if p.Parent != nil {
		columns = append(columns, "parent_id")
	}
	if p.Position != nil {
		columns = append(columns, "position")
	}
	return columns
}

// Apply writes the patch's set fields onto an item.
func (p Patch) Apply(it *Item) {
	if p.Content != nil {
		it.Content = *p.Content
	}
	if p.Kind != nil {
		it.Kind = *p.Kind
	}
	if p.Completed != nil {
		it.Completed = *p.Completed
	}
	if p.Parent != nil {
		if p.Parent.ID != nil {
			parentID := *p.Parent.ID
			it.ParentID = &parentID
		} else {
			it.ParentID = nil
		}
	}
	if p.Position != nil {
		it.Position = *p.Position
	}
}

// ListPatch is a partial update to a list's metadata row.
type ListPatch struct {
	Title *string
	Theme *string
}

func (p ListPatch) Columns() []string {
	columns := make([]string, 0, 2)
	if p.Title != nil {
		columns = append(columns, "title")
	}
	if p.Theme != nil {
		columns = append(columns, "theme")
	}
	return columns
}

func (p ListPatch) Apply(l *List) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Theme != nil {
		l.Theme = *p.Theme
	}
}
