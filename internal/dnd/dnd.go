// Package dnd turns raw drag gestures into list mutations. A Controller
// tracks one gesture at a time: the pointer picks an item up, passes
// over rows and the two synthetic root zones, and either drops or
// cancels. Until the drop nothing mutates; the view only consults
// Highlight to tint the group that would receive the item.
package dnd

import (
	"context"
	"sync"

	"ticklist/internal/item"
	"ticklist/internal/position"
)

// Zone names the synthetic drop targets that exist outside the rows.
type Zone int

const (
	ZoneNone Zone = iota
	// ZoneTop is the strip above the first row; drops land at the top
	// of the root scope.
	ZoneTop
	// ZoneBottom is the strip below the last row; drops land after the
	// incomplete root items.
	ZoneBottom
)

// View exposes the arrangement the pointer is moving over.
type View interface {
	Items() []item.Item
}

// Mutator applies the structural change a drop resolves to.
type Mutator interface {
	Reorder(ctx context.Context, id string, index int) error
	MoveToGroup(ctx context.Context, id, headerID string) error
	MoveToRoot(ctx context.Context, id string, pos *int) error
}

// Controller is a single-gesture drag state machine.
type Controller struct {
	view View
	mut  Mutator

	mu      sync.Mutex
	dragged string
	hovered string
	zone    Zone
}

func New(view View, mut Mutator) *Controller {
	return &Controller{view: view, mut: mut}
}

// Start begins a gesture for the given item. Unknown ids leave the
// controller idle.
func (c *Controller) Start(id string) {
	items := c.view.Items()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := find(items, id); !ok {
		return
	}
	c.dragged = id
	c.hovered = ""
	c.zone = ZoneNone
}

// Over records the row currently under the pointer.
func (c *Controller) Over(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dragged == "" {
		return
	}
	c.hovered = id
	c.zone = ZoneNone
}

// OverRootZone records that the pointer sits on one of the synthetic
// root strips rather than on a row.
func (c *Controller) OverRootZone(zone Zone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dragged == "" {
		return
	}
	c.hovered = ""
	c.zone = zone
}

// Leave clears the hover target without ending the gesture.
func (c *Controller) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hovered = ""
	c.zone = ZoneNone
}

// Cancel abandons the gesture; nothing mutates.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Dragging reports the id being dragged, or "" when idle.
func (c *Controller) Dragging() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragged
}

// Highlight names the group a drop would land in, for the view to
// tint: the hovered header, or the group enclosing the hovered row.
// Header drags never target a group, and the root zones are not one.
func (c *Controller) Highlight() string {
	items := c.view.Items()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dragged == "" || c.hovered == "" || c.hovered == c.dragged {
		return ""
	}
	dragged, ok := find(items, c.dragged)
	if !ok || dragged.Kind == item.KindHeader {
		return ""
	}
	return resolveGroup(items, c.hovered)
}

// Drop ends the gesture and applies the mutation the current target
// resolves to. The gesture resets to idle whether or not the mutation
// succeeds; a failed drop is the mutator's to report.
func (c *Controller) Drop(ctx context.Context) error {
	items := c.view.Items()
	c.mu.Lock()
	dragged, hovered, zone := c.dragged, c.hovered, c.zone
	c.reset()
	c.mu.Unlock()

	if dragged == "" || dragged == hovered {
		return nil
	}
	source, ok := find(items, dragged)
	if !ok {
		return nil
	}

	if source.Kind == item.KindHeader {
		return c.dropHeader(ctx, items, source, hovered, zone)
	}
	return c.dropLeaf(ctx, items, source, hovered, zone)
}

// dropHeader reorders the header within the root scope: to the slot of
// the hovered row's root ancestor, or to either end for the zones.
func (c *Controller) dropHeader(ctx context.Context, items []item.Item, source item.Item, hovered string, zone Zone) error {
	roots := position.Scope(items, nil)
	switch zone {
	case ZoneTop:
		return c.mut.Reorder(ctx, source.ID, 0)
	case ZoneBottom:
		return c.mut.Reorder(ctx, source.ID, len(roots)-1)
	}
	if hovered == "" {
		return nil
	}
	target, ok := find(items, rootAncestor(items, hovered))
	if !ok {
		return nil
	}
	for i, root := range roots {
		if root.ID == target.ID {
			return c.mut.Reorder(ctx, source.ID, i)
		}
	}
	return nil
}

func (c *Controller) dropLeaf(ctx context.Context, items []item.Item, source item.Item, hovered string, zone Zone) error {
	switch zone {
	case ZoneTop:
		top := 0
		return c.mut.MoveToRoot(ctx, source.ID, &top)
	case ZoneBottom:
		return c.mut.MoveToRoot(ctx, source.ID, nil)
	}
	if hovered == "" {
		return nil
	}
	target, ok := find(items, hovered)
	if !ok {
		return nil
	}

	// A row in the dragged item's own scope is a plain reorder.
	if target.Kind != item.KindHeader && item.SameScope(source.ParentID, target.ParentID) {
		scope := position.Scope(items, target.ParentID)
		for i, member := range scope {
			if member.ID == target.ID {
				return c.mut.Reorder(ctx, source.ID, i)
			}
		}
		return nil
	}

	// Anywhere inside a group, header included, adopts the item.
	if group := resolveGroup(items, hovered); group != "" && group != source.ID {
		return c.mut.MoveToGroup(ctx, source.ID, group)
	}

	// Nested item dropped on a root row surfaces at that row's slot.
	if source.ParentID != nil && target.ParentID == nil {
		pos := target.Position
		return c.mut.MoveToRoot(ctx, source.ID, &pos)
	}
	return nil
}

func (c *Controller) reset() {
	c.dragged = ""
	c.hovered = ""
	c.zone = ZoneNone
}

func find(items []item.Item, id string) (item.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return item.Item{}, false
}

// resolveGroup returns the id of the header whose group encloses the
// given row: the row itself when it is a header, otherwise the nearest
// header ancestor.
func resolveGroup(items []item.Item, id string) string {
	seen := make(map[string]bool, len(items))
	for id != "" && !seen[id] {
		seen[id] = true
		row, ok := find(items, id)
		if !ok {
			return ""
		}
		if row.Kind == item.KindHeader {
			return row.ID
		}
		if row.ParentID == nil {
			return ""
		}
		id = *row.ParentID
	}
	return ""
}

// rootAncestor walks the parent chain up to the root scope. Dangling
// parents terminate the walk at the last known row.
func rootAncestor(items []item.Item, id string) string {
	seen := make(map[string]bool, len(items))
	for !seen[id] {
		seen[id] = true
		row, ok := find(items, id)
		if !ok || row.ParentID == nil {
			return id
		}
		if _, ok := find(items, *row.ParentID); !ok {
			return id
		}
		id = *row.ParentID
	}
	return id
}
