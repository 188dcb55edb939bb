package engine

import (
	"context"
	"fmt"

	"ticklist/internal/item"
	"ticklist/internal/position"
)

// Reorder moves an item to index within its own sibling scope and
// renumbers the scope densely. index counts slots in the scope's
// current position ordering, moved item included.
func (e *Engine) Reorder(ctx context.Context, id string, index int) error {
	return e.structural(ctx, "reorder", func(items []item.Item) (position.Plan, error) {
		if _, ok := findRow(items, id); !ok {
			return position.Plan{}, notFoundError("reorder", id)
		}
		return position.Reorder(items, id, index), nil
	})
}

// MoveToGroup appends an item to the end of a header's children. Only
// headers adopt children, and a header itself never takes a parent;
// both are rejected as validation errors before any plan is computed.
// The source scope keeps its gap until its next renumbering pass.
func (e *Engine) MoveToGroup(ctx context.Context, id, headerID string) error {
	return e.structural(ctx, "move_to_group", func(items []item.Item) (position.Plan, error) {
		moved, ok := findRow(items, id)
		if !ok {
			return position.Plan{}, notFoundError("move_to_group", id)
		}
		target, ok := findRow(items, headerID)
		if !ok {
			return position.Plan{}, notFoundError("move_to_group", headerID)
		}
		if moved.Kind == item.KindHeader {
			return position.Plan{}, validationError("move_to_group", "headers cannot join a group")
		}
		if target.Kind != item.KindHeader {
			return position.Plan{}, validationError("move_to_group", fmt.Sprintf("%s is not a header", headerID))
		}
		return position.MoveToGroup(items, id, headerID), nil
	})
}

// MoveToRoot re-parents an item to the top level. target nil appends
// after the last incomplete root; otherwise incomplete roots at or
// after target shift down one slot.
func (e *Engine) MoveToRoot(ctx context.Context, id string, target *int) error {
	return e.structural(ctx, "move_to_root", func(items []item.Item) (position.Plan, error) {
		if _, ok := findRow(items, id); !ok {
			return position.Plan{}, notFoundError("move_to_root", id)
		}
		return position.MoveToRoot(items, id, target), nil
	})
}

// Indent nests an item under its immediately preceding sibling. The
// first item of a scope stays put. Headers never take a parent and
// grouping is a single level deep, so indenting a header or an already
// grouped item fails validation.
func (e *Engine) Indent(ctx context.Context, id string) error {
	return e.structural(ctx, "indent", func(items []item.Item) (position.Plan, error) {
		moved, ok := findRow(items, id)
		if !ok {
			return position.Plan{}, notFoundError("indent", id)
		}
		if moved.Kind == item.KindHeader {
			return position.Plan{}, validationError("indent", "headers cannot be nested")
		}
		if moved.ParentID != nil {
			return position.Plan{}, validationError("indent", fmt.Sprintf("%s is already in a group", id))
		}
		return position.Indent(items, id), nil
	})
}

// Outdent lifts an item out of its group, placing it immediately after
// its former parent. Root items stay put.
func (e *Engine) Outdent(ctx context.Context, id string) error {
	return e.structural(ctx, "outdent", func(items []item.Item) (position.Plan, error) {
		if _, ok := findRow(items, id); !ok {
			return position.Plan{}, notFoundError("outdent", id)
		}
		return position.Outdent(items, id), nil
	})
}

// Sort alphabetizes the incomplete children of every header. sortAll
// additionally alphabetizes the root level; without it the top-level
// manual order is kept.
func (e *Engine) Sort(ctx context.Context, sortAll bool) error {
	return e.structural(ctx, "sort", func(items []item.Item) (position.Plan, error) {
		return position.SortByContent(items, sortAll), nil
	})
}

// UngroupAll deletes every header and flattens the remaining items to
// the root level, incomplete first.
func (e *Engine) UngroupAll(ctx context.Context) error {
	return e.structural(ctx, "ungroup_all", func(items []item.Item) (position.Plan, error) {
		return position.UngroupAll(items), nil
	})
}

// findRow returns the snapshot row with the given id.
func findRow(items []item.Item, id string) (item.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return item.Item{}, false
}
