// Package position computes parent/position assignments for structural
// mutations. Every planner is a pure function over a snapshot of the
// flat record set: given the current items and the mutation parameters
// it returns a deterministic Plan and performs no I/O.
package position

import (
	"sort"
	"strings"

	"ticklist/internal/item"
)

// Placement pins one existing row to a parent and slot.
type Placement struct {
	ID       string
	ParentID *string
	Position int
}

// Patch converts the placement into a row patch.
func (p Placement) Patch() item.Patch {
	pos := p.Position
	return item.Patch{Parent: &item.ParentRef{ID: p.ParentID}, Position: &pos}
}

// Plan is the set of row writes one structural mutation needs. Inserts
// carry fully planned rows (parent and position filled in); Placements
// move existing rows; Deletes name rows to remove. An empty plan means
// the mutation is a no-op.
type Plan struct {
	Inserts    []item.Item
	Placements []Placement
	Deletes    []string
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Placements) == 0 && len(p.Deletes) == 0
}

// Scope returns the items sharing one parent, ordered by position.
// Ties keep snapshot order so planning stays deterministic.
func Scope(items []item.Item, parent *string) []item.Item {
	members := make([]item.Item, 0, len(items))
	for _, it := range items {
		if item.SameScope(it.ParentID, parent) {
			members = append(members, it)
		}
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].Position < members[j].Position })
	return members
}

func find(items []item.Item, id string) (item.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return item.Item{}, false
}

func childCount(items []item.Item, parentID, excludeID string) int {
	count := 0
	for _, it := range items {
		if it.ID != excludeID && it.ParentID != nil && *it.ParentID == parentID {
			count++
		}
	}
	return count
}

// PrependInsert plans inserting k new rows at the top of one sibling
// scope. The first given row ends up topmost (positions 0..k-1); every
// existing incomplete sibling shifts +k. Completed siblings are never
// shifted; they already sort to the bottom, out of the shifted range.
func PrependInsert(items []item.Item, parent *string, inserts []item.Item) Plan {
	k := len(inserts)
	if k == 0 {
		return Plan{}
	}
	planned := make([]item.Item, k)
	for i, ins := range inserts {
		if parent != nil {
			parentID := *parent
			ins.ParentID = &parentID
		} else {
			ins.ParentID = nil
		}
		ins.Position = i
		planned[i] = ins
	}
	var placements []Placement
	for _, sibling := range Scope(items, parent) {
		if sibling.Completed {
			continue
		}
		placements = append(placements, Placement{ID: sibling.ID, ParentID: sibling.ParentID, Position: sibling.Position + k})
	}
	return Plan{Inserts: planned, Placements: placements}
}

// Reorder plans moving one item to index within its own sibling scope.
// index counts slots in the scope's current position ordering, dragged
// item included. The scope is renumbered densely; rows already in their
// target slot are left out of the plan.
func Reorder(items []item.Item, id string, index int) Plan {
	moved, ok := find(items, id)
	if !ok {
		return Plan{}
	}
	ordered := Scope(items, moved.ParentID)
	remaining := make([]item.Item, 0, len(ordered)-1)
	for _, sibling := range ordered {
		if sibling.ID != id {
			remaining = append(remaining, sibling)
		}
	}
	if index < 0 {
		index = 0
	}
	if index > len(remaining) {
		index = len(remaining)
	}
	sequence := make([]item.Item, 0, len(ordered))
	sequence = append(sequence, remaining[:index]...)
	sequence = append(sequence, moved)
	sequence = append(sequence, remaining[index:]...)
	return renumber(sequence, moved.ParentID)
}

// MoveToGroup plans appending an item to the end of a header's children.
// The source scope is left with a gap; density there is restored by that
// scope's next reorder or sort pass.
func MoveToGroup(items []item.Item, id, headerID string) Plan {
	if _, ok := find(items, id); !ok || id == headerID {
		return Plan{}
	}
	if _, ok := find(items, headerID); !ok {
		return Plan{}
	}
	parentID := headerID
	return Plan{Placements: []Placement{{
		ID:       id,
		ParentID: &parentID,
		Position: childCount(items, headerID, id),
	}}}
}

// MoveToRoot plans re-parenting an item to the top level. target is the
// desired root position; nil appends after the last incomplete root.
// Incomplete roots at or after the target shift +1; completed roots stay
// where they are.
func MoveToRoot(items []item.Item, id string, target *int) Plan {
	moved, ok := find(items, id)
	if !ok {
		return Plan{}
	}
	pos := 0
	if target != nil {
		pos = *target
		if pos < 0 {
			pos = 0
		}
	} else {
		for _, root := range Scope(items, nil) {
			if root.ID != id && !root.Completed {
				pos++
			}
		}
	}
	var placements []Placement
	for _, root := range Scope(items, nil) {
		if root.ID == id || root.Completed || root.Position < pos {
			continue
		}
		placements = append(placements, Placement{ID: root.ID, ParentID: nil, Position: root.Position + 1})
	}
	placements = append(placements, Placement{ID: moved.ID, ParentID: nil, Position: pos})
	return Plan{Placements: placements}
}

// Indent plans nesting an item under its immediately preceding sibling,
// appended as that sibling's last child. The first item of a scope has
// nothing to indent under, so the plan is empty.
func Indent(items []item.Item, id string) Plan {
	moved, ok := find(items, id)
	if !ok {
		return Plan{}
	}
	ordered := Scope(items, moved.ParentID)
	index := -1
	for i, sibling := range ordered {
		if sibling.ID == id {
			index = i
			break
		}
	}
	if index <= 0 {
		return Plan{}
	}
	previous := ordered[index-1]
	parentID := previous.ID
	return Plan{Placements: []Placement{{
		ID:       id,
		ParentID: &parentID,
		Position: childCount(items, previous.ID, id),
	}}}
}

// Outdent plans lifting an item next to its former parent: the item
// joins the parent's scope immediately after the parent's position, and
// every sibling there at or after that slot shifts +1. Items already at
// root, or whose parent row is missing, stay put.
func Outdent(items []item.Item, id string) Plan {
	moved, ok := find(items, id)
	if !ok || moved.ParentID == nil {
		return Plan{}
	}
	parent, ok := find(items, *moved.ParentID)
	if !ok {
		return Plan{}
	}
	insertAt := parent.Position + 1
	var placements []Placement
	for _, sibling := range Scope(items, parent.ParentID) {
		if sibling.ID == id || sibling.Position < insertAt {
			continue
		}
		placements = append(placements, Placement{ID: sibling.ID, ParentID: sibling.ParentID, Position: sibling.Position + 1})
	}
	placements = append(placements, Placement{ID: moved.ID, ParentID: parent.ParentID, Position: insertAt})
	return Plan{Placements: placements}
}

// SortByContent plans an alphabetical tidy-up. Incomplete children of
// every header are ordered by case-insensitive content and renumbered
// from 0; completed rows are never rearranged relative to each other,
// they are only compacted to the tail of their scope so positions stay
// a dense permutation. The root scope keeps its manual order unless
// sortAll is set, in which case it is alphabetized like the rest.
func SortByContent(items []item.Item, sortAll bool) Plan {
	var plan Plan
	for _, scopeParent := range scopeParents(items) {
		members := Scope(items, scopeParent)
		incomplete := make([]item.Item, 0, len(members))
		completed := make([]item.Item, 0, len(members))
		for _, member := range members {
			if member.Completed {
				completed = append(completed, member)
			} else {
				incomplete = append(incomplete, member)
			}
		}
		if len(incomplete) == 0 {
			continue
		}
		if scopeParent != nil || sortAll {
			sort.SliceStable(incomplete, func(i, j int) bool {
				return strings.ToLower(incomplete[i].Content) < strings.ToLower(incomplete[j].Content)
			})
		}
		sequence := append(incomplete, completed...)
		scoped := renumber(sequence, scopeParent)
		plan.Placements = append(plan.Placements, scoped.Placements...)
	}
	return plan
}

// UngroupAll plans flattening the whole list: every header row is
// deleted and every other row becomes a root, ordered incomplete first
// then completed, each bucket by former position, renumbered densely.
func UngroupAll(items []item.Item) Plan {
	var plan Plan
	survivors := make([]item.Item, 0, len(items))
	for _, it := range items {
		if it.Kind == item.KindHeader {
			plan.Deletes = append(plan.Deletes, it.ID)
			continue
		}
		survivors = append(survivors, it)
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		if survivors[i].Completed != survivors[j].Completed {
			return !survivors[i].Completed
		}
		return survivors[i].Position < survivors[j].Position
	})
	for i, survivor := range survivors {
		if survivor.ParentID == nil && survivor.Position == i {
			continue
		}
		plan.Placements = append(plan.Placements, Placement{ID: survivor.ID, ParentID: nil, Position: i})
	}
	return plan
}

// renumber emits placements pinning sequence[i] to position i under the
// given parent, skipping rows already there.
func renumber(sequence []item.Item, parent *string) Plan {
	var plan Plan
	for i, it := range sequence {
		if it.Position == i && item.SameScope(it.ParentID, parent) {
			continue
		}
		var parentID *string
		if parent != nil {
			value := *parent
			parentID = &value
		}
		plan.Placements = append(plan.Placements, Placement{ID: it.ID, ParentID: parentID, Position: i})
	}
	return plan
}

// scopeParents lists every distinct sibling scope in snapshot order,
// root first.
func scopeParents(items []item.Item) []*string {
	parents := []*string{nil}
	seen := map[string]bool{}
	for _, it := range items {
		if it.ParentID == nil || seen[*it.ParentID] {
			continue
		}
		seen[*it.ParentID] = true
		parentID := *it.ParentID
		parents = append(parents, &parentID)
	}
	return parents
}
