package engine

import (
	"context"
	"fmt"
	"sync"

	"ticklist/internal/assist"
	"ticklist/internal/item"
)

// InsertGenerated applies a categorized assist result to the list. The
// service describes rows in its own id space: a row whose id matches an
// existing item is reorganized in place, anything else (synthetic
// "new_" ids included) is created. Rows are applied in two passes,
// parents first, so that child rows can swap their synthetic parent
// references for the real ids the store assigned. A child whose parent
// row failed to persist is kept as a root rather than dropped.
//
// Positions are taken as the service returned them; it owns the
// arrangement of its own result set. This path is not optimistic: rows
// land in local state as the store confirms them, and the feed echo of
// each row is a no-op.
func (e *Engine) InsertGenerated(ctx context.Context, rows []assist.Item) error {
	if len(rows) == 0 {
		return nil
	}
	var parents, children []assist.Item
	for _, row := range rows {
		if row.ParentID == nil {
			parents = append(parents, row)
		} else {
			children = append(children, row)
		}
	}

	assigned := make(map[string]string, len(parents))
	var assignedMu sync.Mutex

	errs := make([]error, len(parents))
	var wg sync.WaitGroup
	for i, row := range parents {
		wg.Add(1)
		go func(slot int, row assist.Item) {
			defer wg.Done()
			persisted, err := e.applyGeneratedRow(ctx, row, nil)
			if err != nil {
				errs[slot] = err
				return
			}
			assignedMu.Lock()
			assigned[row.ID] = persisted.ID
			assignedMu.Unlock()
		}(i, row)
	}
	wg.Wait()

	childErrs := make([]error, len(children))
	wg = sync.WaitGroup{}
	for i, row := range children {
		wg.Add(1)
		go func(slot int, row assist.Item) {
			defer wg.Done()
			parentID := e.resolveGeneratedParent(*row.ParentID, assigned)
			if _, err := e.applyGeneratedRow(ctx, row, parentID); err != nil {
				childErrs[slot] = err
			}
		}(i, row)
	}
	wg.Wait()

	if err := firstError("insert_generated", append(errs, childErrs...)); err != nil {
		return err
	}
	return nil
}

// resolveGeneratedParent maps a result-space parent reference onto a
// real id: pass-one assignments win, already-known real ids pass
// through, anything unresolvable becomes a root reference.
func (e *Engine) resolveGeneratedParent(ref string, assigned map[string]string) *string {
	if real, ok := assigned[ref]; ok {
		return &real
	}
	if !assist.IsSynthetic(ref) {
		e.mu.Lock()
		known := e.indexLocked(ref) >= 0
		e.mu.Unlock()
		if known {
			return &ref
		}
	}
	return nil
}

// applyGeneratedRow persists one result row, an update when its id
// names an existing item and an insert otherwise, then folds the
// confirmed row into local state.
func (e *Engine) applyGeneratedRow(ctx context.Context, row assist.Item, parentID *string) (item.Item, error) {
	kind, content := item.ParseContent(row.Content)
	pos := row.Position

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return item.Item{}, closedError("insert_generated")
	}
	exists := !assist.IsSynthetic(row.ID) && e.indexLocked(row.ID) >= 0
	e.mu.Unlock()

	if exists {
		patch := item.Patch{
			Content:  &content,
			Kind:     &kind,
			Parent:   &item.ParentRef{ID: parentID},
			Position: &pos,
		}
		if err := e.store.UpdateItem(ctx, row.ID, patch); err != nil {
			return item.Item{}, fmt.Errorf("reorganize %s: %w", row.ID, err)
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return item.Item{}, closedError("insert_generated")
		}
		idx := e.indexLocked(row.ID)
		if idx < 0 {
			return item.Item{}, notFoundError("insert_generated", row.ID)
		}
		patch.Apply(&e.items[idx])
		e.broadcastLocked()
		return e.items[idx].Clone(), nil
	}

	draft := item.Item{
		ListID:   e.listID,
		Kind:     kind,
		Content:  content,
		Position: pos,
	}
	if parentID != nil {
		value := *parentID
		draft.ParentID = &value
	}
	persisted, err := e.store.InsertItem(ctx, draft)
	if err != nil {
		return item.Item{}, fmt.Errorf("insert %q: %w", content, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return persisted, nil
	}
	if e.indexLocked(persisted.ID) < 0 {
		e.items = append(e.items, persisted.Clone())
		e.broadcastLocked()
	}
	return persisted, nil
}
