package engine

import (
	"context"

	"ticklist/internal/feed"
	"ticklist/internal/item"
)

// Run consumes a feed subscription until the context ends or the
// channel closes. It is safe to run concurrently with local mutations;
// every event application is idempotent and order-independent with
// respect to the optimistic state.
func (e *Engine) Run(ctx context.Context, events <-chan feed.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.ApplyEvent(ev)
		}
	}
}

// ApplyEvent reconciles one remote change notification into local
// state. Events for other lists, and all events after Close, are
// ignored.
func (e *Engine) ApplyEvent(ev feed.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || ev.ListID != e.listID {
		return
	}
	switch ev.Table {
	case feed.TableItems:
		e.applyItemEventLocked(ev)
	case feed.TableLists:
		e.applyListEventLocked(ev)
	}
}

func (e *Engine) applyItemEventLocked(ev feed.Event) {
	switch ev.Op {
	case feed.OpInsert:
		if ev.Item == nil {
			return
		}
		incoming := ev.Item.Clone()
		if incoming.Token != "" {
			if tempID, ok := e.pending[incoming.Token]; ok {
				// Our own insert, echoed before the direct response
				// landed. Resolve the temp id; the response becomes a
				// no-op.
				delete(e.pending, incoming.Token)
				if idx := e.indexLocked(tempID); idx >= 0 {
					e.items[idx] = incoming
					if e.completing[tempID] {
						delete(e.completing, tempID)
						e.completing[incoming.ID] = true
					}
					e.broadcastLocked()
				}
				return
			}
		}
		if e.indexLocked(incoming.ID) >= 0 {
			// Own echo after the response resolved it, or a duplicate
			// delivery.
			return
		}
		e.items = append(e.items, incoming)
		e.broadcastLocked()

	case feed.OpUpdate:
		if ev.Item == nil {
			return
		}
		idx := e.indexLocked(ev.Item.ID)
		if idx < 0 {
			// Unknown row: the matching delete already happened, or its
			// insert is still on the way and carries the same state.
			return
		}
		mergeItem(&e.items[idx], *ev.Item, ev.Changed)
		e.broadcastLocked()

	case feed.OpDelete:
		id := ev.OldID
		if id == "" && ev.Item != nil {
			id = ev.Item.ID
		}
		idx := e.indexLocked(id)
		if idx < 0 {
			return
		}
		e.items = append(e.items[:idx], e.items[idx+1:]...)
		delete(e.completing, id)
		e.broadcastLocked()
	}
}

func (e *Engine) applyListEventLocked(ev feed.Event) {
	if ev.List == nil {
		return
	}
	switch ev.Op {
	case feed.OpInsert:
		if e.list.ID == "" {
			e.list = *ev.List
			e.broadcastLocked()
		}
	case feed.OpUpdate:
		mergeList(&e.list, *ev.List, ev.Changed)
		e.broadcastLocked()
	}
}

// mergeItem shallow-merges the changed columns into an existing record.
// An event without a column list falls back to merging every mutable
// field; either way untouched fields survive.
func mergeItem(dst *item.Item, src item.Item, changed []string) {
	if len(changed) == 0 {
		changed = []string{"content", "kind", "completed", "parent_id", "position"}
	}
	for _, column := range changed {
		switch column {
		case "content":
			dst.Content = src.Content
		case "kind":
			dst.Kind = src.Kind
		case "completed":
			dst.Completed = src.Completed
		case "parent_id":
			if src.ParentID != nil {
				parentID := *src.ParentID
				dst.ParentID = &parentID
			} else {
				dst.ParentID = nil
			}
		case "position":
			dst.Position = src.Position
		}
	}
	if !src.UpdatedAt.IsZero() {
		dst.UpdatedAt = src.UpdatedAt
	}
}

func mergeList(dst *item.List, src item.List, changed []string) {
	if len(changed) == 0 {
		changed = []string{"title", "theme"}
	}
	for _, column := range changed {
		switch column {
		case "title":
			dst.Title = src.Title
		case "theme":
			dst.Theme = src.Theme
		}
	}
	if !src.UpdatedAt.IsZero() {
		dst.UpdatedAt = src.UpdatedAt
	}
}
