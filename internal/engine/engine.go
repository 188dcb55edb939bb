// Package engine owns the canonical in-memory record set for one open
// list. Every user-visible mutation is planned and applied locally
// first, then persisted; change-feed events from other clients are
// reconciled into the same record set. The engine is the single writer
// of that state; everything else reads snapshots.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ticklist/internal/item"
	"ticklist/internal/position"
	"ticklist/internal/tree"
	"ticklist/internal/util"
)

// DefaultDebounce is the completion debounce window: how long recently
// completed items hold their slot before sinking to the bottom together.
const DefaultDebounce = 1200 * time.Millisecond

// Store is what the engine needs from the backing row store. Inserts
// return the persisted row so the caller learns the assigned identity.
type Store interface {
	GetList(ctx context.Context, listID string) (item.List, error)
	UpdateList(ctx context.Context, listID string, patch item.ListPatch) error
	ListItems(ctx context.Context, listID string) ([]item.Item, error)
	InsertItem(ctx context.Context, row item.Item) (item.Item, error)
	UpdateItem(ctx context.Context, id string, patch item.Patch) error
	DeleteItem(ctx context.Context, id string) error
	DeleteItems(ctx context.Context, listID string) error
}

// Engine synchronizes one list. Mutation planning and application run
// under a single mutex so no plan is ever computed against a stale
// snapshot; persistence calls run outside the critical section and are
// reconciled back in as they land.
type Engine struct {
	listID   string
	store    Store
	debounce time.Duration

	mu         sync.Mutex
	list       item.List
	items      []item.Item
	pending    map[string]string // idempotency token -> optimistic temp id
	completing map[string]bool
	timer      *time.Timer
	closed     bool
	watchers   map[chan struct{}]struct{}
}

// New returns an engine bound to one list. debounce <= 0 selects
// DefaultDebounce.
func New(listID string, store Store, debounce time.Duration) *Engine {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Engine{
		listID:     listID,
		store:      store,
		debounce:   debounce,
		pending:    make(map[string]string),
		completing: make(map[string]bool),
		watchers:   make(map[chan struct{}]struct{}),
	}
}

// ListID returns the id of the list this engine synchronizes.
func (e *Engine) ListID() string {
	return e.listID
}

// Load fetches the list row and its items from the store, replacing any
// local state.
func (e *Engine) Load(ctx context.Context) error {
	list, err := e.store.GetList(ctx, e.listID)
	if err != nil {
		return persistError("load", fmt.Errorf("get list: %w", err))
	}
	items, err := e.store.ListItems(ctx, e.listID)
	if err != nil {
		return persistError("load", fmt.Errorf("list items: %w", err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return closedError("load")
	}
	e.list = list
	e.items = items
	e.broadcastLocked()
	return nil
}

// Items returns a snapshot of the flat record set.
func (e *Engine) Items() []item.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// List returns the list metadata row.
func (e *Engine) List() item.List {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list
}

// Completing returns the ids currently held in place by the completion
// debounce.
func (e *Engine) Completing() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]bool, len(e.completing))
	for id := range e.completing {
		out[id] = true
	}
	return out
}

// Tree derives the display hierarchy from the current record set.
func (e *Engine) Tree() []*tree.Node {
	e.mu.Lock()
	items := e.snapshotLocked()
	completing := make(map[string]bool, len(e.completing))
	for id := range e.completing {
		completing[id] = true
	}
	e.mu.Unlock()
	return tree.Organize(items, completing)
}

// Watch returns a channel that receives a ping after every state
// change, plus a cancel func. Pings are edge-triggered and coalesce; a
// slow consumer misses pings, never blocks mutations. The channel
// closes when the engine closes.
func (e *Engine) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	e.watchers[ch] = struct{}{}
	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.watchers, ch)
	}
	return ch, cancel
}

// Close tears the engine down. Persistence responses and feed events
// that arrive afterwards are ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
	}
	for ch := range e.watchers {
		close(ch)
		delete(e.watchers, ch)
	}
}

// Add prepend-inserts one or more items into a sibling scope. Inputs
// are classified by their content marker ("#" header, "note:" note);
// blank entries are skipped. The first content ends up topmost.
func (e *Engine) Add(ctx context.Context, parent *string, contents ...string) ([]item.Item, error) {
	drafts := make([]item.Item, 0, len(contents))
	for _, raw := range contents {
		kind, content := item.ParseContent(raw)
		if content == "" {
			continue
		}
		drafts = append(drafts, item.Item{
			ID:      util.NewID("tmp"),
			ListID:  e.listID,
			Kind:    kind,
			Content: content,
			Token:   util.NewToken(),
		})
	}
	if len(drafts) == 0 {
		return nil, validationError("add", "content is empty")
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, closedError("add")
	}
	plan := position.PrependInsert(e.snapshotLocked(), parent, drafts)
	e.applyPlanLocked(plan)
	e.broadcastLocked()
	e.mu.Unlock()

	if err := e.persistPlan(ctx, "add", plan); err != nil {
		return nil, err
	}

	// Report the rows as they stand now: persistence has finished, so
	// confirmed inserts carry their real ids.
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]item.Item, 0, len(plan.Inserts))
	for _, ins := range plan.Inserts {
		for i := range e.items {
			if e.items[i].Token == ins.Token {
				out = append(out, e.items[i].Clone())
				break
			}
		}
	}
	return out, nil
}

// Edit replaces an item's content. The new text is re-classified, so
// typing a "#" marker turns a task into a header and vice versa.
func (e *Engine) Edit(ctx context.Context, id, raw string) error {
	kind, content := item.ParseContent(raw)
	if content == "" {
		return validationError("edit", "content is empty")
	}
	return e.patchItem(ctx, "edit", id, item.Patch{Content: &content, Kind: &kind})
}

// Toggle flips a task's completed state. Completing is debounced: the
// field changes immediately but the item keeps its slot until the
// shared timer fires; uncompleting takes effect immediately. Headers
// and notes have no checkbox, so toggling them is a no-op.
func (e *Engine) Toggle(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return closedError("toggle")
	}
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return notFoundError("toggle", id)
	}
	if e.items[idx].Kind != item.KindTask {
		e.mu.Unlock()
		return nil
	}
	prior := e.items[idx].Completed
	completed := !prior
	e.items[idx].Completed = completed
	if completed {
		e.completing[id] = true
		e.armDebounceLocked()
	} else {
		delete(e.completing, id)
	}
	e.broadcastLocked()
	e.mu.Unlock()

	if err := e.store.UpdateItem(ctx, id, item.Patch{Completed: &completed}); err != nil {
		e.mu.Lock()
		if !e.closed {
			if idx := e.indexLocked(id); idx >= 0 {
				e.items[idx].Completed = prior
			}
			delete(e.completing, id)
			e.broadcastLocked()
		}
		e.mu.Unlock()
		return persistError("toggle", err)
	}
	return nil
}

// Delete removes one item.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return closedError("delete")
	}
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return notFoundError("delete", id)
	}
	removed := e.items[idx]
	e.items = append(e.items[:idx], e.items[idx+1:]...)
	delete(e.completing, id)
	if removed.Token != "" {
		delete(e.pending, removed.Token)
	}
	e.broadcastLocked()
	e.mu.Unlock()

	if err := e.store.DeleteItem(ctx, id); err != nil {
		return persistError("delete", err)
	}
	return nil
}

// CompleteAll marks every open task completed. Bulk completions skip
// the debounce: the whole list re-sorts in one redraw anyway.
func (e *Engine) CompleteAll(ctx context.Context) error {
	completed := true
	return e.setCompletedWhere(ctx, "complete_all", func(it item.Item) bool {
		return it.Kind == item.KindTask && !it.Completed
	}, completed)
}

// UncompleteAll reopens every completed task.
func (e *Engine) UncompleteAll(ctx context.Context) error {
	return e.setCompletedWhere(ctx, "uncomplete_all", func(it item.Item) bool {
		return it.Kind == item.KindTask && it.Completed
	}, false)
}

func (e *Engine) setCompletedWhere(ctx context.Context, op string, match func(item.Item) bool, completed bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return closedError(op)
	}
	ids := make([]string, 0, len(e.items))
	for i := range e.items {
		if !match(e.items[i]) {
			continue
		}
		e.items[i].Completed = completed
		delete(e.completing, e.items[i].ID)
		ids = append(ids, e.items[i].ID)
	}
	if len(ids) > 0 {
		e.broadcastLocked()
	}
	e.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			flag := completed
			if err := e.store.UpdateItem(ctx, id, item.Patch{Completed: &flag}); err != nil {
				errs[slot] = fmt.Errorf("update %s: %w", id, err)
			}
		}(i, id)
	}
	wg.Wait()
	return firstError(op, errs)
}

// ClearCompleted deletes every completed row.
func (e *Engine) ClearCompleted(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return closedError("clear_completed")
	}
	ids := make([]string, 0, len(e.items))
	kept := e.items[:0]
	for _, it := range e.items {
		if it.Completed {
			ids = append(ids, it.ID)
			delete(e.completing, it.ID)
			continue
		}
		kept = append(kept, it)
	}
	e.items = kept
	if len(ids) > 0 {
		e.broadcastLocked()
	}
	e.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			if err := e.store.DeleteItem(ctx, id); err != nil {
				errs[slot] = fmt.Errorf("delete %s: %w", id, err)
			}
		}(i, id)
	}
	wg.Wait()
	return firstError("clear_completed", errs)
}

// Nuke deletes every item in the list.
func (e *Engine) Nuke(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return closedError("nuke")
	}
	e.items = nil
	e.pending = make(map[string]string)
	e.completing = make(map[string]bool)
	e.broadcastLocked()
	e.mu.Unlock()

	if err := e.store.DeleteItems(ctx, e.listID); err != nil {
		return persistError("nuke", err)
	}
	return nil
}

// SetTitle updates the list title.
func (e *Engine) SetTitle(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	return e.patchList(ctx, "set_title", item.ListPatch{Title: &title})
}

// SetTheme updates the list theme color.
func (e *Engine) SetTheme(ctx context.Context, theme string) error {
	theme = strings.TrimSpace(theme)
	return e.patchList(ctx, "set_theme", item.ListPatch{Theme: &theme})
}

// patchItem applies a field patch optimistically and persists it,
// restoring the prior field values if the single call fails.
func (e *Engine) patchItem(ctx context.Context, op, id string, patch item.Patch) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return closedError(op)
	}
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return notFoundError(op, id)
	}
	prior := e.items[idx].Clone()
	patch.Apply(&e.items[idx])
	e.broadcastLocked()
	e.mu.Unlock()

	if err := e.store.UpdateItem(ctx, id, patch); err != nil {
		e.mu.Lock()
		if !e.closed {
			if idx := e.indexLocked(id); idx >= 0 {
				reversePatch(prior, patch).Apply(&e.items[idx])
				e.broadcastLocked()
			}
		}
		e.mu.Unlock()
		return persistError(op, err)
	}
	return nil
}

func (e *Engine) patchList(ctx context.Context, op string, patch item.ListPatch) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return closedError(op)
	}
	prior := e.list
	patch.Apply(&e.list)
	e.broadcastLocked()
	e.mu.Unlock()

	if err := e.store.UpdateList(ctx, e.listID, patch); err != nil {
		e.mu.Lock()
		if !e.closed {
			if patch.Title != nil {
				e.list.Title = prior.Title
			}
			if patch.Theme != nil {
				e.list.Theme = prior.Theme
			}
			e.broadcastLocked()
		}
		e.mu.Unlock()
		return persistError(op, err)
	}
	return nil
}

// reversePatch builds the patch that undoes applying patch to an item
// that previously held prior's values.
func reversePatch(prior item.Item, patch item.Patch) item.Patch {
	var rev item.Patch
	if patch.Content != nil {
		content := prior.Content
		rev.Content = &content
	}
	if patch.Kind != nil {
		kind := prior.Kind
		rev.Kind = &kind
	}
	if patch.Completed != nil {
		completed := prior.Completed
		rev.Completed = &completed
	}
	if patch.Parent != nil {
		rev.Parent = &item.ParentRef{ID: prior.ParentID}
	}
	if patch.Position != nil {
		pos := prior.Position
		rev.Position = &pos
	}
	return rev
}

// structural runs one plan-based mutation: guards and planning happen
// inside the critical section against the live snapshot, persistence
// happens outside it.
func (e *Engine) structural(ctx context.Context, op string, plan func(items []item.Item) (position.Plan, error)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return closedError(op)
	}
	p, err := plan(e.snapshotLocked())
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if p.Empty() {
		e.mu.Unlock()
		return nil
	}
	e.applyPlanLocked(p)
	e.broadcastLocked()
	e.mu.Unlock()
	return e.persistPlan(ctx, op, p)
}

// applyPlanLocked applies a plan to local state and registers insert
// correlations.
func (e *Engine) applyPlanLocked(p position.Plan) {
	for _, placement := range p.Placements {
		if idx := e.indexLocked(placement.ID); idx >= 0 {
			placement.Patch().Apply(&e.items[idx])
		}
	}
	for _, id := range p.Deletes {
		if idx := e.indexLocked(id); idx >= 0 {
			e.items = append(e.items[:idx], e.items[idx+1:]...)
		}
		delete(e.completing, id)
	}
	for _, ins := range p.Inserts {
		e.items = append(e.items, ins.Clone())
		if ins.Token != "" {
			e.pending[ins.Token] = ins.ID
		}
	}
}

// persistPlan issues every row write the plan implies, in parallel.
// Failed inserts remove their optimistic row; failed placements and
// deletes leave local state as applied. Multi-row plans are not
// compensated, the divergence heals on the next load or feed event.
func (e *Engine) persistPlan(ctx context.Context, op string, p position.Plan) error {
	total := len(p.Inserts) + len(p.Placements) + len(p.Deletes)
	if total == 0 {
		return nil
	}
	errs := make([]error, total)
	var wg sync.WaitGroup
	slot := 0
	for _, ins := range p.Inserts {
		wg.Add(1)
		go func(slot int, temp item.Item) {
			defer wg.Done()
			persisted, err := e.store.InsertItem(ctx, temp)
			if err != nil {
				e.dropInsert(temp)
				errs[slot] = fmt.Errorf("insert %q: %w", temp.Content, err)
				return
			}
			e.confirmInsert(temp.Token, persisted)
		}(slot, ins)
		slot++
	}
	for _, placement := range p.Placements {
		wg.Add(1)
		go func(slot int, placement position.Placement) {
			defer wg.Done()
			if err := e.store.UpdateItem(ctx, placement.ID, placement.Patch()); err != nil {
				errs[slot] = fmt.Errorf("update %s: %w", placement.ID, err)
			}
		}(slot, placement)
		slot++
	}
	for _, id := range p.Deletes {
		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			if err := e.store.DeleteItem(ctx, id); err != nil {
				errs[slot] = fmt.Errorf("delete %s: %w", id, err)
			}
		}(slot, id)
		slot++
	}
	wg.Wait()
	return firstError(op, errs)
}

// confirmInsert resolves a temp id with the persisted row, unless the
// feed echo got there first.
func (e *Engine) confirmInsert(token string, persisted item.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	tempID, ok := e.pending[token]
	if !ok {
		return
	}
	delete(e.pending, token)
	idx := e.indexLocked(tempID)
	if idx < 0 {
		// The optimistic row was removed while the insert was in
		// flight; don't resurrect it.
		return
	}
	e.items[idx] = persisted.Clone()
	if e.completing[tempID] {
		delete(e.completing, tempID)
		e.completing[persisted.ID] = true
	}
	e.broadcastLocked()
}

// dropInsert rolls back one optimistic insert after its call failed.
func (e *Engine) dropInsert(temp item.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	delete(e.pending, temp.Token)
	if idx := e.indexLocked(temp.ID); idx >= 0 {
		e.items = append(e.items[:idx], e.items[idx+1:]...)
	}
	delete(e.completing, temp.ID)
	e.broadcastLocked()
}

// armDebounceLocked (re)starts the single shared completion timer.
func (e *Engine) armDebounceLocked() {
	if e.timer == nil {
		e.timer = time.AfterFunc(e.debounce, e.flushCompleting)
		return
	}
	e.timer.Reset(e.debounce)
}

// flushCompleting releases the whole completing set at once so every
// recently completed item sinks in the same redraw.
func (e *Engine) flushCompleting() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || len(e.completing) == 0 {
		return
	}
	e.completing = make(map[string]bool)
	e.broadcastLocked()
}

func (e *Engine) snapshotLocked() []item.Item {
	out := make([]item.Item, len(e.items))
	for i := range e.items {
		out[i] = e.items[i].Clone()
	}
	return out
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.items {
		if e.items[i].ID == id {
			return i
		}
	}
	return -1
}

// broadcastLocked pings every watcher without blocking.
func (e *Engine) broadcastLocked() {
	for ch := range e.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func firstError(op string, errs []error) error {
	for _, err := range errs {
		if err != nil {
			return persistError(op, err)
		}
	}
	return nil
}
