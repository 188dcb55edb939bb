package store

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"ticklist/db"
	"ticklist/internal/feed"
	"ticklist/internal/item"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []feed.Event
}

func (c *capturePublisher) Publish(_ context.Context, ev feed.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) drain() []feed.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

func openTestStore(t *testing.T) (*PostgresStore, *capturePublisher, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TICKLIST_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TICKLIST_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	conn, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := resetPublicSchema(ctx, conn); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, conn, db.Migrations()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	pub := &capturePublisher{}
	return NewPostgresStore(conn, pub), pub, ctx
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	s, pub, ctx := openTestStore(t)

	list, err := s.CreateList(ctx, "Groceries", "#b5e3d8")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if !strings.HasPrefix(list.ID, "lst") || list.CreatedAt.IsZero() {
		t.Fatalf("unexpected list row: %+v", list)
	}

	got, err := s.GetList(ctx, list.ID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if got.Title != "Groceries" || got.Theme != "#b5e3d8" {
		t.Fatalf("unexpected list: %+v", got)
	}

	events := pub.drain()
	if len(events) != 1 || events[0].Op != feed.OpInsert || events[0].Table != feed.TableLists {
		t.Fatalf("expected one list insert event, got %+v", events)
	}

	draft := item.Item{
		ID:      "tmp_discarded",
		ListID:  list.ID,
		Kind:    item.KindTask,
		Content: "Milk",
		Token:   "tok-1",
	}
	milk, err := s.InsertItem(ctx, draft)
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
	if !strings.HasPrefix(milk.ID, "itm") {
		t.Fatalf("store must mint its own id, got %q", milk.ID)
	}
	if milk.Token != "tok-1" {
		t.Fatalf("token must persist with the row, got %q", milk.Token)
	}

	events = pub.drain()
	if len(events) != 1 || events[0].Op != feed.OpInsert || events[0].Item == nil {
		t.Fatalf("expected one item insert event, got %+v", events)
	}
	if events[0].Item.Token != "tok-1" {
		t.Fatalf("insert event must echo the token, got %+v", events[0].Item)
	}

	content := "Oat milk"
	completed := true
	if err := s.UpdateItem(ctx, milk.ID, item.Patch{Content: &content, Completed: &completed}); err != nil {
		t.Fatalf("update item: %v", err)
	}
	events = pub.drain()
	if len(events) != 1 || events[0].Op != feed.OpUpdate {
		t.Fatalf("expected one update event, got %+v", events)
	}
	if want := []string{"content", "completed"}; len(events[0].Changed) != 2 ||
		events[0].Changed[0] != want[0] || events[0].Changed[1] != want[1] {
		t.Fatalf("expected changed columns %v, got %v", want, events[0].Changed)
	}

	// Reparent under a header, then back to the root via a nil ref.
	header, err := s.InsertItem(ctx, item.Item{ListID: list.ID, Kind: item.KindHeader, Content: "Dairy"})
	if err != nil {
		t.Fatalf("insert header: %v", err)
	}
	pub.drain()
	if err := s.UpdateItem(ctx, milk.ID, item.Patch{Parent: &item.ParentRef{ID: &header.ID}}); err != nil {
		t.Fatalf("reparent: %v", err)
	}
	items, err := s.ListItems(ctx, list.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, it := range items {
		if it.ID == milk.ID && (it.ParentID == nil || *it.ParentID != header.ID) {
			t.Fatalf("reparent not stored: %+v", it)
		}
	}
	if err := s.UpdateItem(ctx, milk.ID, item.Patch{Parent: &item.ParentRef{}}); err != nil {
		t.Fatalf("unparent: %v", err)
	}
	items, err = s.ListItems(ctx, list.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	for _, it := range items {
		if it.ID == milk.ID && it.ParentID != nil {
			t.Fatalf("nil parent ref should store NULL, got %+v", it)
		}
	}
	pub.drain()

	// Racing deletes: the second call is a quiet no-op.
	if err := s.DeleteItem(ctx, milk.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if err := s.DeleteItem(ctx, milk.ID); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	events = pub.drain()
	if len(events) != 1 || events[0].Op != feed.OpDelete || events[0].OldID != milk.ID {
		t.Fatalf("expected exactly one delete event, got %+v", events)
	}

	if err := s.DeleteItems(ctx, list.ID); err != nil {
		t.Fatalf("delete items: %v", err)
	}
	events = pub.drain()
	if len(events) != 1 || events[0].OldID != header.ID {
		t.Fatalf("expected per-row delete events, got %+v", events)
	}

	title := "Weekend shop"
	if err := s.UpdateList(ctx, list.ID, item.ListPatch{Title: &title}); err != nil {
		t.Fatalf("update list: %v", err)
	}
	got, err = s.GetList(ctx, list.ID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if got.Title != "Weekend shop" || got.Theme != "#b5e3d8" {
		t.Fatalf("partial list update went wrong: %+v", got)
	}

	if err := s.DeleteList(ctx, list.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	if _, err := s.GetList(ctx, list.ID); !IsNotFound(err) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}

func TestPostgresStoreKeepsDanglingChildren(t *testing.T) {
	s, _, ctx := openTestStore(t)

	list, err := s.CreateList(ctx, "Groceries", "")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	header, err := s.InsertItem(ctx, item.Item{ListID: list.ID, Kind: item.KindHeader, Content: "Dairy"})
	if err != nil {
		t.Fatalf("insert header: %v", err)
	}
	child, err := s.InsertItem(ctx, item.Item{ListID: list.ID, Kind: item.KindTask, Content: "Milk", ParentID: &header.ID})
	if err != nil {
		t.Fatalf("insert child: %v", err)
	}

	if err := s.DeleteItem(ctx, header.ID); err != nil {
		t.Fatalf("delete header: %v", err)
	}

	items, err := s.ListItems(ctx, list.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].ID != child.ID {
		t.Fatalf("child must survive its parent, got %+v", items)
	}
	if items[0].ParentID == nil || *items[0].ParentID != header.ID {
		t.Fatalf("dangling parent reference should be stored as-is, got %+v", items[0])
	}
}
