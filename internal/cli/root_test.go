package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"ticklist/internal/engine"
	"ticklist/internal/item"
)

// stubStore serves a fixed list so tests can load an engine without a
// database.
type stubStore struct {
	list  item.List
	items []item.Item
}

func (s *stubStore) GetList(ctx context.Context, listID string) (item.List, error) {
	return s.list, nil
}

func (s *stubStore) UpdateList(ctx context.Context, listID string, patch item.ListPatch) error {
	return nil
}

func (s *stubStore) ListItems(ctx context.Context, listID string) ([]item.Item, error) {
	return s.items, nil
}

func (s *stubStore) InsertItem(ctx context.Context, row item.Item) (item.Item, error) {
	return row, nil
}

func (s *stubStore) UpdateItem(ctx context.Context, id string, patch item.Patch) error {
	return nil
}

func (s *stubStore) DeleteItem(ctx context.Context, id string) error { return nil }

func (s *stubStore) DeleteItems(ctx context.Context, listID string) error { return nil }

func loadedEngine(t *testing.T, st *stubStore) *engine.Engine {
	t.Helper()
	e := engine.New(st.list.ID, st, time.Second)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestPrintListRendersTree(t *testing.T) {
	t.Parallel()

	dairy := "h1"
	st := &stubStore{
		list: item.List{ID: "lst_demo", Title: "Groceries"},
		items: []item.Item{
			{ID: "h1", ListID: "lst_demo", Kind: item.KindHeader, Content: "Dairy", Position: 0},
			{ID: "a", ListID: "lst_demo", Kind: item.KindTask, Content: "Milk", ParentID: &dairy, Position: 0, Completed: true},
			{ID: "n", ListID: "lst_demo", Kind: item.KindNote, Content: "back gate 4711", Position: 1},
			{ID: "b", ListID: "lst_demo", Kind: item.KindTask, Content: "Bread", Position: 2},
		},
	}
	e := loadedEngine(t, st)

	var buf bytes.Buffer
	printList(&buf, e)

	want := "Groceries  lst_demo\n" +
		"  # Dairy  h1\n" +
		"    [x] Milk  a\n" +
		"  * back gate 4711  n\n" +
		"  [ ] Bread  b\n"
	if got := buf.String(); got != want {
		t.Fatalf("printList:\n got: %q\nwant: %q", got, want)
	}
}

func TestPrintListEmptyUntitled(t *testing.T) {
	t.Parallel()

	e := loadedEngine(t, &stubStore{list: item.List{ID: "lst_demo"}})

	var buf bytes.Buffer
	printList(&buf, e)

	want := "(untitled)  lst_demo\n  (empty)\n"
	if got := buf.String(); got != want {
		t.Fatalf("printList:\n got: %q\nwant: %q", got, want)
	}
}

func TestFindItem(t *testing.T) {
	t.Parallel()

	st := &stubStore{
		list: item.List{ID: "lst_demo", Title: "Groceries"},
		items: []item.Item{
			{ID: "a", ListID: "lst_demo", Kind: item.KindTask, Content: "Milk", Position: 0},
		},
	}
	e := loadedEngine(t, st)

	got, ok := findItem(e, "a")
	if !ok || got.Content != "Milk" {
		t.Fatalf("findItem(a) = %+v, %v", got, ok)
	}
	if _, ok := findItem(e, "zzz"); ok {
		t.Fatalf("findItem(zzz) reported a hit")
	}
}

func TestRootCmdWiresCommands(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	for _, name := range []string{
		"create", "show", "add", "edit", "check", "uncheck", "rm",
		"clear", "nuke", "drop", "move", "sort", "ungroup",
		"title", "theme", "watch", "recent", "assist",
	} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Fatalf("command %q not registered: %v", name, err)
		}
	}
}
