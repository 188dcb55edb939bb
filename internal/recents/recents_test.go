package recents

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "recents.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTouchOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Touch(ctx, "lst_a", "Groceries", "#b5e3d8"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.Touch(ctx, "lst_b", "Hardware run", ""); err != nil {
		t.Fatalf("touch: %v", err)
	}

	entries, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ListID != "lst_b" || entries[1].ListID != "lst_a" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if entries[1].Theme != "#b5e3d8" {
		t.Fatalf("theme not kept, got %+v", entries[1])
	}
}

func TestTouchUpdatesExistingEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Touch(ctx, "lst_a", "Groceries", ""); err != nil {
		t.Fatalf("touch: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.Touch(ctx, "lst_b", "Hardware run", ""); err != nil {
		t.Fatalf("touch: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.Touch(ctx, "lst_a", "Weekend shop", "#fde2e4"); err != nil {
		t.Fatalf("re-touch: %v", err)
	}

	entries, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("re-touch must not duplicate, got %d entries", len(entries))
	}
	if entries[0].ListID != "lst_a" || entries[0].Title != "Weekend shop" || entries[0].Theme != "#fde2e4" {
		t.Fatalf("re-touch should refresh order, title and theme, got %+v", entries[0])
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("lst_%03d", i)
		if err := s.Touch(ctx, id, id, ""); err != nil {
			t.Fatalf("touch %s: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ListID != "lst_004" || entries[1].ListID != "lst_003" {
		t.Fatalf("limit should keep the newest, got %+v", entries)
	}
}

func TestHistoryIsCapped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < keep+7; i++ {
		id := fmt.Sprintf("lst_%03d", i)
		if err := s.Touch(ctx, id, id, ""); err != nil {
			t.Fatalf("touch %s: %v", id, err)
		}
	}

	entries, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != keep {
		t.Fatalf("expected history capped at %d, got %d", keep, len(entries))
	}
	for _, entry := range entries {
		if entry.ListID == "lst_000" {
			t.Fatal("oldest entry should have been pruned")
		}
	}
}

func TestForget(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Touch(ctx, "lst_a", "Groceries", ""); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := s.Forget(ctx, "lst_a"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if err := s.Forget(ctx, "lst_a"); err != nil {
		t.Fatalf("repeat forget: %v", err)
	}

	entries, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %+v", entries)
	}
}
