package feed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ticklist/internal/item"
)

func newTestFeed(t *testing.T) (*RedisFeed, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := NewRedisFeedWithClient(client)
	t.Cleanup(func() { f.Close() })
	return f, client
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event arrived")
	}
	return Event{}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	f, _ := newTestFeed(t)
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "lst_1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	parent := "itm_parent"
	sent := Event{
		Op: OpInsert, Table: TableItems, ListID: "lst_1",
		Item: &item.Item{
			ID: "itm_1", ListID: "lst_1", Kind: item.KindTask,
			Content: "Milk", ParentID: &parent, Position: 2, Token: "tok-1",
		},
	}
	if err := f.Publish(ctx, sent); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := receive(t, sub)
	if got.Op != OpInsert || got.Table != TableItems || got.ListID != "lst_1" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	if got.Item == nil || got.Item.ID != "itm_1" || got.Item.Token != "tok-1" {
		t.Fatalf("row payload mangled: %+v", got.Item)
	}
	if got.Item.ParentID == nil || *got.Item.ParentID != "itm_parent" {
		t.Fatalf("parent pointer lost in transit: %+v", got.Item)
	}
}

func TestSubscriptionIsListScoped(t *testing.T) {
	f, _ := newTestFeed(t)
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "lst_1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := f.Publish(ctx, Event{Op: OpDelete, Table: TableItems, ListID: "lst_2", OldID: "itm_9"}); err != nil {
		t.Fatalf("publish stray: %v", err)
	}
	if err := f.Publish(ctx, Event{Op: OpDelete, Table: TableItems, ListID: "lst_1", OldID: "itm_1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := receive(t, sub)
	if got.ListID != "lst_1" || got.OldID != "itm_1" {
		t.Fatalf("expected only the lst_1 event, got %+v", got)
	}
}

func TestUndecodablePayloadsAreSkipped(t *testing.T) {
	f, client := newTestFeed(t)
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "lst_1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := client.Publish(ctx, Channel("lst_1"), "not json").Err(); err != nil {
		t.Fatalf("publish garbage: %v", err)
	}
	if err := f.Publish(ctx, Event{Op: OpDelete, Table: TableItems, ListID: "lst_1", OldID: "itm_1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := receive(t, sub)
	if got.OldID != "itm_1" {
		t.Fatalf("garbage should be skipped, got %+v", got)
	}
}

func TestSubscriptionCloseEndsStream(t *testing.T) {
	f, _ := newTestFeed(t)

	sub, err := f.Subscribe(context.Background(), "lst_1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("repeat close: %v", err)
	}

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected the events channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed")
	}
}

func TestNewRedisFeedRejectsBadURL(t *testing.T) {
	if _, err := NewRedisFeed("not-a-url"); err == nil {
		t.Fatal("expected an error for an unparseable url")
	}
}
