// Package feed carries row-level change events between clients. Every
// write the store performs is published on a per-list channel; engines
// subscribe to the channel of their open list and reconcile each event
// into local state.
package feed

import (
	"context"
	"sync"

	"ticklist/internal/item"
)

// Op names the row operation an event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Tables an event can refer to.
const (
	TableItems = "items"
	TableLists = "lists"
)

// Event is one row change. Item or List hold the row's new state for
// inserts and updates; OldID names the removed row for deletes; Changed
// lists the columns an update touched so consumers merge field-by-field
// instead of replacing whole records.
type Event struct {
	Op      Op         `json:"op"`
	Table   string     `json:"table"`
	ListID  string     `json:"listId"`
	Item    *item.Item `json:"item,omitempty"`
	List    *item.List `json:"list,omitempty"`
	OldID   string     `json:"oldId,omitempty"`
	Changed []string   `json:"changed,omitempty"`
}

// Channel returns the pub/sub channel carrying one list's events.
func Channel(listID string) string {
	return "feed:" + listID
}

// Publisher pushes events to everyone subscribed to a list's channel.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscription is one consumer's handle on a list's event stream. The
// Events channel closes when the underlying source ends or Close is
// called.
type Subscription struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
	stop   func() error
}

func newSubscription(stop func() error) *Subscription {
	return &Subscription{
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		stop:   stop,
	}
}

// Events yields decoded events in arrival order.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.stop != nil {
			err = s.stop()
		}
	})
	return err
}

// deliver hands an event to the consumer, giving up once the
// subscription is closed so reader goroutines never leak.
func (s *Subscription) deliver(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
