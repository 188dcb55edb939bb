package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFeed publishes and subscribes to list channels over Redis
// pub/sub. It is the canonical feed transport; clients without direct
// Redis access reach the same events through a relay (see DialRelay).
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed connects to Redis and verifies the connection.
func NewRedisFeed(redisURL string) (*RedisFeed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisFeed{client: client}, nil
}

// NewRedisFeedWithClient wraps an existing Redis client.
func NewRedisFeedWithClient(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

// Publish sends one event to the owning list's channel.
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := f.client.Publish(ctx, Channel(ev.ListID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe opens a subscription to one list's channel.
func (f *RedisFeed) Subscribe(ctx context.Context, listID string) (*Subscription, error) {
	pubsub := f.client.Subscribe(ctx, Channel(listID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe feed: %w", err)
	}

	sub := newSubscription(pubsub.Close)
	go func() {
		defer close(sub.events)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("feed: dropping undecodable event on %s: %v", msg.Channel, err)
				continue
			}
			if !sub.deliver(ev) {
				return
			}
		}
	}()
	return sub, nil
}

// Ping checks whether Redis is reachable.
func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (f *RedisFeed) Close() error {
	return f.client.Close()
}
