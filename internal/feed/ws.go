package feed

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
)

// DialRelay subscribes to one list's events through a relay server's
// websocket endpoint. The stream carries the same Event envelope as the
// Redis channels; the relay does the fan-out.
func DialRelay(ctx context.Context, relayURL, listID string) (*Subscription, error) {
	endpoint, err := relayEndpoint(relayURL, listID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	sub := newSubscription(conn.Close)
	go func() {
		defer close(sub.events)
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			if !sub.deliver(ev) {
				return
			}
		}
	}()
	return sub, nil
}

// relayEndpoint turns a relay base URL into the ws endpoint for a list,
// e.g. http://host:9090 -> ws://host:9090/ws?list=<id>.
func relayEndpoint(relayURL, listID string) (string, error) {
	parsed, err := url.Parse(relayURL)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("parse relay url: unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = "/ws"
	query := parsed.Query()
	query.Set("list", listID)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
