// Package relay bridges the Redis change feed onto websockets, so
// sessions without direct Redis access can still watch a list.
package relay

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"ticklist/internal/feed"
)

// FeedSource is the slice of the feed the relay consumes.
type FeedSource interface {
	Subscribe(ctx context.Context, listID string) (*feed.Subscription, error)
	Ping(ctx context.Context) error
}

type Server struct {
	source     FeedSource
	corsOrigin string
	upgrader   websocket.Upgrader
}

func NewServer(source FeedSource, corsOrigin string) *Server {
	s := &Server{source: source, corsOrigin: corsOrigin}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.allowOrigin}
	return s
}

// allowOrigin admits non-browser clients (no Origin header) and any
// origin when the configured one is "*".
func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.corsOrigin == "" || s.corsOrigin == "*" {
		return true
	}
	return origin == s.corsOrigin
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return s.withMiddleware(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.source.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", "feed unreachable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	listID := strings.TrimSpace(r.URL.Query().Get("list"))
	if listID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "list query parameter is required", nil)
		return
	}

	// Subscribe before upgrading so a dead feed still gets a plain HTTP
	// error back.
	sub, err := s.source.Subscribe(r.Context(), listID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "FEED_UNAVAILABLE", "subscribe failed", nil)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written its own error response.
		sub.Close()
		return
	}
	defer conn.Close()
	defer sub.Close()

	// Clients send nothing; reading only surfaces disconnects, which end
	// the subscription and with it the write loop below.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for ev := range sub.Events() {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writeJSON(writer, http.StatusNoContent, map[string]any{})
			return
		}

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade reach through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}
