package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticklist/internal/config"
	"ticklist/internal/feed"
	"ticklist/internal/relay"
)

func main() {
	cfg := config.Load()

	source, err := feed.NewRedisFeed(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer source.Close()

	relayServer := relay.NewServer(source, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.RelayAddr,
		Handler:           relayServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No read/write timeouts: websocket connections stay open for
		// as long as a list is on screen.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("ticklist relay listening on %s", cfg.RelayAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
