package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/solacehq/solace/internal/chatstream"
	"github.com/solacehq/solace/internal/config"
	"github.com/solacehq/solace/internal/gateway"
	"github.com/solacehq/solace/internal/httpapi"
	"github.com/solacehq/solace/internal/memory"
	"github.com/solacehq/solace/internal/observability"
	"github.com/solacehq/solace/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("conversation store: in-memory (no DATABASE_URL)")
	} else {
		log.Printf("conversation store: postgres")
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.CallEvents.WithLabelValues("session_expired").Inc()
	})

	gw := gateway.New(gateway.Config{
		UpstreamURL: cfg.UpstreamChatURL,
		APIKey:      cfg.UpstreamAPIKey,
		Model:       cfg.UpstreamModel,
		Store:       store,
		Sessions:    sessions,
		Metrics:     metrics,
	})

	chatURL, err := resolveChatURL(cfg.BindAddr, cfg.ChatStreamURL)
	if err != nil {
		log.Fatalf("chat stream URL: %v", err)
	}
	// Voice calls go through the local gateway so every turn gets the same
	// emotion extraction and crisis handling as direct API chats.
	chatClient := chatstream.NewClient(chatURL, "")

	api := httpapi.New(cfg, sessions, store, chatClient, gw, metrics, log.Default())
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

// resolveChatURL turns a path-only chat stream URL into an absolute loopback
// URL on the bind port. Absolute URLs pass through untouched so the voice
// loop can also point at an external gateway.
func resolveChatURL(bindAddr, chatURL string) (string, error) {
	chatURL = strings.TrimSpace(chatURL)
	if chatURL == "" {
		return "", fmt.Errorf("empty chat stream URL")
	}
	if strings.HasPrefix(chatURL, "http://") || strings.HasPrefix(chatURL, "https://") {
		return chatURL, nil
	}
	if !strings.HasPrefix(chatURL, "/") {
		return "", fmt.Errorf("chat stream URL must be absolute or start with /: %q", chatURL)
	}

	host, port, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return "", fmt.Errorf("parse bind addr %q: %w", bindAddr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + chatURL, nil
}
