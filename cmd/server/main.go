// Command server runs the long-running HTTP receiver: it serves the
// subscribe UI, the subscription API, and (when PUSH_SOCKET_ADDR is set)
// a local trigger socket that turns payloads into push deliveries to
// every stored subscription.
package main

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/arata-notify/webpush/config"
	"github.com/arata-notify/webpush/deliver"
	"github.com/arata-notify/webpush/httpapi"
	"github.com/arata-notify/webpush/storage"
	"github.com/arata-notify/webpush/trigger"
)

//go:embed static/*
var staticFiles embed.FS

const defaultTTL = 3600 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, identity, dbKey, err := config.Load(ctx)
	if err != nil {
		clog.Fatalf("loading configuration: %v", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DatabasePath, dbKey)
	if err != nil {
		clog.Fatalf("opening subscription store: %v", err)
	}
	defer store.Close()

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		clog.Fatalf("preparing static assets: %v", err)
	}

	server := &httpapi.Server{Store: store, Identity: identity}

	var listener *trigger.Listener
	if cfg.PushSocketAddr != "" {
		listener, err = trigger.Listen(cfg.PushSocketAddr)
		if err != nil {
			clog.Fatalf("binding trigger socket: %v", err)
		}
		defer listener.Close()

		server.Trigger = func(message string) {
			outcomes := deliver.SendAll(ctx, store, http.DefaultClient, identity, cfg.VAPIDSubject, []byte(message), defaultTTL)
			clog.Infof("server: trigger delivered to %d subscriptions", len(outcomes))
		}

		go func() {
			if err := listener.Serve(ctx, func(_ context.Context, payload []byte) error {
				outcomes := deliver.SendAll(ctx, store, http.DefaultClient, identity, cfg.VAPIDSubject, payload, defaultTTL)
				clog.Infof("server: socket trigger delivered to %d subscriptions", len(outcomes))
				return nil
			}); err != nil {
				clog.Infof("trigger listener stopped: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.Handle("/vapid/pubkey", server.Handler())
	mux.Handle("/subscribe", server.Handler())
	mux.Handle("/unsubscribe", server.Handler())
	mux.Handle("/test-push", server.Handler())

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			clog.Infof("server: shutdown error: %v", err)
		}
	}()

	clog.Infof("server: listening on :%s", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		clog.Fatalf("server failed: %v", err)
	}
}
