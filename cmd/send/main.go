// Command send delivers one push notification to every stored subscription.
// The notification title is the sole command-line argument; its body is
// read from stdin.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/arata-notify/webpush/config"
	"github.com/arata-notify/webpush/deliver"
	"github.com/arata-notify/webpush/storage"
)

const (
	defaultTTL = 3600 * time.Second
	icon       = "push-small.png"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s title\n", os.Args[0])
		os.Exit(1)
	}
	title := os.Args[1]

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		clog.Fatalf("reading message body from stdin: %v", err)
	}

	ctx := context.Background()
	cfg, identity, dbKey, err := config.Load(ctx)
	if err != nil {
		clog.Fatalf("loading configuration: %v", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DatabasePath, dbKey)
	if err != nil {
		clog.Fatalf("opening subscription store: %v", err)
	}
	defer store.Close()

	payload, err := json.Marshal(map[string]any{
		"title": title,
		"options": map[string]string{
			"body": string(body),
			"icon": icon,
		},
	})
	if err != nil {
		clog.Fatalf("marshaling push payload: %v", err)
	}

	outcomes := deliver.SendAll(ctx, store, http.DefaultClient, identity, cfg.VAPIDSubject, payload, defaultTTL)

	var failed int
	for _, o := range outcomes {
		if o.Err != nil || o.StatusCode < 200 || o.StatusCode >= 300 {
			failed++
			clog.Infof("send: %s: status=%d err=%v", o.Endpoint, o.StatusCode, o.Err)
		}
	}
	clog.Infof("send: delivered to %d subscriptions, %d failed", len(outcomes), failed)
}
