// Package deliver lists stored subscriptions, seals a payload for each,
// and issues the push. It never retries and never deletes a subscription
// on its own account; that policy choice is left to the caller.
package deliver

import (
	"context"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/primitive"
	"github.com/arata-notify/webpush/pushreq"
	"github.com/arata-notify/webpush/storage"
	"github.com/arata-notify/webpush/subscription"
	"github.com/arata-notify/webpush/vapid"
)

// Outcome records the result of delivering to one subscription.
type Outcome struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

// SendAll seals plaintext for every subscription store.List returns and
// POSTs it to the subscription's endpoint. Subscriptions are processed
// sequentially and outcomes are returned sorted by endpoint, so the
// batch is deterministic regardless of the store's own iteration order.
// A per-subscription failure never aborts its siblings.
func SendAll(ctx context.Context, store storage.Lister, httpClient *http.Client, identity *es256.KeyPair, subject string, plaintext []byte, ttl time.Duration) []Outcome {
	batchID := uuid.New().String()

	subs, err := store.List(ctx)
	if err != nil {
		clog.Infof("deliver: batch %s: listing subscriptions: %v", batchID, err)
		return nil
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	outcomes := make([]Outcome, 0, len(subs))
	for _, sub := range subs {
		outcomes = append(outcomes, sendOne(ctx, httpClient, identity, subject, plaintext, ttl, sub))
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Endpoint < outcomes[j].Endpoint })

	clog.Infof("deliver: batch %s: %d subscriptions processed", batchID, len(outcomes))
	return outcomes
}

func sendOne(ctx context.Context, httpClient *http.Client, identity *es256.KeyPair, subject string, plaintext []byte, ttl time.Duration, sub *subscription.Subscription) Outcome {
	outcome := Outcome{Endpoint: sub.Endpoint}

	ephemeral, err := es256.Generate()
	if err != nil {
		outcome.Err = err
		return outcome
	}
	salt, err := primitive.GenSalt(16)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	envelope, err := es256.Seal(ephemeral, sub.P256DH, sub.Auth[:], salt, plaintext)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	jwt, k, err := vapid.MakeJWT(sub.Endpoint, subject, ttl, identity)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	req, err := pushreq.Build(ctx, sub, envelope.Bytes, jwt, k, ttl)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		outcome.Err = err
		clog.Infof("deliver: %s: %v", sub.Endpoint, err)
		return outcome
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	outcome.StatusCode = resp.StatusCode
	outcome.Body = string(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		clog.Infof("deliver: %s: push service returned %d", sub.Endpoint, resp.StatusCode)
	}
	return outcome
}
