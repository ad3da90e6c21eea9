// Package storage persists Web Push subscriptions with their auth secret
// encrypted at rest. Callers never see the encryption: Insert takes a
// plaintext subscription.Subscription and List returns plaintext
// subscription.Subscription values, with AES-128-GCM sealing and opening
// happening transparently against the process-wide database encryption
// key.
package storage

import (
	"context"

	"github.com/arata-notify/webpush/perr"
	"github.com/arata-notify/webpush/subscription"
)

// saltLen is the per-row IV used to seal auth at rest. Web Push's own
// salt is 16 bytes (es256.Seal); this is a distinct, GCM-nonce-sized
// value confined to storage.
const saltLen = 12

// Store is the persistence contract subscription storage must satisfy.
type Store interface {
	// Insert stores sub and returns its row id. Fails with
	// perr.InvalidSubscription if the endpoint is already present.
	Insert(ctx context.Context, sub *subscription.Subscription) (int64, error)

	// Delete removes the row for endpoint and returns its id, or fails
	// with perr.NotFound.
	Delete(ctx context.Context, endpoint string) (int64, error)

	// List decrypts and returns every stored subscription, ordered by
	// id. A single corrupt row fails the whole call with
	// perr.CorruptStorage.
	List(ctx context.Context) ([]*subscription.Subscription, error)

	Close() error
}

// Lister is the read-only view deliver.SendAll needs.
type Lister interface {
	List(ctx context.Context) ([]*subscription.Subscription, error)
}

func validateKey(key []byte) error {
	if len(key) != 16 {
		return perr.New(perr.Config, "DATABASE_ENCRYPTION_KEY must be 16 bytes")
	}
	return nil
}
