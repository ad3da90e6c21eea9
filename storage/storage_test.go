package storage

import (
	"context"
	"testing"

	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/perr"
	"github.com/arata-notify/webpush/subscription"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	return make([]byte, 16)
}

func testSubscription(t *testing.T, endpoint string) *subscription.Subscription {
	t.Helper()
	kp, err := es256.Generate()
	if err != nil {
		t.Fatal(err)
	}
	return &subscription.Subscription{
		Endpoint: endpoint,
		Name:     "test-device",
		Auth:     [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		P256DH:   kp.Public(),
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := NewMemoryStore(testKey(t))
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(":memory:", testKey(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()
	testStore(t, s)
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	sub := testSubscription(t, "https://push.example.com/abc123")
	id, err := s.Insert(ctx, sub)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id == 0 {
		t.Error("Insert() returned zero id")
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List() count = %d, want 1", len(got))
	}
	if got[0].Endpoint != sub.Endpoint || got[0].Name != sub.Name || got[0].Auth != sub.Auth {
		t.Errorf("List()[0] = %+v, want %+v", got[0], sub)
	}

	if _, err := s.Insert(ctx, sub); !perr.Is(err, perr.InvalidSubscription) {
		t.Fatalf("Insert() duplicate endpoint error = %v, want InvalidSubscription", err)
	}

	delID, err := s.Delete(ctx, sub.Endpoint)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if delID != id {
		t.Errorf("Delete() id = %d, want %d", delID, id)
	}

	got, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List() after delete error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() after delete count = %d, want 0", len(got))
	}

	if _, err := s.Delete(ctx, sub.Endpoint); !perr.Is(err, perr.NotFound) {
		t.Fatalf("Delete() missing endpoint error = %v, want NotFound", err)
	}
}

func TestMemoryStoreCorruptTag(t *testing.T) {
	s, err := NewMemoryStore(testKey(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	sub := testSubscription(t, "https://push.example.com/corrupt")
	if _, err := s.Insert(ctx, sub); err != nil {
		t.Fatal(err)
	}

	s.corruptTag(sub.Endpoint)

	if _, err := s.List(ctx); !perr.Is(err, perr.CorruptStorage) {
		t.Fatalf("List() after tag corruption error = %v, want CorruptStorage", err)
	}
}

func TestNewMemoryStoreRejectsBadKey(t *testing.T) {
	if _, err := NewMemoryStore(make([]byte, 15)); !perr.Is(err, perr.Config) {
		t.Fatalf("error = %v, want Config", err)
	}
}
