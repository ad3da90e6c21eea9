package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/perr"
	"github.com/arata-notify/webpush/primitive"
	"github.com/arata-notify/webpush/subscription"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It still seals auth under key so storage_test.go can exercise
// corruption paths without a real database.
type MemoryStore struct {
	mu      sync.RWMutex
	key     []byte
	nextID  int64
	records map[int64]*memoryRow
}

type memoryRow struct {
	endpoint string
	name     string
	expTime  *uint32
	authEncr []byte
	tag      []byte
	salt     []byte
	p256dh   []byte
}

// NewMemoryStore returns a MemoryStore sealing auth secrets under key,
// which must be exactly 16 bytes.
func NewMemoryStore(key []byte) (*MemoryStore, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return &MemoryStore{key: key, records: make(map[int64]*memoryRow)}, nil
}

func (m *MemoryStore) Insert(_ context.Context, sub *subscription.Subscription) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.endpoint == sub.Endpoint {
			return 0, perr.New(perr.InvalidSubscription, "endpoint already subscribed")
		}
	}

	salt, err := primitive.GenSalt(saltLen)
	if err != nil {
		return 0, perr.Wrap(perr.CryptoFailure, "generating storage salt", err)
	}
	ciphertext, tag, err := primitive.AESGCMSeal(sub.Auth[:], m.key, salt)
	if err != nil {
		return 0, err
	}

	m.nextID++
	id := m.nextID
	m.records[id] = &memoryRow{
		endpoint: sub.Endpoint,
		name:     sub.Name,
		expTime:  sub.ExpirationTime,
		authEncr: ciphertext,
		tag:      tag,
		salt:     salt,
		p256dh:   sub.P256DH.ToBytes(),
	}
	return id, nil
}

func (m *MemoryStore) Delete(_ context.Context, endpoint string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.records {
		if r.endpoint == endpoint {
			delete(m.records, id)
			return id, nil
		}
	}
	return 0, perr.New(perr.NotFound, "no subscription for endpoint")
}

func (m *MemoryStore) List(_ context.Context) ([]*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*subscription.Subscription, 0, len(ids))
	for _, id := range ids {
		r := m.records[id]

		authBytes, err := primitive.AESGCMOpen(r.authEncr, r.tag, m.key, r.salt)
		if err != nil {
			return nil, perr.Wrap(perr.CorruptStorage, "opening sealed auth secret", err)
		}
		if len(authBytes) != 16 {
			return nil, perr.New(perr.CorruptStorage, "decrypted auth secret is not 16 bytes")
		}
		var auth [16]byte
		copy(auth[:], authBytes)

		pub, err := es256.FromBytes(r.p256dh)
		if err != nil {
			return nil, perr.Wrap(perr.CorruptStorage, "parsing stored p256dh", err)
		}

		out = append(out, &subscription.Subscription{
			Endpoint:       r.endpoint,
			Name:           r.name,
			ExpirationTime: r.expTime,
			Auth:           auth,
			P256DH:         pub,
		})
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// corruptTag mutates the sealed tag of the row for endpoint so tests can
// exercise the CorruptStorage path without touching real disk bytes.
func (m *MemoryStore) corruptTag(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.endpoint == endpoint {
			r.tag[0] ^= 0xff
			return
		}
	}
}
