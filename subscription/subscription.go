// Package subscription models a single browser push registration: the
// wire JSON shape a client posts to /subscribe, and the validation that
// turns it into a trusted Subscription.
package subscription

import (
	"encoding/json"
	"net/url"

	"github.com/arata-notify/webpush/b64"
	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/perr"
)

// Subscription is one browser push registration.
type Subscription struct {
	Endpoint       string
	Name           string
	ExpirationTime *uint32
	Auth           [16]byte
	P256DH         *es256.PublicKey
}

// wireKeys mirrors the "keys" object of the PushSubscriptionJSON the
// browser's Push API produces.
type wireKeys struct {
	Auth   string `json:"auth"`
	P256DH string `json:"p256dh"`
}

// wireSubscription mirrors the full JSON subscription body as sent by a
// browser's PushManager.
type wireSubscription struct {
	Endpoint       string   `json:"endpoint"`
	Name           string   `json:"name"`
	ExpirationTime *uint32  `json:"expirationTime"`
	Keys           wireKeys `json:"keys"`
}

// Parse validates and decodes a wire-format subscription. It rejects an
// auth secret that does not decode to exactly 16 bytes, a p256dh that is
// not a valid uncompressed P-256 point, a non-absolute endpoint, and (per
// SPEC_FULL.md's open-question decision) an empty name.
func Parse(data []byte) (*Subscription, error) {
	var w wireSubscription
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, perr.Wrap(perr.Serialization, "decoding subscription JSON", err)
	}
	return fromWire(w)
}

func fromWire(w wireSubscription) (*Subscription, error) {
	if w.Name == "" {
		return nil, perr.New(perr.InvalidSubscription, "name is required")
	}

	u, err := url.Parse(w.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, perr.New(perr.InvalidSubscription, "endpoint must be an absolute URL")
	}

	authBytes, err := b64.Decode(w.Keys.Auth)
	if err != nil {
		return nil, perr.Wrap(perr.InvalidSubscription, "decoding auth key", err)
	}
	if len(authBytes) != 16 {
		return nil, perr.New(perr.InvalidSubscription, "auth secret must decode to 16 bytes")
	}
	var auth [16]byte
	copy(auth[:], authBytes)

	p256dhBytes, err := b64.Decode(w.Keys.P256DH)
	if err != nil {
		return nil, perr.Wrap(perr.InvalidSubscription, "decoding p256dh key", err)
	}
	pub, err := es256.FromBytes(p256dhBytes)
	if err != nil {
		return nil, perr.Wrap(perr.InvalidSubscription, "p256dh is not a valid P-256 point", err)
	}

	return &Subscription{
		Endpoint:       w.Endpoint,
		Name:           w.Name,
		ExpirationTime: w.ExpirationTime,
		Auth:           auth,
		P256DH:         pub,
	}, nil
}

// MarshalJSON serializes a Subscription back to its wire form, the
// inverse of Parse.
func (s *Subscription) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireSubscription{
		Endpoint:       s.Endpoint,
		Name:           s.Name,
		ExpirationTime: s.ExpirationTime,
		Keys: wireKeys{
			Auth:   b64.Encode(s.Auth[:]),
			P256DH: b64.Encode(s.P256DH.ToBytes()),
		},
	})
}
