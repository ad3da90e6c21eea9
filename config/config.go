// Package config loads the server's environment variables into a typed
// Config, failing with a perr.Config error (rather than panicking) so
// callers can report a readable startup failure.
package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"

	"github.com/arata-notify/webpush/b64"
	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/perr"
)

// Config holds every environment-sourced value the server binaries need.
type Config struct {
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY,required"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY,required"`
	VAPIDSubject    string `env:"VAPID_SUBJECT,required"`
	DatabaseKey     string `env:"DATABASE_ENCRYPTION_KEY,required"`
	DatabasePath    string `env:"DATABASE_PATH,required"`
	Port            string `env:"PORT,required"`
	PushSocketAddr  string `env:"PUSH_SOCKET_ADDR"`
}

// Load reads and validates the environment. On success it also returns
// the decoded VAPID identity key pair and the decoded database
// encryption key, so callers don't have to re-parse raw.Config fields.
func Load(ctx context.Context) (raw *Config, identity *es256.KeyPair, dbKey []byte, err error) {
	raw = &Config{}
	if err := envconfig.Process(ctx, raw); err != nil {
		return nil, nil, nil, perr.Wrap(perr.Config, "loading environment configuration", err)
	}

	privBytes, err := b64.Decode(raw.VAPIDPrivateKey)
	if err != nil {
		return nil, nil, nil, perr.Wrap(perr.Config, "VAPID_PRIVATE_KEY is not valid base64url", err)
	}
	identity, err = es256.FromPrivateBytes(privBytes)
	if err != nil {
		return nil, nil, nil, perr.Wrap(perr.Config, "VAPID_PRIVATE_KEY is not a valid P-256 scalar", err)
	}

	pubBytes, err := b64.Decode(raw.VAPIDPublicKey)
	if err != nil {
		return nil, nil, nil, perr.Wrap(perr.Config, "VAPID_PUBLIC_KEY is not valid base64url", err)
	}
	declaredPub, err := es256.FromBytes(pubBytes)
	if err != nil {
		return nil, nil, nil, perr.Wrap(perr.Config, "VAPID_PUBLIC_KEY is not a valid P-256 point", err)
	}
	if string(declaredPub.ToBytes()) != string(identity.Public().ToBytes()) {
		return nil, nil, nil, perr.New(perr.Config, "VAPID_PUBLIC_KEY does not match VAPID_PRIVATE_KEY")
	}

	dbKey, err = b64.Decode(raw.DatabaseKey)
	if err != nil {
		return nil, nil, nil, perr.Wrap(perr.Config, "DATABASE_ENCRYPTION_KEY is not valid base64url", err)
	}
	if len(dbKey) != 16 {
		return nil, nil, nil, perr.New(perr.Config, fmt.Sprintf("DATABASE_ENCRYPTION_KEY must decode to 16 bytes, got %d", len(dbKey)))
	}

	return raw, identity, dbKey, nil
}
