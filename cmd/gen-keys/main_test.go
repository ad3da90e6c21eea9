package main

import (
	"testing"

	"github.com/arata-notify/webpush/b64"
)

func TestRun(t *testing.T) {
	pubKey, privKey, dbKey, err := run()
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	pub, err := b64.Decode(pubKey)
	if err != nil {
		t.Fatalf("VAPID_PUBLIC_KEY not valid base64url: %v", err)
	}
	if len(pub) != 65 {
		t.Errorf("len(VAPID_PUBLIC_KEY) = %d, want 65", len(pub))
	}

	priv, err := b64.Decode(privKey)
	if err != nil {
		t.Fatalf("VAPID_PRIVATE_KEY not valid base64url: %v", err)
	}
	if len(priv) != 32 {
		t.Errorf("len(VAPID_PRIVATE_KEY) = %d, want 32", len(priv))
	}

	db, err := b64.Decode(dbKey)
	if err != nil {
		t.Fatalf("DATABASE_ENCRYPTION_KEY not valid base64url: %v", err)
	}
	if len(db) != 16 {
		t.Errorf("len(DATABASE_ENCRYPTION_KEY) = %d, want 16", len(db))
	}
}

func TestRunGeneratesDistinctKeys(t *testing.T) {
	_, priv1, _, err := run()
	if err != nil {
		t.Fatal(err)
	}
	_, priv2, _, err := run()
	if err != nil {
		t.Fatal(err)
	}
	if priv1 == priv2 {
		t.Error("run() produced identical private keys across calls")
	}
}
