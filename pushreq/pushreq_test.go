package pushreq

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/subscription"
)

func TestBuildHeaders(t *testing.T) {
	kp, err := es256.Generate()
	if err != nil {
		t.Fatal(err)
	}
	sub := &subscription.Subscription{
		Endpoint: "https://push.example.com/abc123",
		Name:     "dev",
		Auth:     [16]byte{},
		P256DH:   kp.Public(),
	}
	envelope := []byte("envelope-bytes")

	req, err := Build(context.Background(), sub, envelope, "jwt.header.sig", "pubkeyb64", 60*time.Second)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if req.Method != "POST" || req.URL.String() != sub.Endpoint {
		t.Errorf("method/url = %s %s, want POST %s", req.Method, req.URL, sub.Endpoint)
	}
	if got := req.Header.Get("Authorization"); got != "vapid t=jwt.header.sig, k=pubkeyb64" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("Content-Encoding"); got != "aes128gcm" {
		t.Errorf("Content-Encoding = %q, want aes128gcm", got)
	}
	if got := req.Header.Get("TTL"); got != "60" {
		t.Errorf("TTL = %q, want 60", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Content-Type = %q", got)
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != string(envelope) {
		t.Errorf("body = %q, want %q", body, envelope)
	}
}
