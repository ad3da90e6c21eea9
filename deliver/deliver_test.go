package deliver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/storage"
	"github.com/arata-notify/webpush/subscription"
)

func testSub(t *testing.T, endpoint string) *subscription.Subscription {
	t.Helper()
	kp, err := es256.Generate()
	if err != nil {
		t.Fatal(err)
	}
	return &subscription.Subscription{
		Endpoint: endpoint,
		Name:     "device",
		Auth:     [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		P256DH:   kp.Public(),
	}
}

func TestSendAllSingleSubscription(t *testing.T) {
	var gotHeader http.Header
	var gotBodyLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		gotBodyLen = n
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store, err := storage.NewMemoryStore(make([]byte, 16))
	if err != nil {
		t.Fatal(err)
	}
	sub := testSub(t, srv.URL+"/push/abc")
	if _, err := store.Insert(context.Background(), sub); err != nil {
		t.Fatal(err)
	}

	identity, err := es256.Generate()
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte("hello")
	outcomes := SendAll(context.Background(), store, srv.Client(), identity, "mailto:a@b.com", plaintext, time.Minute)

	if len(outcomes) != 1 {
		t.Fatalf("len(outcomes) = %d, want 1", len(outcomes))
	}
	if outcomes[0].StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", outcomes[0].StatusCode)
	}
	if got := gotHeader.Get("Content-Encoding"); got != "aes128gcm" {
		t.Errorf("Content-Encoding = %q", got)
	}
	if gotBodyLen != 86+len(plaintext)+1+16 {
		t.Errorf("body length = %d, want %d", gotBodyLen, 86+len(plaintext)+1+16)
	}
}

func TestSendAllTwoSubscriptionsOneGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store, err := storage.NewMemoryStore(make([]byte, 16))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	subA := testSub(t, srv.URL+"/ok")
	subB := testSub(t, srv.URL+"/gone")
	if _, err := store.Insert(ctx, subA); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(ctx, subB); err != nil {
		t.Fatal(err)
	}

	identity, err := es256.Generate()
	if err != nil {
		t.Fatal(err)
	}

	outcomes := SendAll(ctx, store, srv.Client(), identity, "mailto:a@b.com", []byte("hi"), time.Minute)
	if len(outcomes) != 2 {
		t.Fatalf("len(outcomes) = %d, want 2", len(outcomes))
	}

	byEndpoint := map[string]Outcome{}
	for _, o := range outcomes {
		byEndpoint[o.Endpoint] = o
	}
	if byEndpoint[subA.Endpoint].StatusCode != http.StatusCreated {
		t.Errorf("ok subscription status = %d", byEndpoint[subA.Endpoint].StatusCode)
	}
	if byEndpoint[subB.Endpoint].StatusCode != http.StatusGone {
		t.Errorf("gone subscription status = %d, want 410", byEndpoint[subB.Endpoint].StatusCode)
	}
}
