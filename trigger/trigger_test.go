package trigger

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestListenReplacesStaleSocket(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "trigger.sock")
	if err := os.WriteFile(addr, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	ln, err := Listen(addr)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()
}

func TestServeDeliversPayload(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "trigger.sock")
	ln, err := Listen(addr)
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got []byte
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go ln.Serve(ctx, func(_ context.Context, payload []byte) error {
		mu.Lock()
		got = payload
		mu.Unlock()
		close(done)
		return nil
	})

	conn, err := net.Dial("unix", addr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write([]byte("hello subscribers")); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
	}

	mu.Lock()
	defer mu.Unlock()
	if string(got) != "hello subscribers" {
		t.Errorf("payload = %q, want %q", got, "hello subscribers")
	}

	cancel()
}
