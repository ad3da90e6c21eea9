package b64

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 32, 65, 144} {
		b := make([]byte, n)
		if _, err := rand.Read(b); err != nil {
			t.Fatal(err)
		}
		got, err := Decode(Encode(b))
		if err != nil {
			t.Fatalf("Decode(Encode(%d bytes)) error = %v", n, err)
		}
		if !bytes.Equal(got, b) {
			t.Errorf("round trip mismatch for %d bytes", n)
		}
	}
}

func TestEncodeHasNoPadding(t *testing.T) {
	s := Encode([]byte("f"))
	if bytes.ContainsRune([]byte(s), '=') {
		t.Errorf("Encode() produced padding: %q", s)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode("not valid b64!!"); err == nil {
		t.Fatal("expected error for invalid input")
	}
}
