// Package b64 implements the URL-safe, unpadded Base64 codec used
// throughout Web Push: subscription keys, VAPID keys, and JWT segments
// are all exchanged in this form.
package b64

import (
	"encoding/base64"

	"github.com/arata-notify/webpush/perr"
)

// Encode returns the URL-safe, unpadded Base64 encoding of b.
func Encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode reverses Encode. Any character outside the URL-safe alphabet,
// or an otherwise malformed encoding, fails with perr.InvalidEncoding.
func Decode(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, perr.Wrap(perr.InvalidEncoding, "invalid base64url", err)
	}
	return b, nil
}
