// Package primitive wraps the small set of cryptographic primitives the
// Web Push pipeline is built from: HMAC-SHA256, a one-block HKDF-Expand
// shortcut, CSPRNG salts, and AES-128-GCM seal/open.
package primitive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/arata-notify/webpush/perr"
)

// HMACSHA256 returns the 32-byte HMAC-SHA256 of data under key.
func HMACSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// HKDFExpandOneBlock computes HMAC-SHA256(prk, info) and truncates the
// result to n bytes. This is not the general HKDF-Expand: it assumes the
// caller has already appended the trailing 0x01 counter byte to info and
// that a single HMAC block suffices, which holds for every field Web
// Push derives (n is always 12, 16, or 32). Calling it with n > 32 is a
// programming error, not a runtime one, and panics.
func HKDFExpandOneBlock(prk, info []byte, n int) []byte {
	if n > sha256.Size {
		panic("primitive: HKDFExpandOneBlock: n exceeds one HMAC-SHA256 block")
	}
	return HMACSHA256(prk, info)[:n]
}

// GenSalt returns n bytes read from a CSPRNG.
func GenSalt(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, perr.Wrap(perr.CryptoFailure, "generating random bytes", err)
	}
	return b, nil
}

// AESGCMSeal encrypts plain under key and iv with an empty AAD, returning
// the ciphertext and the 16-byte authentication tag separately.
func AESGCMSeal(plain, key, iv []byte) (ciphertext, tag []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	sealed := gcm.Seal(nil, iv, plain, nil)
	n := len(sealed) - gcm.Overhead()
	return sealed[:n], sealed[n:], nil
}

// AESGCMOpen decrypts ciphertext||tag under key and iv. A tag mismatch
// fails with perr.AuthFailure.
func AESGCMOpen(ciphertext, tag, key, iv []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, iv, append(append([]byte{}, ciphertext...), tag...), nil)
	if err != nil {
		return nil, perr.Wrap(perr.AuthFailure, "GCM tag verification failed", err)
	}
	return plain, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, perr.Wrap(perr.CryptoFailure, "building AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, perr.Wrap(perr.CryptoFailure, "building GCM", err)
	}
	return gcm, nil
}
