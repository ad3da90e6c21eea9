// Package es256 implements the P-256 key primitives Web Push is built on:
// uncompressed SEC1 public keys, ECDSA sign/verify with raw r||s
// signatures, ECDH, and the RFC 8291 message-encryption recipe that
// turns a plaintext payload into an aes128gcm PushEnvelope.
package es256

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/arata-notify/webpush/perr"
	"github.com/arata-notify/webpush/primitive"
)

const (
	// pointLen is the uncompressed SEC1 encoding length of a P-256 point:
	// 0x04 || X(32) || Y(32).
	pointLen = 65

	// maxPlaintext is the largest payload that fits a single, final
	// aes128gcm record at the fixed rs=4096 we use: RFC 8188 requires the
	// last record's ciphertext (plaintext + 0x02 delimiter + 16-byte GCM
	// tag) to be strictly shorter than rs, independent of the 86-byte
	// header that precedes the record.
	maxPlaintext = 4078

	recordSize = 4096

	webPushInfoLabel = "WebPush: info\x00"
	cekInfoLabel     = "Content-Encoding: aes128gcm\x00"
	nonceInfoLabel   = "Content-Encoding: nonce\x00"
)

// PublicKey is the uncompressed SEC1 encoding of a P-256 point.
type PublicKey struct {
	raw  [pointLen]byte
	ecdh *ecdh.PublicKey
}

// FromBytes parses the uncompressed SEC1 encoding of a P-256 point,
// validating that it lies on the curve.
func FromBytes(b []byte) (*PublicKey, error) {
	k, err := ecdh.P256().NewPublicKey(b)
	if err != nil {
		return nil, perr.Wrap(perr.InvalidKey, "p256 point is not valid", err)
	}
	pk := &PublicKey{ecdh: k}
	copy(pk.raw[:], k.Bytes())
	return pk, nil
}

// ToBytes returns the 65-byte uncompressed SEC1 encoding.
func (p *PublicKey) ToBytes() []byte {
	out := make([]byte, pointLen)
	copy(out, p.raw[:])
	return out
}

func (p *PublicKey) toECDSA() *ecdsa.PublicKey {
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(p.raw[1:33]),
		Y:     new(big.Int).SetBytes(p.raw[33:65]),
	}
}

// Verify reports whether sig (raw r||s, 64 bytes) is a valid ECDSA-P256
// signature over SHA-256(data) for this key.
func (p *PublicKey) Verify(data, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	hash := sha256.Sum256(data)
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	return ecdsa.Verify(p.toECDSA(), hash[:], r, s)
}

// KeyPair is a P-256 private scalar paired with its public point.
type KeyPair struct {
	ecdhKey  *ecdh.PrivateKey
	ecdsaKey *ecdsa.PrivateKey
}

// Generate creates a fresh random key pair.
func Generate() (*KeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, perr.Wrap(perr.CryptoFailure, "generating P-256 key", err)
	}
	return fromECDH(priv)
}

// FromPrivateBytes reconstructs a key pair from its 32-byte big-endian
// scalar (as produced by PrivateBytes).
func FromPrivateBytes(raw []byte) (*KeyPair, error) {
	priv, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, perr.Wrap(perr.InvalidKey, "invalid private scalar", err)
	}
	return fromECDH(priv)
}

func fromECDH(priv *ecdh.PrivateKey) (*KeyPair, error) {
	raw := priv.Bytes()
	d := new(big.Int).SetBytes(raw)
	x, y := elliptic.P256().ScalarBaseMult(raw)
	return &KeyPair{
		ecdhKey: priv,
		ecdsaKey: &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y},
			D:         d,
		},
	}, nil
}

// Public returns the matching public key.
func (k *KeyPair) Public() *PublicKey {
	pk, _ := FromBytes(k.ecdhKey.PublicKey().Bytes())
	return pk
}

// PrivateBytes returns the 32-byte big-endian private scalar.
func (k *KeyPair) PrivateBytes() []byte {
	return k.ecdhKey.Bytes()
}

// Sign computes an ECDSA-P256/SHA-256 signature over data, returned as
// raw r||s, each zero-padded on the left to 32 bytes. The ASN.1 DER form
// is never emitted.
func (k *KeyPair) Sign(data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, k.ecdsaKey, hash[:])
	if err != nil {
		return nil, perr.Wrap(perr.CryptoFailure, "ECDSA sign", err)
	}
	sig := make([]byte, 64)
	rb, sb := r.Bytes(), s.Bytes()
	copy(sig[32-len(rb):32], rb)
	copy(sig[64-len(sb):64], sb)
	return sig, nil
}

// Verify reports whether sig is a valid signature over data for this
// key's public half.
func (k *KeyPair) Verify(data, sig []byte) bool {
	return k.Public().Verify(data, sig)
}

// ECDH returns the raw X-coordinate of self.private * peer.point.
func (k *KeyPair) ECDH(peer *PublicKey) ([]byte, error) {
	secret, err := k.ecdhKey.ECDH(peer.ecdh)
	if err != nil {
		return nil, perr.Wrap(perr.CryptoFailure, "ECDH", err)
	}
	return secret, nil
}

// StdPrivateKey exposes the underlying *ecdsa.PrivateKey for interop
// with libraries that expect the standard library type directly (the
// VAPID JWT signer, see package vapid).
func (k *KeyPair) StdPrivateKey() *ecdsa.PrivateKey {
	return k.ecdsaKey
}

// PushEnvelope is the aes128gcm-framed body of a Web Push HTTP request:
// salt(16) || rs(4, BE) || idlen(1) || keyid(65) || ciphertext || tag(16).
type PushEnvelope struct {
	Bytes []byte
}

// Seal builds a PushEnvelope per RFC 8291 §3.4 / §4: ephemeral is a
// fresh per-message key pair, peer is the recipient's p256dh, auth is
// the recipient's 16-byte auth secret, and salt is a fresh 16-byte
// value. Plaintext longer than 4078 bytes does not fit a single
// aes128gcm record and fails with perr.PayloadTooLarge.
func Seal(ephemeral *KeyPair, peer *PublicKey, auth, salt, plaintext []byte) (*PushEnvelope, error) {
	if len(plaintext) > maxPlaintext {
		return nil, perr.New(perr.PayloadTooLarge,
			fmt.Sprintf("plaintext of %d bytes exceeds the %d-byte single-record limit", len(plaintext), maxPlaintext))
	}
	if len(auth) != 16 {
		return nil, perr.New(perr.InvalidKey, "auth secret must be 16 bytes")
	}
	if len(salt) != 16 {
		return nil, perr.New(perr.InvalidKey, "salt must be 16 bytes")
	}

	selfPub := ephemeral.Public().ToBytes()
	peerPub := peer.ToBytes()

	ecdhSecret, err := ephemeral.ECDH(peer)
	if err != nil {
		return nil, err
	}

	keyInfo := make([]byte, 0, len(webPushInfoLabel)+2*pointLen)
	keyInfo = append(keyInfo, webPushInfoLabel...)
	keyInfo = append(keyInfo, peerPub...)
	keyInfo = append(keyInfo, selfPub...)

	prkKey := primitive.HMACSHA256(auth, ecdhSecret)
	ikm := primitive.HMACSHA256(prkKey, append(keyInfo, 0x01))
	prk := primitive.HMACSHA256(salt, ikm)

	cek := primitive.HKDFExpandOneBlock(prk, append([]byte(cekInfoLabel), 0x01), 16)
	nonce := primitive.HKDFExpandOneBlock(prk, append([]byte(nonceInfoLabel), 0x01), 12)

	padded := make([]byte, len(plaintext)+1)
	copy(padded, plaintext)
	padded[len(plaintext)] = 0x02

	ciphertext, tag, err := primitive.AESGCMSeal(padded, cek, nonce)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, 16+4+1+pointLen)
	header = append(header, salt...)
	header = binary.BigEndian.AppendUint32(header, recordSize)
	header = append(header, byte(pointLen))
	header = append(header, selfPub...)

	envelope := make([]byte, 0, len(header)+len(ciphertext)+len(tag))
	envelope = append(envelope, header...)
	envelope = append(envelope, ciphertext...)
	envelope = append(envelope, tag...)

	return &PushEnvelope{Bytes: envelope}, nil
}
