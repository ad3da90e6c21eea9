// Package vapid builds the VAPID (RFC 8292) Authorization header value
// sent with every Web Push request: a compact ES256 JWS bound to the
// push service's origin, alongside the base64url application server key.
package vapid

import (
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arata-notify/webpush/b64"
	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/perr"
)

// MakeJWT builds a VAPID JWT scoped to endpointURL's origin and signed by
// identity, plus k, the base64url-encoded uncompressed public key of
// identity. ttl controls the exp claim; subject is carried verbatim as
// the sub claim (typically a mailto: or https: URL).
func MakeJWT(endpointURL, subject string, ttl time.Duration, identity *es256.KeyPair) (jwtStr, k string, err error) {
	u, parseErr := url.Parse(endpointURL)
	if parseErr != nil || u.Scheme == "" || u.Host == "" {
		return "", "", perr.Wrap(perr.InvalidSubscription, "endpoint is not an absolute URL", parseErr)
	}
	origin := u.Scheme + "://" + u.Host

	now := time.Now()
	if now.Unix() < 0 {
		return "", "", perr.New(perr.ClockFailure, "system clock is before the Unix epoch")
	}

	claims := jwt.MapClaims{
		"aud": origin,
		"exp": now.Add(ttl).Unix(),
		"sub": subject,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(identity.StdPrivateKey())
	if err != nil {
		return "", "", perr.Wrap(perr.CryptoFailure, "signing VAPID JWT", err)
	}

	return signed, b64.Encode(identity.Public().ToBytes()), nil
}

// ApplicationServerKey returns the VAPID public key formatted for use
// with the JavaScript PushManager.subscribe() applicationServerKey
// option.
func ApplicationServerKey(identity *es256.KeyPair) string {
	return b64.Encode(identity.Public().ToBytes())
}
