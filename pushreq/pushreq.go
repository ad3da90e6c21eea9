// Package pushreq assembles the HTTP request a push service expects, per
// RFC 8030 §5: the sealed envelope as the body, VAPID and crypto headers
// set exactly once, in one place, so the delivery driver never touches
// header names directly.
package pushreq

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/arata-notify/webpush/perr"
	"github.com/arata-notify/webpush/subscription"
)

// Build assembles the POST request for sub. jwt and k are the VAPID
// token and application server key from vapid.MakeJWT; ttl is sent
// verbatim as the TTL header, in seconds.
func Build(ctx context.Context, sub *subscription.Subscription, envelope []byte, jwt, k string, ttl time.Duration) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, perr.Wrap(perr.NetworkFailure, "building push request", err)
	}

	req.Header.Set("Authorization", "vapid t="+jwt+", k="+k)
	req.Header.Set("Crypto-Key", "p256ecdsa="+k)
	req.Header.Set("Content-Length", strconv.Itoa(len(envelope)))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", strconv.Itoa(int(ttl.Seconds())))

	return req, nil
}
