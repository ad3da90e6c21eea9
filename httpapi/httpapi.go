// Package httpapi implements the external-facing HTTP surface: subscribe,
// unsubscribe, the VAPID public key, and the test-push trigger. Every
// error reaching a handler is mapped to 500 and a generic body, with the
// kind logged, except a NotFound from /unsubscribe, which is a 404.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/perr"
	"github.com/arata-notify/webpush/storage"
	"github.com/arata-notify/webpush/subscription"
	"github.com/arata-notify/webpush/vapid"
)

// Server wires the HTTP handlers to a Store and a VAPID identity.
type Server struct {
	Store    storage.Store
	Identity *es256.KeyPair
	// Trigger, if non-nil, is called with the body of a /test-push
	// request's "message" field.
	Trigger func(message string)
}

// Handler returns the mux of subscribe/unsubscribe/pubkey/test-push routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /vapid/pubkey", s.handlePubkey)
	mux.HandleFunc("POST /subscribe", s.handleSubscribe)
	mux.HandleFunc("POST /unsubscribe", s.handleUnsubscribe)
	mux.HandleFunc("POST /test-push", s.handleTestPush)
	return withRequestID(mux)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePubkey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"vapid_public_key": vapid.ApplicationServerKey(s.Identity),
	})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	body, err := readAll(r)
	if err != nil {
		writeError(r, w, perr.Wrap(perr.Serialization, "reading request body", err))
		return
	}

	sub, err := subscription.Parse(body)
	if err != nil {
		writeError(r, w, err)
		return
	}

	if _, err := s.Store.Insert(r.Context(), sub); err != nil {
		writeError(r, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "subscribed"})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		body, err := readAll(r)
		if err == nil && len(body) > 0 {
			var req struct {
				Endpoint string `json:"endpoint"`
			}
			if jsonErr := json.Unmarshal(body, &req); jsonErr == nil {
				endpoint = req.Endpoint
			}
		}
	}
	if endpoint == "" {
		writeError(r, w, perr.New(perr.InvalidSubscription, "endpoint is required"))
		return
	}

	if _, err := s.Store.Delete(r.Context(), endpoint); err != nil {
		if perr.Is(err, perr.NotFound) {
			http.Error(w, "no subscription for that endpoint", http.StatusNotFound)
			return
		}
		writeError(r, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

func (s *Server) handleTestPush(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	body, err := readAll(r)
	if err != nil {
		writeError(r, w, perr.Wrap(perr.Serialization, "reading request body", err))
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(r, w, perr.Wrap(perr.Serialization, "decoding test-push body", err))
		return
	}

	if s.Trigger != nil {
		s.Trigger(req.Message)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps any error to a generic 500 body, logging the taxonomy
// kind (or "unknown" for a non-perr error) with the request's
// X-Request-Id for correlation.
func writeError(r *http.Request, w http.ResponseWriter, err error) {
	kind := "unknown"
	var pe *perr.Error
	if errors.As(err, &pe) {
		kind = string(pe.Kind)
	}
	clog.Infof("httpapi: request %s failed: kind=%s err=%v", w.Header().Get("X-Request-Id"), kind, err)
	http.Error(w, "Something went wrong", http.StatusInternalServerError)
}
