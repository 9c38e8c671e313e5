// Package middleware provides the HTTP middleware shared by the services:
// request IDs, access logging, Prometheus metrics, per-client rate limiting,
// CORS and request timeouts.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or generates one, echoes it on
// the response and stores it in the request context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = newRequestID()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func newRequestID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}
