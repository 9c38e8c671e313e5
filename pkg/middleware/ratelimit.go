package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps a token bucket per client address. Buckets idle for
// longer than the idle timeout are evicted by Sweep.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

// NewClientLimiter allows each client rps requests per second with the given
// burst. rps of zero disables limiting.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ClientLimiter{
		clients: make(map[string]*clientEntry),
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

// Allow consumes one token for client and reports whether it was available.
func (l *ClientLimiter) Allow(client string) bool {
	if l.limit <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	e, ok := l.clients[client]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = e
	}
	e.lastSeen = now
	l.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// Sweep drops clients idle past the idle timeout and returns how many remain.
func (l *ClientLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.clients {
		if e.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
	return len(l.clients)
}

// RateLimit rejects requests over the client's budget with 429. Health and
// metrics paths are never limited. m may be nil.
func RateLimit(l *ClientLimiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			if !l.Allow(clientIP(r)) {
				if m != nil {
					m.RateLimitedTotal.Inc()
				}
				retry := 1
				if l.limit > 0 && float64(l.limit) < 1 {
					retry = int(1/float64(l.limit)) + 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				status, body := apperrors.Response(apperrors.ErrRateLimited)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(body)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
