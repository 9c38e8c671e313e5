package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
)

// unmatchedRoute labels requests no route answered, so probes for random
// paths do not mint new label values.
const unmatchedRoute = "unmatched"

// paramRoutes are the path prefixes whose final segment is a keyword.
var paramRoutes = []string{
	"/api/v1/keywords/",
	"/api/v1/analytics/keywords/",
}

// Metrics records request count, latency and the in-flight gauge. A nil m
// disables it.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			path := routeLabel(r.URL.Path, sw.status)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// routeLabel collapses per-keyword paths so the label set stays bounded. A
// 404 or 405 from the mux itself is reported as unmatchedRoute, but a keyword
// route answering 404 keeps its route label.
func routeLabel(path string, status int) string {
	for _, prefix := range paramRoutes {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) && !strings.Contains(path[len(prefix):], "/") {
			return prefix + "{keyword}"
		}
	}
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		return unmatchedRoute
	}
	return path
}
