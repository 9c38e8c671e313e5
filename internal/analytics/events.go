// Package analytics records what users search for. The search service emits
// a QueryEvent per request through a Collector; the analytics service
// consumes them from Kafka into an Aggregator and serves the aggregate.
package analytics

import "time"

// EventTypeQuery tags QueryEvent messages on the wire.
const EventTypeQuery = "query"

// Outcome classifies a query.
type Outcome string

const (
	OutcomeHit        Outcome = "hit"
	OutcomeZeroResult Outcome = "zero_result"
	OutcomeInvalid    Outcome = "invalid"
	OutcomeError      Outcome = "error"
)

// QueryEvent describes one answered (or rejected) search request.
type QueryEvent struct {
	Query     string    `json:"query"`
	Keywords  []string  `json:"keywords"`
	Limit     int       `json:"limit"`
	Returned  int       `json:"returned"`
	Outcome   Outcome   `json:"outcome"`
	CacheHit  bool      `json:"cache_hit"`
	LatencyUs int64     `json:"latency_us"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
