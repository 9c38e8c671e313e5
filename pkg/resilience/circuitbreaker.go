// Package resilience guards calls to backing services: a circuit breaker for
// the query cache, bounded retries for connecting at startup, and deadline
// wrapping for health probes.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when the breaker trips and how it recovers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a probe.
	ResetTimeout time.Duration
	// HalfOpenMaxCalls bounds concurrent probes while half-open.
	HalfOpenMaxCalls int
	// IsFailure decides which errors count against the circuit. Nil counts
	// every non-nil error.
	IsFailure func(error) bool
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Counts is a point-in-time view of a breaker.
type Counts struct {
	State               string `json:"state"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Rejected            int64  `json:"rejected"`
	Trips               int64  `json:"trips"`
}

// Breaker stops calling a failing dependency for ResetTimeout after
// FailureThreshold consecutive failures, then lets probe calls through to
// decide whether to close again.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
	rejected int64
	trips    int64
}

// NewBreaker creates a closed Breaker. Zero config fields take defaults: five
// failures, a 30s reset timeout and one half-open probe.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Do runs fn unless the circuit is open, and records its outcome.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current state, moving an expired open circuit to
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Counts returns the breaker's counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return Counts{
		State:               b.state.String(),
		ConsecutiveFailures: b.failures,
		Rejected:            b.rejected,
		Trips:               b.trips,
	}
}

// Reset closes the circuit and clears the failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probes = 0
}

// refresh must be called with mu held.
func (b *Breaker) refresh() {
	if b.state == StateOpen && b.cfg.Now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.state = StateHalfOpen
		b.probes = 0
		b.logger.Info("circuit half-open", "after", b.cfg.ResetTimeout)
	}
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	switch b.state {
	case StateOpen:
		b.rejected++
		wait := b.cfg.ResetTimeout - b.cfg.Now().Sub(b.openedAt)
		return fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, b.name, wait.Round(time.Millisecond))
	case StateHalfOpen:
		if b.probes >= b.cfg.HalfOpenMaxCalls {
			b.rejected++
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, b.name)
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.cfg.IsFailure(err) {
		if b.state == StateHalfOpen {
			b.logger.Info("circuit closed")
		}
		b.state = StateClosed
		b.failures = 0
		b.probes = 0
		return
	}
	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.trip()
	case b.state == StateClosed && b.failures >= b.cfg.FailureThreshold:
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.cfg.Now()
	b.trips++
	b.logger.Warn("circuit opened",
		"consecutive_failures", b.failures,
		"threshold", b.cfg.FailureThreshold,
	)
}
