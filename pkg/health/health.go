// Package health runs dependency checks for liveness and readiness probes.
// Required checks mark the service down when they fail; optional ones only
// degrade it.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/resilience"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type registered struct {
	check    Check
	required bool
}

// Checker holds the registered checks.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]registered
	timeout time.Duration
}

// NewChecker creates a Checker whose checks each get at most timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{checks: make(map[string]registered), timeout: timeout}
}

// Register adds a check whose failure makes the service not ready.
func (c *Checker) Register(name string, check Check) {
	c.add(name, check, true)
}

// RegisterOptional adds a check whose failure only degrades the service.
func (c *Checker) RegisterOptional(name string, check Check) {
	c.add(name, check, false)
}

func (c *Checker) add(name string, check Check, required bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registered{check: check, required: required}
}

// Run executes every check concurrently. The report is down if a required
// check failed, degraded if only optional ones did, and up otherwise.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]registered, len(c.checks))
	for name, r := range c.checks {
		checks[name] = r
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, r := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := resilience.WithTimeout(ctx, c.timeout, name, func(ctx context.Context) error {
				return r.check(ctx)
			})
			ch := ComponentHealth{Status: StatusUp, Latency: time.Since(start).Round(time.Microsecond).String()}
			if err != nil {
				ch.Status, ch.Message = StatusDegraded, err.Error()
				if resilience.IsTimeout(err) {
					ch.Message = fmt.Sprintf("no answer within %s", c.timeout)
				}
				if r.required {
					ch.Status = StatusDown
				}
			}
			mu.Lock()
			report.Components[name] = ch
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, ch := range report.Components {
		switch ch.Status {
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

// LiveHandler answers liveness probes; the process being able to respond is
// enough.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers readiness probes with the full report. Degraded counts
// as ready.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
