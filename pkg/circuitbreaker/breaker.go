// Package circuitbreaker implements the circuit breaker pattern.
//
// A circuit breaker prevents cascading failures by tracking consecutive
// failures and temporarily blocking requests to a failing dependency.
//
// States:
//   - Closed: Normal operation, requests allowed
//   - Open: Too many failures, requests blocked
//   - HalfOpen: Testing if the dependency recovered
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Do when the circuit is open and the request was
// not attempted.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the state of a circuit breaker.
type State int

const (
	Closed   State = iota // Normal operation, requests allowed
	Open                  // Failing, requests blocked
	HalfOpen              // Testing if recovered
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds configuration for a circuit breaker.
type Config struct {
	Threshold int           // Consecutive failures before the circuit opens (default: 5)
	Cooldown  time.Duration // Time before half-open (default: 30s)
}

// Breaker implements the circuit breaker pattern for a single dependency.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	threshold   int
	lastFailure time.Time
	cooldown    time.Duration
}

// New creates a new circuit breaker.
func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		state:     Closed,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
	}
}

// Do runs fn through the breaker. When the circuit is open the call is
// rejected with ErrOpen without invoking fn; otherwise fn's outcome is
// recorded and its error returned.
func (b *Breaker) Do(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset returns the breaker to the closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.lastFailure) > b.cooldown {
			b.state = HalfOpen
			return true
		}
		return false
	default:
		// Closed always allows; HalfOpen lets the probe request through.
		return true
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = Closed
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	if b.state == HalfOpen {
		// Failed during the half-open probe, back to open.
		b.state = Open
		return
	}
	if b.failures >= b.threshold {
		b.state = Open
	}
}
