package observability

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by Allow and Do when the circuit rejects a
// request without running it.
var ErrBreakerOpen = errors.New("circuit breaker open")

// BreakerState is the circuit's position.
type BreakerState int

const (
	// BreakerClosed lets requests through and counts failures.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects requests until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen lets a few probe requests decide the next state.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker guards one outbound dependency with a three-state circuit.
// Consecutive failures open it for the cooldown; after that a limited
// number of probes decide whether it closes again. The caller chooses what
// counts as a failure through Success/Failure, so a provider rejecting one
// bad request can be recorded as Success and never opens the circuit for
// everyone else.
type Breaker struct {
	name      string
	operation string

	maxFailures int
	cooldown    time.Duration
	probes      int

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

// NewBreaker creates a closed breaker that opens after maxFailures
// consecutive failures and stays open for cooldown.
func NewBreaker(name, operation string, maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &Breaker{
		name:        name,
		operation:   operation,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		probes:      3,
	}
}

// Allow reports whether a request may proceed. An open circuit whose
// cooldown has elapsed moves to half-open and admits probes.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		b.shift(BreakerHalfOpen)
		b.successes = 0
	}
	switch b.state {
	case BreakerOpen:
		return ErrBreakerOpen
	case BreakerHalfOpen:
		if b.successes >= b.probes {
			return ErrBreakerOpen
		}
	}
	return nil
}

// Success records one successful call. Enough half-open successes close the
// circuit.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.probes {
			b.shift(BreakerClosed)
			b.failures = 0
			b.successes = 0
		}
	}
	b.report()
}

// Failure records one failed call. A half-open failure re-opens
// immediately; closed circuits open after maxFailures in a row.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == BreakerHalfOpen || (b.state == BreakerClosed && b.failures >= b.maxFailures) {
		b.shift(BreakerOpen)
		b.openedAt = time.Now()
	}
	b.report()
}

// Do runs fn under the breaker, counting every error as a failure.
func (b *Breaker) Do(fn func() error) error {
	if err := b.Allow(); err != nil {
		b.mu.Lock()
		b.report()
		b.mu.Unlock()
		return err
	}
	if err := fn(); err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}

// State returns the current position.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset force-closes the circuit and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shift(BreakerClosed)
	b.failures = 0
	b.successes = 0
	b.report()
}

// shift changes state and logs the edge. Callers hold the lock.
func (b *Breaker) shift(next BreakerState) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	if next == BreakerOpen {
		slog.Warn("circuit opened",
			slog.String("breaker", b.name),
			slog.String("operation", b.operation),
			slog.Int("failures", b.failures))
		return
	}
	slog.Info("circuit state changed",
		slog.String("breaker", b.name),
		slog.String("operation", b.operation),
		slog.String("from", prev.String()),
		slog.String("to", next.String()))
}

func (b *Breaker) report() {
	RecordCircuitBreakerStatus(b.name, b.operation, int(b.state))
}
