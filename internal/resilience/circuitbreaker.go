// Package resilience protects calls to the upstream market-data service
// with a circuit breaker: once enough candle/price/exchange-info requests
// fail in a row, further calls are rejected immediately instead of piling
// up against a service that's already down.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState is the breaker's current mode.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // calls pass through
	CircuitOpen     CircuitState = "OPEN"      // calls are rejected
	CircuitHalfOpen CircuitState = "HALF_OPEN" // a trial call is allowed through
)

// CircuitBreakerConfig tunes when a breaker trips and how it recovers.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures, while
	// closed, that trips the breaker open.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successes, while
	// half-open, that closes the breaker again.
	SuccessThreshold int
	// Timeout is how long the breaker stays open before allowing a trial
	// call through (transitioning to half-open).
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig matches the market-data service's observed
// failure pattern: a handful of consecutive errors usually means an
// upstream blip, not a single flaky request.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker wraps calls to a single named upstream with the standard
// closed/open/half-open state machine. It's keyed by a plain name rather
// than anything broker-specific, so the same breaker guards every route
// (exchange info, candles, prices) of one Client.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time
	lastStateChange time.Time

	totalRequests  int64
	totalFailures  int64
	totalRejected  int64
}

// NewCircuitBreaker constructs a breaker for name, starting closed.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:            name,
		config:          config,
		state:           CircuitClosed,
		lastStateChange: time.Now(),
	}
}

// ErrCircuitOpen is returned instead of calling fn when the breaker is open.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// Execute runs fn if the breaker allows it, and records the outcome.
// ctx cancellation while fn is in flight counts as a failure, the same as
// fn returning an error.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.allowRequest(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil {
			cb.recordFailure()
			return err
		}
		cb.recordSuccess()
		return nil
	case <-ctx.Done():
		cb.recordFailure()
		return ctx.Err()
	}
}

func (cb *CircuitBreaker) allowRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++

	switch cb.state {
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.config.Timeout {
			cb.transitionTo(CircuitHalfOpen)
			return nil
		}
		cb.totalRejected++
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}
	case CircuitClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(state CircuitState) {
	cb.state = state
	cb.lastStateChange = time.Now()
	cb.failures = 0
	cb.successes = 0
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker's counters, for a health/metrics
// endpoint to report.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerStats{
		Name:          cb.name,
		State:         cb.state,
		TotalRequests: cb.totalRequests,
		TotalFailures: cb.totalFailures,
		TotalRejected: cb.totalRejected,
	}
}

// CircuitBreakerStats is a point-in-time snapshot of a breaker's counters.
type CircuitBreakerStats struct {
	Name          string
	State         CircuitState
	TotalRequests int64
	TotalFailures int64
	TotalRejected int64
}
