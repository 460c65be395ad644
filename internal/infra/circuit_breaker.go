package infra

import (
	"log/slog"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // normal operation
	StateOpen                  // failing, reject requests
	StateHalfOpen              // probing recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker isolates a failing dependency. After enough consecutive
// failures it rejects calls outright, then periodically lets a probe
// through until the dependency proves healthy again.
// Thread-safe for concurrent use.
type CircuitBreaker struct {
	name  string
	clock Clock
	mu    sync.RWMutex

	state        State
	failureCount int
	successCount int
	lastFailure  time.Time

	failureThreshold int           // failures before opening
	successThreshold int           // successes before closing again
	timeout          time.Duration // open duration before half-open
}

// NewCircuitBreaker builds a breaker from the config thresholds.
func NewCircuitBreaker(name string, cfg *Config, clock Clock) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		clock:            clock,
		state:            StateClosed,
		failureThreshold: cfg.Breaker.FailureThreshold,
		successThreshold: cfg.Breaker.SuccessThreshold,
		timeout:          time.Duration(cfg.Breaker.TimeoutSeconds) * time.Second,
	}
}

// Allow reports whether a call may proceed right now.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.clock.Now().Sub(cb.lastFailure) > cb.timeout {
			cb.state = StateHalfOpen
			cb.successCount = 0
			slog.Info("Circuit breaker transitioning to HALF_OPEN",
				slog.String("name", cb.name))
			return true
		}
		return false

	case StateHalfOpen:
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0

	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
			slog.Info("Circuit breaker CLOSED (recovered)",
				slog.String("name", cb.name))
		}
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = cb.clock.Now()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.state = StateOpen
			slog.Warn("Circuit breaker OPEN (failures exceeded threshold)",
				slog.String("name", cb.name),
				slog.Int("failures", cb.failureCount))
		}

	case StateHalfOpen:
		// any failure during the probe reopens
		cb.state = StateOpen
		cb.successCount = 0
		slog.Warn("Circuit breaker OPEN (half-open probe failed)",
			slog.String("name", cb.name))
	}
}

// GetState returns the current state for monitoring.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	slog.Info("Circuit breaker RESET", slog.String("name", cb.name))
}
