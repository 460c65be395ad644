package infra

import (
	"testing"
	"time"
)

// fakeClock lets tests step time instead of sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func breakerConfig(failures, successes, timeoutSec int) *Config {
	cfg := DefaultConfig()
	cfg.Breaker.FailureThreshold = failures
	cfg.Breaker.SuccessThreshold = successes
	cfg.Breaker.TimeoutSeconds = timeoutSec
	return &cfg
}

func TestCircuitBreaker_AllowInClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", breakerConfig(5, 2, 30), &fakeClock{now: time.Now()})

	if !cb.Allow() {
		t.Error("Expected Allow() to return true in CLOSED state")
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state CLOSED, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", breakerConfig(3, 2, 30), clk)

	cb.RecordFailure()
	cb.RecordFailure()

	if cb.GetState() != StateClosed {
		t.Error("Should still be CLOSED after 2 failures")
	}

	cb.RecordFailure() // third failure trips it

	if cb.GetState() != StateOpen {
		t.Errorf("Expected OPEN after 3 failures, got %s", cb.GetState())
	}

	if cb.Allow() {
		t.Error("Expected Allow() to return false in OPEN state")
	}
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", breakerConfig(2, 1, 30), clk)

	cb.RecordFailure()
	cb.RecordFailure()

	if cb.GetState() != StateOpen {
		t.Fatal("Expected OPEN state")
	}

	clk.advance(31 * time.Second)

	if !cb.Allow() {
		t.Error("Expected Allow() to return true after timeout (half-open)")
	}

	if cb.GetState() != StateHalfOpen {
		t.Errorf("Expected HALF_OPEN, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_ReopensOnProbeFailure(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", breakerConfig(2, 2, 30), clk)

	cb.RecordFailure()
	cb.RecordFailure()
	clk.advance(31 * time.Second)
	cb.Allow() // half-open

	cb.RecordFailure()

	if cb.GetState() != StateOpen {
		t.Errorf("Expected OPEN after failed probe, got %s", cb.GetState())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false right after reopening")
	}
}

func TestCircuitBreaker_ClosesOnSuccess(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", breakerConfig(2, 2, 30), clk)

	cb.RecordFailure()
	cb.RecordFailure()

	clk.advance(31 * time.Second)
	cb.Allow()

	cb.RecordSuccess()
	if cb.GetState() != StateHalfOpen {
		t.Error("Should still be HALF_OPEN after 1 success")
	}

	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Errorf("Expected CLOSED after 2 successes, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test", breakerConfig(5, 2, 30), clk)

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}

	if cb.GetState() != StateOpen {
		t.Fatal("Expected OPEN state")
	}

	cb.Reset()

	if cb.GetState() != StateClosed {
		t.Errorf("Expected CLOSED after Reset, got %s", cb.GetState())
	}

	if !cb.Allow() {
		t.Error("Expected Allow() to return true after Reset")
	}
}
