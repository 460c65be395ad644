package infra

import (
	"context"
	"testing"
	"time"
)

func TestAPILimiter_SpacesCalls(t *testing.T) {
	// 10/s with burst 1 means slots open every 100ms
	lim := NewAPILimiter(10)
	ctx := context.Background()

	if err := lim.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := lim.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// three more slots need roughly 300ms of spacing
	if elapsed < 250*time.Millisecond {
		t.Errorf("expected ~300ms of pacing for 3 calls, got %v", elapsed)
	}
}

func TestAPILimiter_NoBurstAfterIdle(t *testing.T) {
	lim := NewAPILimiter(10)
	ctx := context.Background()

	lim.Wait(ctx)
	// Idle long enough for a bucket to bank several tokens.
	time.Sleep(350 * time.Millisecond)

	start := time.Now()
	lim.Wait(ctx)
	lim.Wait(ctx)
	elapsed := time.Since(start)

	// With burst pinned to 1 only one token can be banked, so the
	// second call still pays the 100ms spacing.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected second call to be paced, got %v", elapsed)
	}
}

func TestAPILimiter_WaitHonorsContext(t *testing.T) {
	lim := NewAPILimiter(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	lim.Wait(context.Background()) // take the only slot

	if err := lim.Wait(ctx); err == nil {
		t.Error("expected Wait to fail once the context expired")
	}
}
