package infra

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter gates exchange calls. Wait blocks until a slot is available or
// the context ends.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewAPILimiter spaces calls evenly at perSecond per second. Burst is
// pinned to 1 on purpose: a bucket that saves up tokens can admit a
// burst right after a quiet spell, and two such bursts straddling a
// window boundary would put up to twice the cap inside one trailing
// second. Even spacing keeps every trailing one-second window at or
// under the cap.
func NewAPILimiter(perSecond int) Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
