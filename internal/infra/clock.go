package infra

import "time"

// Clock abstracts wall time so staleness checks and nonces are testable.
type Clock interface {
	Now() time.Time
}

// RealClock is the process clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
