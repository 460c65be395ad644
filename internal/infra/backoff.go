package infra

import "time"

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
)

// CalculateBackoff returns the reconnect delay for the given retry
// attempt: 1s, 2s, 4s, ... capped at 60s.
func CalculateBackoff(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	if retry > 6 {
		return maxBackoff
	}
	backoff := initialBackoff * time.Duration(1<<uint(retry))
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}
