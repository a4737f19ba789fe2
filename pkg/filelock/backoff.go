package filelock

import (
	"math/rand"
	"time"
)

// backoffConfig mirrors the shape of a contention-retry backoff: a small
// base delay, a cap, and jitter so competing retries don't lockstep.
type backoffConfig struct {
	maxAttempts int
	base        time.Duration
	cap         time.Duration
}

var defaultBackoff = backoffConfig{
	maxAttempts: 8,
	base:        50 * time.Millisecond,
	cap:         500 * time.Millisecond,
}

// delay returns the backoff delay for the given zero-indexed attempt
// number, exponential up to cap, with up to 50% jitter.
func (b backoffConfig) delay(attempt int) time.Duration {
	d := b.base << attempt
	if d > b.cap || d <= 0 {
		d = b.cap
	}
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d - jitter
}
