// Package clock abstracts wall-clock time so that rate limiting,
// acknowledgement retries, lock staleness, and agent liveness checks can
// be driven by a fake clock in tests instead of the real one.
//
// Every subsystem that measures elapsed time (pkg/ratelimit, pkg/ack,
// pkg/registry, pkg/filelock) takes a Clock instead of calling time.Now
// directly, matching the injected-capability style used throughout this
// module: components depend on small interfaces, not global state.
package clock

import "time"

// Clock is the time source any component needing elapsed-time reasoning
// depends on.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// Real is the production Clock, backed directly by the time package.
type Real struct{}

func (Real) Now() time.Time                        { return time.Now() }
func (Real) Sleep(d time.Duration)                  { time.Sleep(d) }
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

var _ Clock = Real{}
