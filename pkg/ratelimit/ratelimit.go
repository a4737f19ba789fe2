// Package ratelimit implements a per-sender sliding-window message rate
// limiter: at most N sends within the trailing Window duration. A single
// mutex guards the whole limiter; each sender's timestamp queue is
// trimmed of entries older than Window on every call, making the
// amortized cost of Allow O(1) per call.
package ratelimit

import (
	"sync"
	"time"

	"github.com/clauded/swarm/pkg/clock"
)

const (
	DefaultMaxMessages = 10
	DefaultWindow      = time.Minute
)

// Limiter enforces a sliding-window budget per sender.
type Limiter struct {
	mu          sync.Mutex
	clock       clock.Clock
	maxMessages int
	window      time.Duration
	sent        map[string][]time.Time
}

// New returns a Limiter allowing maxMessages per window, per sender.
func New(c clock.Clock, maxMessages int, window time.Duration) *Limiter {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		clock:       c,
		maxMessages: maxMessages,
		window:      window,
		sent:        make(map[string][]time.Time),
	}
}

// Allow reports whether sender may send now, and if so records the send.
// One broadcast consumes exactly one credit regardless of recipient
// count — callers account for that at the call site, not here.
func (l *Limiter) Allow(sender string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-l.window)
	kept := l.sent[sender][:0]
	for _, t := range l.sent[sender] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.maxMessages {
		l.sent[sender] = kept
		return false
	}

	kept = append(kept, now)
	l.sent[sender] = kept
	return true
}

// RetryAfter returns how long sender must wait before its oldest
// in-window send ages out, or zero if sender is currently under budget.
func (l *Limiter) RetryAfter(sender string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-l.window)
	var kept []time.Time
	for _, t := range l.sent[sender] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.sent[sender] = kept

	if len(kept) < l.maxMessages {
		return 0
	}
	oldest := kept[0]
	return oldest.Add(l.window).Sub(now)
}
