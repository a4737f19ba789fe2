package ratelimit

import (
	"testing"
	"time"

	"github.com/clauded/swarm/pkg/clock"
)

func TestAllow_BoundaryAtLimit(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	l := New(fc, 10, time.Minute)

	for i := 0; i < 10; i++ {
		if !l.Allow("agent-a") {
			t.Fatalf("send %d: expected allowed", i+1)
		}
	}
	if l.Allow("agent-a") {
		t.Fatal("11th send: expected denied")
	}
}

func TestAllow_WindowSlides(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	l := New(fc, 1, time.Minute)

	if !l.Allow("agent-a") {
		t.Fatal("first send: expected allowed")
	}
	if l.Allow("agent-a") {
		t.Fatal("second send within window: expected denied")
	}

	fc.Advance(61 * time.Second)
	if !l.Allow("agent-a") {
		t.Fatal("send after window slide: expected allowed")
	}
}

func TestAllow_IndependentPerSender(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	l := New(fc, 1, time.Minute)

	if !l.Allow("agent-a") || !l.Allow("agent-b") {
		t.Fatal("independent senders: both first sends should be allowed")
	}
}

func TestRetryAfter_ZeroWhenUnderBudget(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	l := New(fc, 5, time.Minute)
	if got := l.RetryAfter("agent-a"); got != 0 {
		t.Fatalf("RetryAfter under budget: got %v, want 0", got)
	}
}

func TestRetryAfter_PositiveWhenAtLimit(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	l := New(fc, 1, time.Minute)
	l.Allow("agent-a")
	if got := l.RetryAfter("agent-a"); got <= 0 {
		t.Fatalf("RetryAfter at limit: got %v, want > 0", got)
	}
}
