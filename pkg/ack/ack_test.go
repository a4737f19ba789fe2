package ack

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clauded/swarm/pkg/clock"
	"github.com/clauded/swarm/pkg/envelope"
)

type recorder struct {
	mu        sync.Mutex
	resends   []Pending
	escalated []Pending
}

func (r *recorder) Resend(_ context.Context, p Pending) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resends = append(r.resends, p)
	return nil
}

func (r *recorder) Escalate(_ context.Context, p Pending) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escalated = append(r.escalated, p)
	return nil
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resends), len(r.escalated)
}

func TestTrack_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	fc := clock.NewFake(time.Unix(0, 0))
	store := Store{Path: path}

	tr, err := NewTracker(store, fc, &recorder{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Track(envelope.Message{MessageID: "m1", SenderID: "a", RecipientID: "b"}, "escalate-to-all"); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewTracker(store, fc, &recorder{})
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Pending()) != 1 {
		t.Fatalf("reloaded pending: got %d, want 1", len(reloaded.Pending()))
	}
}

func TestAck_RemovesPending(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	tr, err := NewTracker(Store{Path: filepath.Join(t.TempDir(), "pending.json")}, fc, &recorder{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Track(envelope.Message{MessageID: "m1"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := tr.Ack("m1"); err != nil {
		t.Fatal(err)
	}
	if len(tr.Pending()) != 0 {
		t.Fatalf("Pending after Ack: got %d, want 0", len(tr.Pending()))
	}
}

func TestRun_ResendsUntilRetriesExhaustedThenEscalates(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	rec := &recorder{}
	tr, err := NewTracker(Store{Path: filepath.Join(t.TempDir(), "pending.json")}, fc, rec)
	if err != nil {
		t.Fatal(err)
	}
	tr.RetryInterval = time.Minute
	tr.MaxRetries = 2

	if err := tr.Track(envelope.Message{MessageID: "m1", SenderID: "a", RecipientID: "b"}, "broadcast"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	for i := 0; i < 3; i++ {
		time.Sleep(10 * time.Millisecond) // let Run register its next waiter
		fc.Advance(pollInterval)
		time.Sleep(10 * time.Millisecond)
		fc.Advance(time.Minute)
	}
	time.Sleep(50 * time.Millisecond) // let the goroutine drain the final tick
	cancel()
	<-done

	resends, escalations := rec.counts()
	if resends != 2 {
		t.Fatalf("resends: got %d, want 2", resends)
	}
	if escalations != 1 {
		t.Fatalf("escalations: got %d, want 1", escalations)
	}
	if len(tr.Pending()) != 0 {
		t.Fatalf("pending after escalation: got %d, want 0", len(tr.Pending()))
	}
}
