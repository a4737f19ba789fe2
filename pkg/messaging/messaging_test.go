package messaging

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/clauded/swarm/pkg/clock"
	"github.com/clauded/swarm/pkg/envelope"
	"github.com/clauded/swarm/pkg/ratelimit"
	"github.com/clauded/swarm/pkg/registry"
	"github.com/clauded/swarm/pkg/swarmerr"
	"github.com/clauded/swarm/pkg/tmux"
)

func newService(t *testing.T) (*Service, *tmux.Fake, *registry.Registry) {
	t.Helper()
	fc := clock.NewFake(time.Unix(0, 0))
	reg := registry.New(filepath.Join(t.TempDir(), "ACTIVE_AGENTS.json"), fc)
	if _, err := reg.Refresh("sess", []registry.Discovered{{PaneID: "%1"}, {PaneID: "%2"}}); err != nil {
		t.Fatal(err)
	}
	agents, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}

	mux := tmux.NewFake(
		tmux.Pane{PaneID: agents[0].PaneID},
		tmux.Pane{PaneID: agents[1].PaneID},
	)

	svc := &Service{
		Registry:  reg,
		Limiter:   ratelimit.New(fc, 10, time.Minute),
		Log:       envelope.Log{Path: filepath.Join(t.TempDir(), "agent_messages.log")},
		Mux:       mux,
		SecretKey: []byte("test-key"),
		Clock:     fc,
	}
	return svc, mux, reg
}

func TestSend_DeliversAndLogs(t *testing.T) {
	svc, mux, reg := newService(t)
	agents, _ := reg.List()
	recipientID := agents[1].ID

	m, err := svc.Send(context.Background(), agents[0].ID, recipientID, envelope.KindInfo, "hello")
	if err != nil {
		t.Fatal(err)
	}

	sent := mux.Sent[agents[1].PaneID]
	if len(sent) != 1 {
		t.Fatalf("expected one delivery, got %d", len(sent))
	}

	logged, err := svc.Log.Tail(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logged) != 1 || logged[0].MessageID != m.MessageID {
		t.Fatalf("log: got %+v", logged)
	}
}

func TestSend_UnknownRecipientFailsWithoutSideEffects(t *testing.T) {
	svc, _, reg := newService(t)
	agents, _ := reg.List()

	_, err := svc.Send(context.Background(), agents[0].ID, "nonexistent", envelope.KindInfo, "hello")
	if err == nil {
		t.Fatal("expected error for unknown recipient")
	}
	var notFound *swarmerr.AgentNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected AgentNotFound, got %T: %v", err, err)
	}
	if len(notFound.Candidates) != 2 {
		t.Fatalf("candidates: got %v, want 2 active agents", notFound.Candidates)
	}

	// Unknown-recipient is a pure precondition failure: it must not
	// consume the sender's rate-limit credit or durably log anything.
	logged, lerr := svc.Log.Tail(0)
	if lerr != nil {
		t.Fatal(lerr)
	}
	if len(logged) != 0 {
		t.Fatalf("expected nothing logged for an unknown recipient, got %d entries", len(logged))
	}
	if !svc.Limiter.Allow(agents[0].ID) {
		t.Fatal("expected rate-limit credit to be untouched by a failed precondition check")
	}
}

func TestBroadcast_RejectsTooManyRecipients(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	reg := registry.New(filepath.Join(t.TempDir(), "ACTIVE_AGENTS.json"), fc)
	var discovered []registry.Discovered
	for i := 0; i < MaxBroadcastRecipients+2; i++ {
		discovered = append(discovered, registry.Discovered{PaneID: fmt.Sprintf("%%%d", i)})
	}
	if _, err := reg.Refresh("sess", discovered); err != nil {
		t.Fatal(err)
	}

	svc := &Service{
		Registry:  reg,
		Limiter:   ratelimit.New(fc, 10, time.Minute),
		Log:       envelope.Log{Path: filepath.Join(t.TempDir(), "agent_messages.log")},
		Mux:       tmux.NewFake(),
		SecretKey: []byte("k"),
		Clock:     fc,
	}

	_, err := svc.Broadcast(context.Background(), "someone-not-in-list", envelope.KindInfo, "hi")
	if err == nil {
		t.Fatal("expected broadcast rejection for too many recipients")
	}
}

func TestBroadcast_RetriesOfflineRecipientOnce(t *testing.T) {
	svc, mux, reg := newService(t)
	agents, _ := reg.List()
	mux.Dead[agents[1].PaneID] = true

	results, err := svc.Broadcast(context.Background(), agents[0].ID, envelope.KindInfo, "status")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one recipient result, got %d", len(results))
	}
	if results[0].Delivered {
		t.Fatal("expected delivery to report failure for a dead pane")
	}
}

func TestSend_RateLimited(t *testing.T) {
	svc, _, reg := newService(t)
	agents, _ := reg.List()
	svc.Limiter = ratelimit.New(svc.Clock, 1, time.Minute)

	if _, err := svc.Send(context.Background(), agents[0].ID, agents[1].ID, envelope.KindInfo, "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Send(context.Background(), agents[0].ID, agents[1].ID, envelope.KindInfo, "two"); err == nil {
		t.Fatal("expected rate limit error on second send")
	}
}
