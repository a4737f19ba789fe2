package main

import (
	"testing"

	"github.com/clauded/swarm/pkg/registry"
)

func TestBroadcastMessage_NoOtherAgents(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.coord.Registry.Refresh("test-session", []registry.Discovered{
		{PaneID: "%1", PID: 100, Session: "test-session", Window: 0, PaneIndex: 0},
	}); err != nil {
		t.Fatal(err)
	}

	code := a.cmdBroadcastMessage([]string{"agent-0", "INFO", "status update"})
	if code != 0 {
		t.Fatalf("broadcast with no other agents: got exit %d", code)
	}
}
