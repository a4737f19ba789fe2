package procinspect

import (
	"context"
	"testing"
)

func TestFake_FindAssistant(t *testing.T) {
	f := NewFake()
	f.Matches[123] = &Match{PID: 456, Name: "claude", CWD: "/work", CWDKnown: true}

	m, err := f.FindAssistant(context.Background(), 123)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Name != "claude" {
		t.Fatalf("FindAssistant: got %+v", m)
	}
}

func TestFake_FindAssistant_NoMatch(t *testing.T) {
	f := NewFake()
	m, err := f.FindAssistant(context.Background(), 999)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatalf("FindAssistant: expected nil, got %+v", m)
	}
}

func TestInspector_MatchesDefaultPatterns(t *testing.T) {
	i := &Inspector{}
	for _, name := range []string{"claude", "cursor-agent", "codex", "aider"} {
		if !i.matches(name) {
			t.Errorf("matches(%q): want true", name)
		}
	}
	if i.matches("bash") {
		t.Error("matches(bash): want false")
	}
}

func TestInspector_DefaultMaxDepth(t *testing.T) {
	var i Inspector
	if got := i.maxDepth(); got != defaultMaxDepth {
		t.Fatalf("maxDepth: got %d, want %d", got, defaultMaxDepth)
	}
}
