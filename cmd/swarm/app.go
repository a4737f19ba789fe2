package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/clauded/swarm/pkg/coordinator"
)

// app holds the shared Coordinator and resolved default identity for all
// CLI subcommands in this invocation.
type app struct {
	coord   *coordinator.Coordinator
	agentID string // default agent from CLAUDE_SWARM_AGENT
}

// newApp resolves the project root, constructs one Coordinator for this
// invocation, and reads the default agent identity from the environment.
func newApp() (*app, error) {
	coord, err := coordinator.New("", coordinator.Options{})
	if err != nil {
		return nil, fmt.Errorf("cannot initialize swarm: %w", err)
	}
	return &app{
		coord:   coord,
		agentID: envOr("CLAUDE_SWARM_AGENT", ""),
	}, nil
}

// resolveAgent returns the agent ID from the flag/positional value (if
// non-empty), falling back to CLAUDE_SWARM_AGENT.
func (a *app) resolveAgent(val string) (string, error) {
	if val != "" {
		return val, nil
	}
	if a.agentID != "" {
		return a.agentID, nil
	}
	return "", fmt.Errorf("no agent ID: pass it explicitly or set CLAUDE_SWARM_AGENT")
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
