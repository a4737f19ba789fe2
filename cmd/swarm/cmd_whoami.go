package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
)

// cmdWhoami looks for the owning assistant at this process's parent PID
// (the parent and its descendants; ancestors further up are not
// searched), matching it against the registry by PID if possible, and
// otherwise falling back to CLAUDE_SWARM_AGENT.
func (a *app) cmdWhoami(args []string) int {
	flags := flag.NewFlagSet("whoami", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pid := os.Getppid()
	match, err := a.coord.Procs.FindAssistant(ctx, int32(pid))
	if err != nil || match == nil {
		if a.agentID != "" {
			if *jsonOut {
				printJSON(map[string]interface{}{"agent_id": a.agentID, "source": "env"})
			} else {
				fmt.Println(a.agentID)
			}
			return 0
		}
		fmt.Fprintln(os.Stderr, "swarm: whoami: could not identify this process and CLAUDE_SWARM_AGENT is unset")
		return 1
	}

	agents, err := a.coord.Registry.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: whoami: %v\n", err)
		return 1
	}
	for _, ag := range agents {
		if ag.PID == int(match.PID) {
			if *jsonOut {
				printJSON(map[string]interface{}{"agent_id": ag.ID, "pid": ag.PID, "source": "registry"})
			} else {
				fmt.Println(ag.ID)
			}
			return 0
		}
	}

	if a.agentID != "" {
		if *jsonOut {
			printJSON(map[string]interface{}{"agent_id": a.agentID, "pid": match.PID, "source": "env"})
		} else {
			fmt.Println(a.agentID)
		}
		return 0
	}

	fmt.Fprintln(os.Stderr, "swarm: whoami: process found but not yet registered; run discover-agents first")
	return 1
}
