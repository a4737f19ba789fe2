package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/clauded/swarm/pkg/registry"
)

func (a *app) cmdListAgents(args []string) int {
	flags := flag.NewFlagSet("list-agents", flag.ContinueOnError)
	all := flags.Bool("all", false, "include stale/dead agents")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	var agents []registry.Agent
	var err error
	if *all {
		agents, err = a.coord.Registry.List()
	} else {
		agents, err = a.coord.Registry.ListActive()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: list-agents: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(agents)
		return 0
	}

	if len(agents) == 0 {
		fmt.Println("no agents known")
		return 0
	}
	for _, ag := range agents {
		fmt.Printf("%-10s pid=%-8d pane=%-8s status=%-6s last_seen=%s\n",
			ag.ID, ag.PID, ag.PaneID, ag.Status, ag.LastSeen.Format("15:04:05"))
	}
	return 0
}
