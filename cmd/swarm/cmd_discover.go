package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/clauded/swarm/pkg/registry"
)

func (a *app) cmdDiscoverAgents(args []string) int {
	flags := flag.NewFlagSet("discover-agents", flag.ContinueOnError)
	session := flags.String("session", "", "tmux session to scan (default: all)")
	jsonOut := flags.Bool("json", false, "JSON output")
	watch := flags.Bool("watch", false, "keep scanning on an interval instead of exiting")
	interval := flags.Duration("interval", 5*time.Second, "scan interval with --watch")
	staleThreshold := flags.Duration("stale-threshold", 0, "override the registry's stale threshold")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if *staleThreshold > 0 {
		a.coord.Registry.StaleThreshold = *staleThreshold
	}

	if !*watch {
		return a.discoverOnce(*session, *jsonOut)
	}

	for {
		if code := a.discoverOnce(*session, *jsonOut); code != 0 {
			return code
		}
		a.coord.Clock.Sleep(*interval)
	}
}

func (a *app) discoverOnce(session string, jsonOut bool) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.coord.Mux.HealthCheck(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "swarm: discover-agents: %v\n", err)
		return 1
	}

	panes, err := a.coord.Mux.ListPanes(ctx, session)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: discover-agents: %v\n", err)
		return 1
	}

	sessionName := session
	var discovered []registry.Discovered
	for _, p := range panes {
		if sessionName == "" {
			sessionName = p.SessionName
		}
		match, err := a.coord.Procs.FindAssistant(ctx, int32(p.PID))
		if err != nil || match == nil {
			continue
		}
		cwd := match.CWD
		if !match.CWDKnown {
			cwd = ""
		}
		discovered = append(discovered, registry.Discovered{
			PaneID:    p.PaneID,
			PaneIndex: p.PaneIndex,
			PID:       int(match.PID),
			Session:   p.SessionName,
			Window:    p.WindowIndex,
			CWD:       cwd,
		})
	}

	if sessionName == "" {
		// No named tmux session in scope; generate one instead of
		// colliding unrelated detached runs under "default".
		sessionName = "detached-" + uuid.NewString()
	}

	file, err := a.coord.Registry.Refresh(sessionName, discovered)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: discover-agents: %v\n", err)
		return 1
	}

	if jsonOut {
		printJSON(file)
	} else {
		fmt.Printf("session %s: %d agent(s) discovered\n", file.Session, len(file.Agents))
		for _, ag := range file.Agents {
			fmt.Printf("  %s  pid=%d  pane=%s  status=%s\n", ag.ID, ag.PID, ag.PaneID, ag.Status)
		}
	}
	return 0
}
