// Command swarm is the claude-swarm CLI — discovery, messaging, and file
// locking for multiple AI coding assistants coordinating over a shared
// project directory.
package main

import (
	"fmt"
	"os"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Printf("swarm %s (commit %s, built %s)\n", version, commit, date)
		return
	case "init":
		os.Exit(cmdInit(os.Args[2:]))
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}

	switch os.Args[1] {
	case "whoami":
		os.Exit(a.cmdWhoami(os.Args[2:]))
	case "discover-agents", "discover":
		os.Exit(a.cmdDiscoverAgents(os.Args[2:]))
	case "list-agents", "agents":
		os.Exit(a.cmdListAgents(os.Args[2:]))
	case "send-message", "send":
		os.Exit(a.cmdSendMessage(os.Args[2:]))
	case "broadcast-message", "broadcast":
		os.Exit(a.cmdBroadcastMessage(os.Args[2:]))
	case "check-messages", "recv":
		os.Exit(a.cmdCheckMessages(os.Args[2:]))
	case "acquire-file-lock", "lock":
		os.Exit(a.cmdAcquireFileLock(os.Args[2:]))
	case "release-file-lock", "unlock":
		os.Exit(a.cmdReleaseFileLock(os.Args[2:]))
	case "who-has-lock":
		os.Exit(a.cmdWhoHasLock(os.Args[2:]))
	case "list-all-locks", "locks":
		os.Exit(a.cmdListAllLocks(os.Args[2:]))
	case "cleanup-stale-locks":
		os.Exit(a.cmdCleanupStaleLocks(os.Args[2:]))
	case "ack-daemon":
		os.Exit(a.cmdAckDaemon(os.Args[2:]))
	case "sync-doc":
		os.Exit(a.cmdSyncDoc(os.Args[2:]))

	default:
		fmt.Fprintf(os.Stderr, "swarm: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'swarm --help' for usage.")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`swarm — coordination for concurrent AI coding assistants

Each assistant runs in its own tmux pane. swarm discovers them, lets
them exchange messages by injecting keystrokes into each other's panes,
and arbitrates exclusive file locks so two agents don't edit the same
path at once.

Usage:
  swarm <command> [flags]

Setup:
  init [--agent ID]            Initialize .agent_locks/, COORDINATION.md and AGENTS.md
  whoami                       Print this process's resolved agent ID

Discovery:
  discover-agents [--session S] Scan tmux panes for assistant processes
  list-agents [--all]          List known agents (active by default)

Messaging:
  send-message <from> <to> <type> <msg>   Send a message to one agent
  broadcast-message <from> <type> <msg>   Send a message to every active agent
  check-messages [--limit N]   Show recent messages addressed to this agent

Locking:
  acquire-file-lock <path> <agent> [reason] [--timeout N]   Acquire an exclusive lock
  release-file-lock <path> <agent>                          Release a lock this agent holds
  who-has-lock <path>                                       Show the current holder, if any
  list-all-locks                                             List every held lock
  cleanup-stale-locks                                        Reclaim locks past their timeout

  sync-doc current-work <agent> <task> [since]   Add a Current Work row
  sync-doc blocked <item>                        Add a Blocked Items bullet
  sync-doc review <item>                         Add a Code Review Queue bullet
  sync-doc decision <item>                       Add a Decisions bullet
  ack-daemon                                     Run the acknowledgement retry/escalation loop

Environment:
  CLAUDE_SWARM_ROOT    Project root override (default: walk up for .agent_locks/.git)
  CLAUDE_SWARM_AGENT   Default agent ID (avoids passing --agent every time)

All commands except init and ack-daemon support --json for machine-readable output.
check-messages and sync-doc support --agent <id> to override CLAUDE_SWARM_AGENT.

Exit codes:
  0  success
  1  error, including lock denied / conflict
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "swarm: "+format+"\n", args...)
	os.Exit(1)
}
