package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/clauded/swarm/pkg/coorddoc"
)

// docLockTimeout bounds how long sync-doc waits for COORDINATION.md's
// lock before giving up, per spec.md §4.8's "short (≤ 10s)" rule.
const docLockTimeout = 10 * time.Second

// cmdSyncDoc updates one section of COORDINATION.md under the
// corresponding file lock, per spec.md's rule that the document's sole
// mutator is whoever currently holds its lock. Each section kind has a
// typed subcommand backed by pkg/coorddoc's accessors, so callers never
// hand-assemble markdown themselves.
func (a *app) cmdSyncDoc(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: swarm sync-doc <current-work|blocked|review|decision> ...")
		return 1
	}
	kind, rest := args[0], args[1:]

	flags := flag.NewFlagSet("sync-doc "+kind, flag.ContinueOnError)
	agent := flags.String("agent", "", "agent making the update")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(rest); err != nil {
		return 1
	}
	rest = flags.Args()

	agentID, err := a.resolveAgent(*agent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: %v\n", err)
		return 1
	}

	mutate, err := a.syncDocMutator(kind, rest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: sync-doc: %v\n", err)
		return 1
	}

	const docPath = "COORDINATION.md"
	lock, conflict, err := a.coord.Locks.Acquire(docPath, agentID, "sync-doc", os.Getpid(), docLockTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: sync-doc: %v\n", err)
		return 1
	}
	if conflict != nil {
		fmt.Fprintf(os.Stderr, "swarm: sync-doc: %s holds %s, try again later\n", conflict.AgentID, docPath)
		return 1
	}
	defer a.coord.Locks.Release(docPath, agentID)
	_ = lock

	if err := mutate(); err != nil {
		fmt.Fprintf(os.Stderr, "swarm: sync-doc: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"updated": kind})
	} else {
		fmt.Printf("updated %s\n", kind)
	}
	return 0
}

// syncDocMutator resolves the section-specific mutation to run, so the
// caller never needs to manipulate COORDINATION.md's markdown by hand.
func (a *app) syncDocMutator(kind string, rest []string) (func() error, error) {
	switch kind {
	case "current-work":
		if len(rest) < 2 {
			return nil, fmt.Errorf("usage: sync-doc current-work <agent> <task> [since]")
		}
		row := coorddoc.CurrentWorkRow{Agent: rest[0], Task: rest[1]}
		if len(rest) > 2 {
			row.Since = rest[2]
		} else {
			row.Since = a.coord.Clock.Now().Format("15:04:05")
		}
		return func() error { return a.coord.CoordDoc.AppendCurrentWorkRow(row) }, nil
	case "blocked":
		if len(rest) < 1 {
			return nil, fmt.Errorf("usage: sync-doc blocked <item>")
		}
		item := rest[0]
		return func() error { return a.coord.CoordDoc.AppendBlockedItem(item) }, nil
	case "review":
		if len(rest) < 1 {
			return nil, fmt.Errorf("usage: sync-doc review <item>")
		}
		item := rest[0]
		return func() error { return a.coord.CoordDoc.AppendReviewQueueEntry(item) }, nil
	case "decision":
		if len(rest) < 1 {
			return nil, fmt.Errorf("usage: sync-doc decision <item>")
		}
		item := rest[0]
		return func() error { return a.coord.CoordDoc.AppendDecision(item) }, nil
	default:
		return nil, fmt.Errorf("unknown section kind %q (want current-work, blocked, review, or decision)", kind)
	}
}
