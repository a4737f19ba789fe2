package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/clauded/swarm/pkg/validator"
)

func (a *app) cmdAcquireFileLock(args []string) int {
	flags := flag.NewFlagSet("acquire-file-lock", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	timeoutSeconds := flags.Int("timeout", 0, "seconds to wait for a conflicting lock to free (0 = fail immediately)")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	rest := flags.Args()
	if len(rest) < 2 {
		fmt.Fprintln(os.Stderr, "usage: swarm acquire-file-lock <path> <agent> [reason] [--timeout N] [--json]")
		return 1
	}
	path, agentID := rest[0], rest[1]
	reason := ""
	if len(rest) > 2 {
		reason = rest[2]
	}

	if *timeoutSeconds > 0 {
		if err := validator.ValidateTimeout(*timeoutSeconds); err != nil {
			fmt.Fprintf(os.Stderr, "swarm: acquire-file-lock: %v\n", err)
			return 1
		}
	}

	lock, conflict, err := a.coord.Locks.Acquire(path, agentID, reason, os.Getpid(), time.Duration(*timeoutSeconds)*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: acquire-file-lock: %v\n", err)
		return 1
	}

	if conflict != nil {
		if *jsonOut {
			printJSON(map[string]interface{}{"granted": false, "conflict": conflict})
		} else {
			fmt.Fprintf(os.Stderr, "DENIED: %s holds %s since %s (%s)\n",
				conflict.AgentID, path, conflict.LockedAt.Format("15:04:05"), conflict.Reason)
		}
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"granted": true, "lock": lock})
	} else {
		fmt.Printf("locked %s for %s\n", path, agentID)
	}
	return 0
}

func (a *app) cmdReleaseFileLock(args []string) int {
	flags := flag.NewFlagSet("release-file-lock", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	rest := flags.Args()
	if len(rest) < 2 {
		fmt.Fprintln(os.Stderr, "usage: swarm release-file-lock <path> <agent> [--json]")
		return 1
	}
	path, agentID := rest[0], rest[1]

	if err := a.coord.Locks.Release(path, agentID); err != nil {
		fmt.Fprintf(os.Stderr, "swarm: release-file-lock: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"released": true, "path": path})
	} else {
		fmt.Printf("unlocked %s\n", path)
	}
	return 0
}

func (a *app) cmdWhoHasLock(args []string) int {
	flags := flag.NewFlagSet("who-has-lock", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: swarm who-has-lock <path> [--json]")
		return 1
	}
	path := flags.Arg(0)

	lock, err := a.coord.Locks.WhoHas(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: who-has-lock: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"lock": lock})
		return 0
	}
	if lock == nil {
		fmt.Printf("%s is unlocked\n", path)
		return 0
	}
	fmt.Printf("%s held by %s since %s\n", path, lock.AgentID, lock.LockedAt.Format("15:04:05"))
	return 0
}

func (a *app) cmdListAllLocks(args []string) int {
	flags := flag.NewFlagSet("list-all-locks", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	locks, err := a.coord.Locks.ListAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: list-all-locks: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(locks)
		return 0
	}
	if len(locks) == 0 {
		fmt.Println("no locks held")
		return 0
	}
	for _, l := range locks {
		fmt.Printf("%s  held by %s since %s  (%s)\n", l.FilePath, l.AgentID, l.LockedAt.Format("15:04:05"), l.Reason)
	}
	return 0
}

func (a *app) cmdCleanupStaleLocks(args []string) int {
	flags := flag.NewFlagSet("cleanup-stale-locks", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	reclaimed, err := a.coord.Locks.CleanupStale()
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: cleanup-stale-locks: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(reclaimed)
		return 0
	}
	fmt.Printf("reclaimed %d stale lock(s)\n", len(reclaimed))
	for _, l := range reclaimed {
		fmt.Printf("  %s (was held by %s)\n", l.FilePath, l.AgentID)
	}
	return 0
}
