package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/clauded/swarm/pkg/envelope"
)

func (a *app) cmdBroadcastMessage(args []string) int {
	flags := flag.NewFlagSet("broadcast-message", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	verbose := flags.Bool("verbose", false, "print per-recipient delivery results")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	rest := flags.Args()
	if len(rest) < 3 {
		fmt.Fprintln(os.Stderr, "usage: swarm broadcast-message <sender> <type> <content> [--verbose] [--json]")
		return 1
	}
	sender, kind, content := rest[0], envelope.Kind(rest[1]), rest[2]

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	results, err := a.coord.Messaging.Broadcast(ctx, sender, kind, content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: broadcast-message: %v\n", err)
		return 1
	}

	failed := 0
	for _, r := range results {
		if !r.Delivered {
			failed++
		}
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"results": results, "delivered": len(results) - failed, "failed": failed})
	} else {
		fmt.Printf("broadcast from %s: %d delivered, %d failed\n", sender, len(results)-failed, failed)
		if *verbose {
			for _, r := range results {
				status := "ok"
				if !r.Delivered {
					status = fmt.Sprintf("FAILED (%v)", r.Error)
				}
				fmt.Printf("  %s: %s\n", r.RecipientID, status)
			}
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}
