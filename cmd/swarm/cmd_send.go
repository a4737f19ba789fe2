package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/clauded/swarm/pkg/envelope"
)

func (a *app) cmdSendMessage(args []string) int {
	flags := flag.NewFlagSet("send-message", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	requireAck := flags.Bool("require-ack", false, "track this message until the recipient ACKs it")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	rest := flags.Args()
	if len(rest) < 4 {
		fmt.Fprintln(os.Stderr, "usage: swarm send-message <sender> <recipient> <type> <content> [--json]")
		return 1
	}
	sender, recipient, kind, content := rest[0], rest[1], envelope.Kind(rest[2]), rest[3]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg, err := a.coord.Messaging.Send(ctx, sender, recipient, kind, content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: send-message: %v\n", err)
		return 1
	}

	if *requireAck {
		if err := a.coord.Ack.Track(msg, "retry-then-broadcast"); err != nil {
			fmt.Fprintf(os.Stderr, "swarm: send-message: ack: %v\n", err)
		}
	}

	if *jsonOut {
		printJSON(msg)
	} else {
		fmt.Printf("sent %s -> %s [%s] (%s)\n", sender, recipient, kind, msg.MessageID)
	}
	return 0
}
