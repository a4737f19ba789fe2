package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdCheckMessages(args []string) int {
	flags := flag.NewFlagSet("check-messages", flag.ContinueOnError)
	limit := flags.Int("limit", 20, "max messages to show")
	jsonOut := flags.Bool("json", false, "JSON output")
	agent := flags.String("agent", "", "recipient agent ID")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	agentID, err := a.resolveAgent(*agent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: %v\n", err)
		return 1
	}

	msgs, err := a.coord.MessageLog.ForRecipient(agentID, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: check-messages: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(msgs)
		return 0
	}

	if len(msgs) == 0 {
		fmt.Println("no messages")
		return 0
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s -> %s (%s): %s\n",
			m.Timestamp.Format("15:04:05"), m.SenderID, m.RecipientID, m.Type, m.Content)
	}
	return 0
}
