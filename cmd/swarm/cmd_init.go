package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clauded/swarm/pkg/coorddoc"
)

const (
	agentsBeginMarker = "<!-- BEGIN CLAUDE SWARM INTEGRATION -->"
	agentsEndMarker   = "<!-- END CLAUDE SWARM INTEGRATION -->"
)

const agentsSection = `<!-- BEGIN CLAUDE SWARM INTEGRATION -->
## Multi-Agent Coordination with swarm

This project uses **swarm** for coordinating concurrent AI coding assistants
running in separate tmux panes.

**Quick reference:**
- ` + "`swarm discover-agents`" + `        — scan tmux for other assistants
- ` + "`swarm list-agents`" + `            — show who's known and alive
- ` + "`swarm acquire-file-lock <path> <agent>`" + ` — claim exclusive access before editing
- ` + "`swarm release-file-lock <path> <agent>`" + ` — release when done
- ` + "`swarm send-message <from> <to> <type> <msg>`" + ` — message another agent
- ` + "`swarm check-messages`" + `         — read messages addressed to you

**Environment:** ` + "`export CLAUDE_SWARM_AGENT=<your-id>`" + `
<!-- END CLAUDE SWARM INTEGRATION -->
`

// cmdInit runs before any Coordinator is built, since it's what creates
// the .agent_locks marker the project resolver looks for.
func cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	agent := flags.String("agent", "", "agent ID to print the export hint for")
	agentsFile := flags.String("agents-md", "AGENTS.md", "path to AGENTS.md")
	skipAgents := flags.Bool("skip-agents-md", false, "don't touch AGENTS.md")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	root, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarm: init: %v\n", err)
		return 1
	}

	lockDir := filepath.Join(root, ".agent_locks")
	if err := os.MkdirAll(lockDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "swarm: init: %v\n", err)
		return 1
	}
	fmt.Printf("initialized %s\n", lockDir)

	docPath := filepath.Join(root, "COORDINATION.md")
	if _, err := os.Stat(docPath); os.IsNotExist(err) {
		seed := coorddoc.Document{Sections: []coorddoc.Section{
			{Heading: "Sprint Goals", Body: ""},
			{Heading: "Current Work", Body: ""},
			{Heading: "Blocked Items", Body: ""},
			{Heading: "Code Review Queue", Body: ""},
			{Heading: "Decisions", Body: ""},
		}}
		if err := os.WriteFile(docPath, []byte(seed.Render()), 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "swarm: init: %v\n", err)
			return 1
		}
		fmt.Printf("seeded %s\n", docPath)
	}

	if !*skipAgents {
		if err := injectAgentsSection(*agentsFile); err != nil {
			fmt.Fprintf(os.Stderr, "swarm: AGENTS.md: %v\n", err)
		}
	}

	fmt.Println()
	fmt.Println("next steps:")
	if *agent != "" {
		fmt.Printf("  export CLAUDE_SWARM_AGENT=%s\n", *agent)
	} else {
		fmt.Println("  export CLAUDE_SWARM_AGENT=<your-id>")
	}
	fmt.Println("  swarm discover-agents")
	fmt.Println("  swarm whoami")

	return 0
}

// injectAgentsSection creates or updates AGENTS.md with the swarm
// section. Uses HTML markers for idempotent updates.
func injectAgentsSection(path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		newContent := "# Agent Instructions\n\n" + agentsSection
		if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		fmt.Printf("created %s with swarm section\n", path)
		return nil
	} else if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	text := string(content)

	if strings.Contains(text, agentsBeginMarker) {
		start := strings.Index(text, agentsBeginMarker)
		end := strings.Index(text, agentsEndMarker)
		if start >= 0 && end >= 0 {
			endOfMarker := end + len(agentsEndMarker)
			if nl := strings.Index(text[endOfMarker:], "\n"); nl >= 0 {
				endOfMarker += nl + 1
			}
			newContent := text[:start] + agentsSection + text[endOfMarker:]
			if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
				return fmt.Errorf("update %s: %w", path, err)
			}
			fmt.Printf("updated swarm section in %s\n", path)
			return nil
		}
	}

	newContent := text
	if !strings.HasSuffix(newContent, "\n") {
		newContent += "\n"
	}
	newContent += "\n" + agentsSection
	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	fmt.Printf("added swarm section to %s\n", path)
	return nil
}
