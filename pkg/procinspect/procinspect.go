// Package procinspect classifies the process tree rooted at a tmux pane's
// PID to find which descendant, if any, is a known AI assistant process,
// and to discover that process's current working directory.
//
// CWD discovery is platform-dependent: gopsutil reads /proc/<pid>/cwd on
// Linux and the process's open file descriptors on macOS, returning an
// error everywhere else. Callers decide, via the strict flag, whether a
// process whose CWD can't be determined is trusted or excluded.
package procinspect

import (
	"context"
	"regexp"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const defaultMaxDepth = 6

// defaultInspectTimeout bounds a single FindAssistant call, matching the
// bounded-subprocess-call discipline used for every tmux invocation: a
// hung gopsutil read of one pane's process tree must not stall the whole
// discover-agents scan.
const defaultInspectTimeout = 2 * time.Second

// DefaultAssistantPatterns matches the common AI coding assistant CLI
// process names. Callers may supply their own via Inspector.Patterns.
var DefaultAssistantPatterns = []string{
	`(?i)^claude$`,
	`(?i)claude-code`,
	`(?i)^cursor-agent$`,
	`(?i)^codex$`,
	`(?i)^aider$`,
}

// Match describes one assistant process found in a pane's descendant
// tree.
type Match struct {
	PID     int32
	Name    string
	Cmdline string
	CWD     string
	CWDKnown bool
}

// ProcessLocator is the capability callers depend on, so tests can fake
// process trees instead of needing real OS processes.
type ProcessLocator interface {
	FindAssistant(ctx context.Context, rootPID int32) (*Match, error)
}

// Inspector is the production ProcessLocator, backed by gopsutil.
type Inspector struct {
	Patterns []string
	MaxDepth int
	// Strict, when true, rejects a process whose CWD could not be
	// determined instead of returning it with CWDKnown=false.
	Strict bool
	// Timeout bounds each FindAssistant call; zero means
	// defaultInspectTimeout.
	Timeout time.Duration

	compiled []*regexp.Regexp
}

func (i *Inspector) timeout() time.Duration {
	if i.Timeout <= 0 {
		return defaultInspectTimeout
	}
	return i.Timeout
}

func (i *Inspector) patterns() []*regexp.Regexp {
	if i.compiled != nil {
		return i.compiled
	}
	pats := i.Patterns
	if len(pats) == 0 {
		pats = DefaultAssistantPatterns
	}
	for _, p := range pats {
		if re, err := regexp.Compile(p); err == nil {
			i.compiled = append(i.compiled, re)
		}
	}
	return i.compiled
}

func (i *Inspector) maxDepth() int {
	if i.MaxDepth <= 0 {
		return defaultMaxDepth
	}
	return i.MaxDepth
}

// FindAssistant does a depth-bounded breadth-first search of rootPID's
// descendants, returning the first process whose name matches a
// configured assistant pattern.
func (i *Inspector) FindAssistant(ctx context.Context, rootPID int32) (*Match, error) {
	ctx, cancel := withTimeout(ctx, i.timeout())
	defer cancel()

	root, err := process.NewProcessWithContext(ctx, rootPID)
	if err != nil {
		return nil, nil
	}

	type queued struct {
		proc  *process.Process
		depth int
	}
	queue := []queued{{root, 0}}
	visited := map[int32]bool{rootPID: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		name, _ := cur.proc.NameWithContext(ctx)
		if i.matches(name) {
			return i.toMatch(ctx, cur.proc, name)
		}

		if cur.depth >= i.maxDepth() {
			continue
		}
		children, err := cur.proc.ChildrenWithContext(ctx)
		if err != nil {
			continue
		}
		for _, child := range children {
			if visited[child.Pid] {
				continue
			}
			visited[child.Pid] = true
			queue = append(queue, queued{child, cur.depth + 1})
		}
	}
	return nil, nil
}

func (i *Inspector) matches(name string) bool {
	for _, re := range i.patterns() {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (i *Inspector) toMatch(ctx context.Context, p *process.Process, name string) (*Match, error) {
	cmdline, _ := p.CmdlineWithContext(ctx)
	cwd, cwdErr := p.CwdWithContext(ctx)

	m := &Match{
		PID:      p.Pid,
		Name:     name,
		Cmdline:  cmdline,
		CWD:      cwd,
		CWDKnown: cwdErr == nil,
	}
	if i.Strict && !m.CWDKnown {
		return nil, nil
	}
	return m, nil
}

var _ ProcessLocator = (*Inspector)(nil)

// withTimeout bounds a single inspection call, matching the bounded-
// subprocess-call discipline used for every tmux invocation.
func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
