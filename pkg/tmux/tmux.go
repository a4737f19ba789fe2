// Package tmux drives the tmux multiplexer as a subprocess: enumerating
// panes for agent discovery and injecting keystrokes for message delivery.
// Every call is array-form exec.Command (no shell interpolation) and runs
// under a bounded context timeout.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"

	"github.com/clauded/swarm/pkg/swarmerr"
	"github.com/clauded/swarm/pkg/validator"
)

const defaultTimeout = 5 * time.Second

// Pane is one tmux pane as reported by list-panes.
type Pane struct {
	SessionName string
	WindowIndex int
	PaneIndex   int
	PaneID      string
	PID         int
	CurrentPath string
}

// Multiplexer is the capability every caller that needs tmux depends on.
// It is deliberately narrow so fakes are trivial to write for tests.
type Multiplexer interface {
	ListPanes(ctx context.Context, session string) ([]Pane, error)
	SendKeys(ctx context.Context, paneID, text string) error
	PaneExists(ctx context.Context, paneID string) (bool, error)
	HealthCheck(ctx context.Context) error
}

// Driver is the production Multiplexer, backed by the tmux binary.
type Driver struct {
	// Bin overrides the tmux binary name/path; empty means "tmux".
	Bin string
	// Timeout bounds every subprocess call; zero means defaultTimeout.
	Timeout time.Duration
}

func (d Driver) bin() string {
	if d.Bin == "" {
		return "tmux"
	}
	return d.Bin
}

func (d Driver) timeout() time.Duration {
	if d.Timeout == 0 {
		return defaultTimeout
	}
	return d.Timeout
}

func (d Driver) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, d.bin(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &swarmerr.MultiplexerTimeout{Op: strings.Join(args, " ")}
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &swarmerr.MultiplexerMissing{Detail: err.Error()}
		}
		msg := stderr.String()
		if isPermissionDenied(msg) {
			return nil, &swarmerr.MultiplexerPermission{Detail: msg}
		}
		if strings.Contains(msg, "no server running") || strings.Contains(msg, "error connecting to") {
			return nil, &swarmerr.MultiplexerMissing{Detail: strings.TrimSpace(msg)}
		}
		return nil, fmt.Errorf("tmux %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(msg))
	}
	return stdout.Bytes(), nil
}

func isPermissionDenied(stderr string) bool {
	return strings.Contains(stderr, "permission denied") || strings.Contains(stderr, "not owned by")
}

const paneFormat = `#{session_name}|#{window_index}|#{pane_index}|#{pane_id}|#{pane_pid}|#{pane_current_path}`

// ListPanes enumerates every pane in session (or every session if session
// is empty).
func (d Driver) ListPanes(ctx context.Context, session string) ([]Pane, error) {
	args := []string{"list-panes", "-F", paneFormat}
	if session != "" {
		args = append(args, "-t", session)
	} else {
		args = append(args, "-a")
	}

	out, err := d.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var panes []Pane
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "|", 6)
		if len(fields) != 6 {
			continue
		}
		winIdx, _ := strconv.Atoi(fields[1])
		paneIdx, _ := strconv.Atoi(fields[2])
		pid, _ := strconv.Atoi(fields[4])
		panes = append(panes, Pane{
			SessionName: fields[0],
			WindowIndex: winIdx,
			PaneIndex:   paneIdx,
			PaneID:      fields[3],
			PID:         pid,
			CurrentPath: fields[5],
		})
	}
	return panes, nil
}

// SendKeys delivers text to paneID as literal keystrokes followed by a
// carriage return, using two separate tmux invocations. A literal "\n"
// sent via -l does not submit most assistant REPLs; only the named Enter
// key does. The payload is shell-escaped before injection: the
// destination pane may be a raw shell rather than an assistant prompt,
// and literal keystrokes are indistinguishable from typed input to
// whatever is reading them.
func (d Driver) SendKeys(ctx context.Context, paneID, text string) error {
	if err := validator.ValidatePaneID(paneID); err != nil {
		return &swarmerr.ValidationError{Field: "pane_id", Reason: err.Error()}
	}
	safe := shellescape.Quote(text)
	if _, err := d.run(ctx, "send-keys", "-t", paneID, "-l", "--", safe); err != nil {
		return err
	}
	if _, err := d.run(ctx, "send-keys", "-t", paneID, "Enter"); err != nil {
		return err
	}
	return nil
}

// PaneExists reports whether paneID still resolves to a live pane.
func (d Driver) PaneExists(ctx context.Context, paneID string) (bool, error) {
	if err := validator.ValidatePaneID(paneID); err != nil {
		return false, &swarmerr.ValidationError{Field: "pane_id", Reason: err.Error()}
	}
	_, err := d.run(ctx, "list-panes", "-t", paneID)
	if err != nil {
		var missing *swarmerr.MultiplexerMissing
		if errors.As(err, &missing) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// HealthCheck reports whether the tmux server is reachable at all.
func (d Driver) HealthCheck(ctx context.Context) error {
	_, err := d.run(ctx, "list-sessions")
	return err
}

var _ Multiplexer = Driver{}
