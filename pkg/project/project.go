// Package project resolves which directory on disk a swarm invocation is
// coordinating for, by walking up from the working directory looking for
// a marker (a ".git" directory or an existing ".agent_locks" directory).
// Resolution is stat-only: it never creates anything.
package project

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	lockDirMarker = ".agent_locks"
	gitMarker     = ".git"
	// EnvRoot overrides discovery entirely when set.
	EnvRoot = "CLAUDE_SWARM_ROOT"
)

// Resolve returns the absolute project root for start (usually the
// process's working directory). It first honors EnvRoot if set, then
// walks upward from start looking for an existing .agent_locks directory
// (an already-initialized swarm project) or a .git directory, falling
// back to start itself if neither is found. Resolution is idempotent:
// calling Resolve again from the returned root returns the same root.
func Resolve(start string) (string, error) {
	if v := os.Getenv(EnvRoot); v != "" {
		abs, err := filepath.Abs(v)
		if err != nil {
			return "", fmt.Errorf("project: resolve %s: %w", EnvRoot, err)
		}
		return abs, nil
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("project: resolve start dir: %w", err)
	}

	for {
		if hasMarker(dir, lockDirMarker) || hasMarker(dir, gitMarker) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("project: resolve start dir: %w", err)
	}
	return abs, nil
}

func hasMarker(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}

// LockDir returns the path to the lock directory under root.
func LockDir(root string) string { return filepath.Join(root, lockDirMarker) }

// RegistryPath returns the path to the agent registry file under root.
func RegistryPath(root string) string { return filepath.Join(root, "ACTIVE_AGENTS.json") }

// MessageLogPath returns the path to the append-only message log under
// root.
func MessageLogPath(root string) string { return filepath.Join(root, "agent_messages.log") }

// CoordinationDocPath returns the path to the shared coordination document
// under root.
func CoordinationDocPath(root string) string { return filepath.Join(root, "COORDINATION.md") }
