// Package registry maintains the single-file agent discovery/liveness
// registry (ACTIVE_AGENTS.json): the set of assistant processes found
// running in tmux panes, their status, and when each was last seen.
//
// The registry file is rewritten in full on every Refresh — there is no
// incremental diff format — so a plain atomic write-temp-then-rename is
// enough to keep readers from ever observing a partial file; the last
// writer in a race simply wins, which is acceptable because Refresh
// always recomputes from a fresh tmux scan rather than patching stale
// state.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/renameio/v2"

	"github.com/clauded/swarm/pkg/clock"
)

// Status is an agent's liveness bucket.
type Status string

const (
	StatusActive Status = "active"
	StatusStale  Status = "stale"
	StatusDead   Status = "dead"
)

const (
	// DefaultStaleThreshold is how long since LastSeen before an agent is
	// considered stale.
	DefaultStaleThreshold = 2 * time.Minute
	registryFileMode      = 0o600
)

// Agent is one discovered assistant process.
type Agent struct {
	ID        string    `json:"id"`
	PaneID    string    `json:"pane_id"`
	PaneIndex int       `json:"pane_index"`
	PID       int       `json:"pid"`
	Session   string    `json:"session"`
	Window    int       `json:"window"`
	Status    Status    `json:"status"`
	LastSeen  time.Time `json:"last_seen"`
	CWD       string    `json:"cwd"`
}

// Discovered is the raw input Refresh takes from a fresh tmux/process
// scan — everything but the registry-owned fields (ID, Status).
type Discovered struct {
	PaneID    string
	PaneIndex int
	PID       int
	Session   string
	Window    int
	CWD       string
}

// File is the on-disk JSON document.
type File struct {
	Session   string    `json:"session"`
	UpdatedAt time.Time `json:"updated_at"`
	Agents    []Agent   `json:"agents"`
}

// Registry manages ACTIVE_AGENTS.json at Path.
type Registry struct {
	Path           string
	Clock          clock.Clock
	StaleThreshold time.Duration
	DeadGrace      time.Duration // grace from stale to dead, and again from dead to removal
}

// New returns a Registry with defaults filled in. DeadGrace defaults to
// one additional StaleThreshold, per the spec's suggested grace period.
func New(path string, c clock.Clock) *Registry {
	return &Registry{
		Path:           path,
		Clock:          c,
		StaleThreshold: DefaultStaleThreshold,
		DeadGrace:      DefaultStaleThreshold,
	}
}

func (r *Registry) staleThreshold() time.Duration {
	if r.StaleThreshold <= 0 {
		return DefaultStaleThreshold
	}
	return r.StaleThreshold
}

func (r *Registry) deadGrace() time.Duration {
	if r.DeadGrace <= 0 {
		return r.staleThreshold()
	}
	return r.DeadGrace
}

func (r *Registry) load() (File, error) {
	b, err := os.ReadFile(r.Path)
	if os.IsNotExist(err) {
		return File{}, nil
	}
	if err != nil {
		return File{}, fmt.Errorf("registry: read %s: %w", r.Path, err)
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("registry: parse %s: %w", r.Path, err)
	}
	return f, nil
}

func (r *Registry) save(f File) error {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}
	if err := renameio.WriteFile(r.Path, b, registryFileMode); err != nil {
		return fmt.Errorf("registry: write %s: %w", r.Path, err)
	}
	return nil
}

// Refresh merges a fresh scan of discovered panes into the registry:
// existing agents (matched by PaneID) get their LastSeen bumped and
// status recomputed; new panes are assigned dense ids; agents not
// present in this scan age through active -> stale (unseen for longer
// than StaleThreshold) -> dead (longer than StaleThreshold+DeadGrace) and
// are removed once they have been dead for longer than DeadGrace.
func (r *Registry) Refresh(session string, discovered []Discovered) (File, error) {
	now := r.Clock.Now()
	existing, err := r.load()
	if err != nil {
		return File{}, err
	}

	byPane := make(map[string]Agent, len(existing.Agents))
	for _, a := range existing.Agents {
		byPane[a.PaneID] = a
	}

	seen := make(map[string]bool, len(discovered))
	var merged []Agent
	for _, d := range discovered {
		seen[d.PaneID] = true
		if prior, ok := byPane[d.PaneID]; ok {
			prior.PaneIndex = d.PaneIndex
			prior.PID = d.PID
			prior.Session = d.Session
			prior.Window = d.Window
			prior.CWD = d.CWD
			prior.LastSeen = now
			prior.Status = StatusActive
			merged = append(merged, prior)
			continue
		}
		merged = append(merged, Agent{
			PaneID:    d.PaneID,
			PaneIndex: d.PaneIndex,
			PID:       d.PID,
			Session:   d.Session,
			Window:    d.Window,
			CWD:       d.CWD,
			LastSeen:  now,
			Status:    StatusActive,
		})
	}

	// Carry forward agents not seen this scan, aging their status.
	for _, a := range existing.Agents {
		if seen[a.PaneID] {
			continue
		}
		age := now.Sub(a.LastSeen)
		switch {
		case age > r.staleThreshold()+2*r.deadGrace():
			continue // drop: dead for longer than DeadGrace
		case age > r.staleThreshold()+r.deadGrace():
			a.Status = StatusDead
		case age > r.staleThreshold():
			a.Status = StatusStale
		default:
			a.Status = StatusActive
		}
		merged = append(merged, a)
	}

	assignDenseIDs(merged)

	f := File{Session: session, UpdatedAt: now, Agents: merged}
	if err := r.save(f); err != nil {
		return File{}, err
	}
	return f, nil
}

// assignDenseIDs gives every agent lacking an id the smallest unused
// non-negative integer id (starting at agent-0), and leaves existing ids
// untouched, keeping ids stable across refreshes while remaining dense
// over time as agents are dropped.
func assignDenseIDs(agents []Agent) {
	used := make(map[string]bool)
	for _, a := range agents {
		if a.ID != "" {
			used[a.ID] = true
		}
	}
	next := 0
	nextID := func() string {
		for {
			id := fmt.Sprintf("agent-%d", next)
			next++
			if !used[id] {
				used[id] = true
				return id
			}
		}
	}
	for i := range agents {
		if agents[i].ID == "" {
			agents[i].ID = nextID()
		}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
}

// List returns every agent currently on record.
func (r *Registry) List() ([]Agent, error) {
	f, err := r.load()
	if err != nil {
		return nil, err
	}
	return f.Agents, nil
}

// ListActive returns only agents with status "active".
func (r *Registry) ListActive() ([]Agent, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	var active []Agent
	for _, a := range all {
		if a.Status == StatusActive {
			active = append(active, a)
		}
	}
	return active, nil
}

// Get returns the agent with the given id.
func (r *Registry) Get(id string) (Agent, bool, error) {
	all, err := r.List()
	if err != nil {
		return Agent{}, false, err
	}
	for _, a := range all {
		if a.ID == id {
			return a, true, nil
		}
	}
	return Agent{}, false, nil
}

// CountByStatus returns how many agents are in each status bucket.
func (r *Registry) CountByStatus() (map[Status]int, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	counts := make(map[Status]int)
	for _, a := range all {
		counts[a.Status]++
	}
	return counts, nil
}
