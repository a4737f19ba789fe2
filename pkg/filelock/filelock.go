// Package filelock implements distributed file locking in a project-local
// directory: one JSON file per lock under .agent_locks/, acquired via
// exclusive file creation and refreshed via atomic rename-only updates so
// a lock file is never observably absent between refreshes.
//
// Locks may name a literal path or a glob pattern (doublestar syntax);
// conflict detection between two locks considers literal-vs-literal
// (equality), literal-vs-glob (pattern match), and glob-vs-glob (a
// conservative segment-overlap check — see globsOverlap).
package filelock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/renameio/v2"

	"github.com/clauded/swarm/pkg/clock"
	"github.com/clauded/swarm/pkg/swarmerr"
	"github.com/clauded/swarm/pkg/validator"
)

const (
	// DefaultStaleTimeout is how long a lock may go unrefreshed before it
	// is eligible for reclamation by another agent.
	DefaultStaleTimeout = 300 * time.Second
	lockFileMode        = 0o600
	lockDirMode         = 0o700
)

// Lock is one held file/glob lock.
type Lock struct {
	FilePath string    `json:"filepath"`
	IsGlob   bool      `json:"is_glob"`
	AgentID  string    `json:"agent_id"`
	LockedAt time.Time `json:"locked_at"`
	Reason   string    `json:"reason,omitempty"`
	PID      int       `json:"pid,omitempty"`
}

// Manager operates on the lock directory at Dir.
type Manager struct {
	Dir          string
	Clock        clock.Clock
	StaleTimeout time.Duration
}

// New returns a Manager with defaults filled in.
func New(dir string, c clock.Clock) *Manager {
	return &Manager{Dir: dir, Clock: c, StaleTimeout: DefaultStaleTimeout}
}

func (m *Manager) staleTimeout() time.Duration {
	if m.StaleTimeout <= 0 {
		return DefaultStaleTimeout
	}
	return m.StaleTimeout
}

func (m *Manager) ensureDir() error {
	if err := os.MkdirAll(m.Dir, lockDirMode); err != nil {
		return &swarmerr.LockIOError{Path: m.Dir, Err: err}
	}
	return nil
}

// lockFilePath maps a lock's path/pattern to a filename under Dir. Paths
// are hashed rather than escaped so that arbitrarily deep paths, glob
// metacharacters, and path-length limits never collide with the lock
// directory's own flat layout.
func (m *Manager) lockFilePath(path string) string {
	sum := sha256.Sum256([]byte(path))
	return filepath.Join(m.Dir, hex.EncodeToString(sum[:])+".lock")
}

func isGlobPattern(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// Acquire attempts to lock path (literal or glob) for agentID. If an
// unexpired conflicting lock exists, Acquire returns (nil, conflict, nil)
// — a structured result, not an error. A conflicting lock older than the
// stale timeout is reclaimed automatically.
//
// timeout<=0 means fail immediately on the first conflict, with no retry
// loop. timeout>0 retries with a bounded exponential backoff (capped so
// the final sleep never overshoots the deadline) until either the lock is
// granted or the deadline passes.
func (m *Manager) Acquire(path, agentID, reason string, pid int, timeout time.Duration) (*Lock, *Lock, error) {
	if err := validator.ValidateFilePath(path); err != nil {
		return nil, nil, &swarmerr.ValidationError{Field: "path", Reason: err.Error()}
	}
	if err := m.ensureDir(); err != nil {
		return nil, nil, err
	}

	want := Lock{
		FilePath: path,
		IsGlob:   isGlobPattern(path),
		AgentID:  agentID,
		Reason:   reason,
		PID:      pid,
	}

	deadline := m.Clock.Now().Add(timeout)
	var lastConflict *Lock
	for attempt := 0; attempt < defaultBackoff.maxAttempts || (timeout > 0 && m.Clock.Now().Before(deadline)); attempt++ {
		conflict, err := m.findConflict(path, agentID)
		if err != nil {
			return nil, nil, err
		}
		if conflict != nil {
			if m.isStale(*conflict) {
				if err := m.forceRelease(*conflict); err != nil {
					return nil, nil, err
				}
				continue // retry acquisition immediately after reclaiming
			}
			lastConflict = conflict
			if timeout <= 0 || !m.Clock.Now().Before(deadline) {
				return nil, lastConflict, nil
			}
			m.Clock.Sleep(m.boundedDelay(attempt, deadline))
			continue
		}

		want.LockedAt = m.Clock.Now()
		granted, err := m.tryCreate(path, want)
		if err != nil {
			return nil, nil, err
		}
		if granted {
			return &want, nil, nil
		}
		// Lost the exclusive-create race; loop to re-check who won.
		if timeout <= 0 || !m.Clock.Now().Before(deadline) {
			break
		}
		m.Clock.Sleep(m.boundedDelay(attempt, deadline))
	}

	if lastConflict != nil {
		return nil, lastConflict, nil
	}
	return nil, nil, &swarmerr.LockIOError{Path: path, Err: fmt.Errorf("exhausted retries acquiring lock")}
}

// boundedDelay returns the backoff delay for attempt, capped so it never
// sleeps past deadline.
func (m *Manager) boundedDelay(attempt int, deadline time.Time) time.Duration {
	d := defaultBackoff.delay(attempt)
	if remaining := deadline.Sub(m.Clock.Now()); remaining < d {
		if remaining < 0 {
			return 0
		}
		return remaining
	}
	return d
}

// tryCreate attempts an exclusive file creation for lock. Returns false
// (not an error) if another process won the race.
func (m *Manager) tryCreate(path string, lock Lock) (bool, error) {
	b, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return false, fmt.Errorf("filelock: encode: %w", err)
	}
	f, err := os.OpenFile(m.lockFilePath(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, &swarmerr.LockIOError{Path: path, Err: err}
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return false, &swarmerr.LockIOError{Path: path, Err: err}
	}
	return true, nil
}

// findConflict looks for an existing lock that overlaps path and is held
// by a different agent.
func (m *Manager) findConflict(path, agentID string) (*Lock, error) {
	all, err := m.ListAll()
	if err != nil {
		return nil, err
	}
	targetGlob := isGlobPattern(path)
	for _, l := range all {
		if l.AgentID == agentID {
			continue
		}
		if overlaps(path, targetGlob, l.FilePath, l.IsGlob) {
			lc := l
			return &lc, nil
		}
	}
	return nil, nil
}

// overlaps reports whether two lock paths (each possibly a glob pattern)
// could both match the same file.
func overlaps(a string, aGlob bool, b string, bGlob bool) bool {
	switch {
	case !aGlob && !bGlob:
		return a == b
	case aGlob && !bGlob:
		ok, _ := doublestar.Match(a, b)
		return ok
	case !aGlob && bGlob:
		ok, _ := doublestar.Match(b, a)
		return ok
	default:
		return globsOverlap(a, b)
	}
}

// globsOverlap is a conservative (superset) check for whether two glob
// patterns could ever both match some common path: patterns are compared
// segment by segment, with either side's "**" treated as matching
// anything. This can report a false overlap it never reports a false
// disjointness claim for patterns that really do intersect.
func globsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	if strings.Contains(a, "**") || strings.Contains(b, "**") {
		return true
	}
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !segmentsOverlap(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func segmentsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	return isGlobPattern(a) || isGlobPattern(b)
}

func (m *Manager) isStale(l Lock) bool {
	return m.Clock.Now().Sub(l.LockedAt) > m.staleTimeout()
}

// forceRelease removes a stale lock's file unconditionally.
func (m *Manager) forceRelease(l Lock) error {
	if err := os.Remove(m.lockFilePath(l.FilePath)); err != nil && !os.IsNotExist(err) {
		return &swarmerr.LockIOError{Path: l.FilePath, Err: err}
	}
	return nil
}

// Release removes agentID's lock on path. Succeeds silently if no lock is
// held on path at all; returns an error if it is held by a different agent.
func (m *Manager) Release(path, agentID string) error {
	l, ok, err := m.read(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if l.AgentID != agentID {
		return &swarmerr.LockConflict{Path: path, HolderID: l.AgentID, LockedAt: l.LockedAt.Format(time.RFC3339), Reason: "not lock holder"}
	}
	return m.forceRelease(l)
}

// Refresh bumps agentID's lock's LockedAt timestamp without ever leaving
// the lock file absent: a new temp file is written and renamed over the
// existing one in the same directory, which POSIX guarantees is an
// atomic replace rather than an unlink followed by a create.
func (m *Manager) Refresh(path, agentID string) (*Lock, error) {
	l, ok, err := m.read(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &swarmerr.LockConflict{Path: path, Reason: "no such lock"}
	}
	if l.AgentID != agentID {
		return nil, &swarmerr.LockConflict{Path: path, HolderID: l.AgentID, LockedAt: l.LockedAt.Format(time.RFC3339), Reason: "not lock holder"}
	}
	l.LockedAt = m.Clock.Now()
	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("filelock: encode: %w", err)
	}
	if err := renameio.WriteFile(m.lockFilePath(path), b, lockFileMode); err != nil {
		return nil, &swarmerr.LockIOError{Path: path, Err: err}
	}
	return &l, nil
}

func (m *Manager) read(path string) (Lock, bool, error) {
	b, err := os.ReadFile(m.lockFilePath(path))
	if os.IsNotExist(err) {
		return Lock{}, false, nil
	}
	if err != nil {
		return Lock{}, false, &swarmerr.LockIOError{Path: path, Err: err}
	}
	var l Lock
	if err := json.Unmarshal(b, &l); err != nil {
		return Lock{}, false, &swarmerr.LockIOError{Path: path, Err: err}
	}
	return l, true, nil
}

// WhoHas returns the lock that would conflict with path, if any.
func (m *Manager) WhoHas(path string) (*Lock, error) {
	all, err := m.ListAll()
	if err != nil {
		return nil, err
	}
	targetGlob := isGlobPattern(path)
	for _, l := range all {
		if overlaps(path, targetGlob, l.FilePath, l.IsGlob) {
			lc := l
			return &lc, nil
		}
	}
	return nil, nil
}

// ListAll returns every currently-held lock.
func (m *Manager) ListAll() ([]Lock, error) {
	entries, err := os.ReadDir(m.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &swarmerr.LockIOError{Path: m.Dir, Err: err}
	}
	var locks []Lock
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(m.Dir, e.Name()))
		if err != nil {
			continue // raced with a concurrent release; skip
		}
		var l Lock
		if err := json.Unmarshal(b, &l); err != nil {
			continue
		}
		locks = append(locks, l)
	}
	return locks, nil
}

// CleanupStale removes every lock older than the stale timeout and
// returns the ones it removed.
func (m *Manager) CleanupStale() ([]Lock, error) {
	all, err := m.ListAll()
	if err != nil {
		return nil, err
	}
	var removed []Lock
	for _, l := range all {
		if m.isStale(l) {
			if err := m.forceRelease(l); err != nil {
				return removed, err
			}
			removed = append(removed, l)
		}
	}
	return removed, nil
}
