package filelock

import (
	"testing"
	"time"

	"github.com/clauded/swarm/pkg/clock"
)

func newManager(t *testing.T) (*Manager, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Unix(0, 0))
	return New(t.TempDir(), fc), fc
}

func TestAcquire_MutualExclusion(t *testing.T) {
	m, _ := newManager(t)

	lock, conflict, err := m.Acquire("src/main.go", "agent-a", "editing", 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if lock == nil || conflict != nil {
		t.Fatalf("first Acquire: lock=%v conflict=%v", lock, conflict)
	}

	lock2, conflict2, err := m.Acquire("src/main.go", "agent-b", "editing", 200, 0)
	if err != nil {
		t.Fatal(err)
	}
	if lock2 != nil || conflict2 == nil {
		t.Fatalf("second Acquire: expected conflict, got lock=%v conflict=%v", lock2, conflict2)
	}
	if conflict2.AgentID != "agent-a" {
		t.Fatalf("conflict holder: got %q, want agent-a", conflict2.AgentID)
	}
}

func TestAcquire_ZeroTimeoutFailsImmediately(t *testing.T) {
	m, fc := newManager(t)
	if _, _, err := m.Acquire("f.go", "agent-a", "", 0, 0); err != nil {
		t.Fatal(err)
	}
	start := fc.Now()
	lock, conflict, err := m.Acquire("f.go", "agent-b", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if lock != nil || conflict == nil {
		t.Fatalf("expected immediate conflict, got lock=%v conflict=%v", lock, conflict)
	}
	if fc.Now() != start {
		t.Fatal("timeout=0 must not sleep waiting for a conflicting lock to free")
	}
}

func TestAcquire_PositiveTimeoutWaitsThenGrants(t *testing.T) {
	m, fc := newManager(t)
	if _, _, err := m.Acquire("f.go", "agent-a", "", 0, 0); err != nil {
		t.Fatal(err)
	}

	type acquireResult struct {
		lock     *Lock
		conflict *Lock
		err      error
	}
	done := make(chan acquireResult, 1)
	go func() {
		lock, conflict, err := m.Acquire("f.go", "agent-b", "", 0, 5*time.Second)
		done <- acquireResult{lock, conflict, err}
	}()

	time.Sleep(10 * time.Millisecond) // let the goroutine register its backoff wait
	if err := m.Release("f.go", "agent-a"); err != nil {
		t.Fatal(err)
	}
	fc.Advance(time.Second)

	result := <-done
	if result.err != nil {
		t.Fatal(result.err)
	}
	if result.lock == nil || result.conflict != nil {
		t.Fatalf("expected the waiting acquire to succeed once released, got lock=%v conflict=%v", result.lock, result.conflict)
	}
}

func TestRelease_OfNonexistentLockSucceeds(t *testing.T) {
	m, _ := newManager(t)
	if err := m.Release("never-locked.go", "agent-a"); err != nil {
		t.Fatalf("Release of a nonexistent lock: got %v, want nil", err)
	}
}

func TestRelease_AllowsReacquire(t *testing.T) {
	m, _ := newManager(t)
	if _, _, err := m.Acquire("f.go", "agent-a", "", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Release("f.go", "agent-a"); err != nil {
		t.Fatal(err)
	}
	lock, conflict, err := m.Acquire("f.go", "agent-b", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if lock == nil || conflict != nil {
		t.Fatalf("reacquire after release: lock=%v conflict=%v", lock, conflict)
	}
}

func TestRelease_WrongAgentFails(t *testing.T) {
	m, _ := newManager(t)
	if _, _, err := m.Acquire("f.go", "agent-a", "", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Release("f.go", "agent-b"); err == nil {
		t.Fatal("Release by non-holder: expected error, got nil")
	}
}

func TestRefresh_NeverAbsent(t *testing.T) {
	m, fc := newManager(t)
	if _, _, err := m.Acquire("f.go", "agent-a", "", 0, 0); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	var sawAbsent bool
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			locks, err := m.ListAll()
			if err != nil {
				continue
			}
			if len(locks) == 0 {
				sawAbsent = true
			}
		}
	}()

	for i := 0; i < 100; i++ {
		fc.Advance(time.Second)
		if _, err := m.Refresh("f.go", "agent-a"); err != nil {
			t.Fatal(err)
		}
	}
	<-done

	if sawAbsent {
		t.Fatal("lock file observed absent during refresh loop")
	}
}

func TestStaleLock_Reclaimed(t *testing.T) {
	m, fc := newManager(t)
	m.StaleTimeout = time.Minute

	if _, _, err := m.Acquire("f.go", "agent-a", "", 0, 0); err != nil {
		t.Fatal(err)
	}
	fc.Advance(2 * time.Minute)

	lock, conflict, err := m.Acquire("f.go", "agent-b", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if lock == nil || conflict != nil {
		t.Fatalf("acquire over stale lock: lock=%v conflict=%v", lock, conflict)
	}
	if lock.AgentID != "agent-b" {
		t.Fatalf("new holder: got %q, want agent-b", lock.AgentID)
	}
}

func TestGlobVsLiteral_Conflict(t *testing.T) {
	m, _ := newManager(t)
	if _, _, err := m.Acquire("src/**/*.go", "agent-a", "", 0, 0); err != nil {
		t.Fatal(err)
	}
	_, conflict, err := m.Acquire("src/pkg/file.go", "agent-b", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if conflict == nil {
		t.Fatal("expected glob lock to conflict with overlapping literal path")
	}
}

func TestGlobVsGlob_ConservativeOverlap(t *testing.T) {
	m, _ := newManager(t)
	if _, _, err := m.Acquire("src/*/a.go", "agent-a", "", 0, 0); err != nil {
		t.Fatal(err)
	}
	_, conflict, err := m.Acquire("src/*/a.go", "agent-b", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if conflict == nil {
		t.Fatal("expected identical glob patterns to conflict")
	}
}

func TestCleanupStale_RemovesOldLocksOnly(t *testing.T) {
	m, fc := newManager(t)
	m.StaleTimeout = time.Minute

	if _, _, err := m.Acquire("old.go", "agent-a", "", 0, 0); err != nil {
		t.Fatal(err)
	}
	fc.Advance(2 * time.Minute)
	if _, _, err := m.Acquire("new.go", "agent-b", "", 0, 0); err != nil {
		t.Fatal(err)
	}

	removed, err := m.CleanupStale()
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0].FilePath != "old.go" {
		t.Fatalf("CleanupStale: got %+v", removed)
	}

	all, err := m.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].FilePath != "new.go" {
		t.Fatalf("ListAll after cleanup: got %+v", all)
	}
}
