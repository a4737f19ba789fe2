package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clauded/swarm/pkg/coordinator"
	"github.com/clauded/swarm/pkg/procinspect"
	"github.com/clauded/swarm/pkg/registry"
	"github.com/clauded/swarm/pkg/tmux"
)

type fakeSecrets struct{ key []byte }

func (f fakeSecrets) Key() ([]byte, error) { return f.key, nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".agent_locks"), 0o755); err != nil {
		t.Fatal(err)
	}
	coord, err := coordinator.New(root, coordinator.Options{
		Mux:     tmux.NewFake(),
		Procs:   &procinspect.Fake{},
		Secrets: fakeSecrets{key: make([]byte, 32)},
	})
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewServer(coord)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestHandleAgents_EmptyRegistry(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var agents []registry.Agent
	if err := json.Unmarshal(w.Body.Bytes(), &agents); err != nil {
		t.Fatal(err)
	}
	if len(agents) != 0 {
		t.Fatalf("agents: got %d, want 0", len(agents))
	}
}

func TestHandleStats_ReportsZeroLocks(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats["locks_held"].(float64) != 0 {
		t.Fatalf("locks_held: got %v, want 0", stats["locks_held"])
	}
}

func TestHandleLocks_AfterAcquire(t *testing.T) {
	srv := newTestServer(t)

	if _, _, err := srv.coord.Locks.Acquire("src/a.go", "agent-1", "editing", 1, 0); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/locks", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "src/a.go") {
		t.Fatalf("response missing lock path: %s", w.Body.String())
	}
}
