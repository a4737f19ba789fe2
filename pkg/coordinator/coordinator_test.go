package coordinator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/clauded/swarm/pkg/clock"
	"github.com/clauded/swarm/pkg/procinspect"
	"github.com/clauded/swarm/pkg/tmux"
)

type fakeSecrets struct{ key []byte }

func (f fakeSecrets) Key() ([]byte, error) { return f.key, nil }

func TestNew_WiresEverySubsystem(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".agent_locks"), 0o755); err != nil {
		t.Fatal(err)
	}

	fc := clock.NewFake(clock.Real{}.Now())
	c, err := New(root, Options{
		Clock:   fc,
		Mux:     tmux.NewFake(),
		Procs:   &procinspect.Fake{},
		Secrets: fakeSecrets{key: make([]byte, 32)},
	})
	if err != nil {
		t.Fatal(err)
	}

	if c.Root != root {
		t.Fatalf("Root: got %q, want %q", c.Root, root)
	}
	if c.Registry == nil || c.Locks == nil || c.Messaging == nil || c.Ack == nil {
		t.Fatal("New: one or more subsystems left unwired")
	}
	if c.Messaging.Registry != c.Registry {
		t.Fatal("messaging service does not share the coordinator's registry")
	}
}

func TestNew_MissingRootResolvesFromCwd(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, ".agent_locks"), 0o755); err != nil {
		t.Fatal(err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}

	c, err := New("", Options{
		Mux:     tmux.NewFake(),
		Procs:   &procinspect.Fake{},
		Secrets: fakeSecrets{key: make([]byte, 32)},
	})
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := filepath.EvalSymlinks(c.Root)
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != want {
		t.Fatalf("Root: got %q, want %q", resolved, want)
	}
}
