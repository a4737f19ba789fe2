// Package secretstore manages the per-user HMAC signing key used to
// authenticate message envelopes. The key lives at
// $HOME/.claude-swarm/secret, created on first use with restrictive
// permissions, and is shared by every swarm invocation on the machine.
package secretstore

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const (
	keyBytes    = 32
	dirMode     = 0o700
	fileMode    = 0o600
	secretDir   = ".claude-swarm"
	secretFile  = "secret"
)

// Source abstracts secret-key retrieval so tests can supply a fixed key
// instead of touching $HOME.
type Source interface {
	Key() ([]byte, error)
}

// FileStore is the production Source, backed by a file under the user's
// home directory.
type FileStore struct {
	// Dir overrides the home-directory base, for tests. Empty means
	// os.UserHomeDir().
	Dir string
}

func (f FileStore) path() (string, error) {
	base := f.Dir
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("secretstore: resolve home dir: %w", err)
		}
		base = home
	}
	return filepath.Join(base, secretDir, secretFile), nil
}

// Key returns the HMAC signing key, generating and persisting a new one
// on first use.
func (f FileStore) Key() ([]byte, error) {
	path, err := f.path()
	if err != nil {
		return nil, err
	}

	if b, err := os.ReadFile(path); err == nil {
		if len(b) != keyBytes {
			return nil, fmt.Errorf("secretstore: %s: expected %d bytes, got %d", path, keyBytes, len(b))
		}
		return b, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("secretstore: read %s: %w", path, err)
	}

	return f.generate(path)
}

func (f FileStore) generate(path string) ([]byte, error) {
	key := make([]byte, keyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("secretstore: generate key: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("secretstore: create %s: %w", dir, err)
	}

	if err := renameio.WriteFile(path, key, fileMode); err != nil {
		return nil, fmt.Errorf("secretstore: write %s: %w", path, err)
	}

	// renameio does not control the sibling-temp-file mode on all
	// platforms identically; enforce the final mode explicitly.
	if err := os.Chmod(path, fileMode); err != nil {
		return nil, fmt.Errorf("secretstore: chmod %s: %w", path, err)
	}

	return key, nil
}

var _ Source = FileStore{}
