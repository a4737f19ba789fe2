package main

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/clauded/swarm/pkg/coordinator"
)

type changeKind int

const (
	changeAgents changeKind = iota
	changeMessages
	changeLocks
)

// fileWatcher watches the registry file, message log, and lock
// directory for changes and fans out a changeKind to every subscribed
// SSE connection. One fsnotify.Watcher is shared by the whole process.
type fileWatcher struct {
	w *fsnotify.Watcher

	mu   sync.Mutex
	subs map[chan changeKind]struct{}

	done chan struct{}
}

func newFileWatcher(coord *coordinator.Coordinator) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	root := coord.Root
	registryPath := coord.Registry.Path
	logPath := coord.MessageLog.Path
	lockDir := coord.Locks.Dir

	// fsnotify watches directories, not individual files, on most
	// platforms reliably: watch the containing directories and filter
	// events by name.
	for _, dir := range uniqueDirs(filepath.Dir(registryPath), filepath.Dir(logPath), lockDir, root) {
		_ = w.Add(dir)
	}

	fw := &fileWatcher{
		w:    w,
		subs: make(map[chan changeKind]struct{}),
		done: make(chan struct{}),
	}
	go fw.run(registryPath, logPath, lockDir)
	return fw, nil
}

func uniqueDirs(dirs ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range dirs {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

func (fw *fileWatcher) run(registryPath, logPath, lockDir string) {
	for {
		select {
		case <-fw.done:
			return
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			switch {
			case ev.Name == registryPath:
				fw.broadcast(changeAgents)
			case ev.Name == logPath:
				fw.broadcast(changeMessages)
			case filepath.Dir(ev.Name) == lockDir:
				fw.broadcast(changeLocks)
			}
		case _, ok := <-fw.w.Errors:
			if !ok {
				return
			}
		}
	}
}

func (fw *fileWatcher) broadcast(kind changeKind) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for sub := range fw.subs {
		select {
		case sub <- kind:
		default:
			// Slow subscriber: drop the event rather than block the
			// watcher loop for every other connection.
		}
	}
}

func (fw *fileWatcher) subscribe() chan changeKind {
	ch := make(chan changeKind, 8)
	fw.mu.Lock()
	fw.subs[ch] = struct{}{}
	fw.mu.Unlock()
	return ch
}

func (fw *fileWatcher) unsubscribe(ch chan changeKind) {
	fw.mu.Lock()
	delete(fw.subs, ch)
	fw.mu.Unlock()
	close(ch)
}

func (fw *fileWatcher) Close() error {
	close(fw.done)
	return fw.w.Close()
}
