// Package coordinator wires one instance of every swarm subsystem into a
// single explicit value, constructed once per process. It replaces the
// global-mutable-singleton pattern: every CLI command, the ack-daemon,
// and the dashboard server each build their own Coordinator and pass it
// down, rather than reaching for package-level state.
package coordinator

import (
	"context"

	"github.com/clauded/swarm/pkg/ack"
	"github.com/clauded/swarm/pkg/clock"
	"github.com/clauded/swarm/pkg/config"
	"github.com/clauded/swarm/pkg/coorddoc"
	"github.com/clauded/swarm/pkg/envelope"
	"github.com/clauded/swarm/pkg/filelock"
	"github.com/clauded/swarm/pkg/messaging"
	"github.com/clauded/swarm/pkg/procinspect"
	"github.com/clauded/swarm/pkg/project"
	"github.com/clauded/swarm/pkg/ratelimit"
	"github.com/clauded/swarm/pkg/registry"
	"github.com/clauded/swarm/pkg/secretstore"
	"github.com/clauded/swarm/pkg/tmux"
)

// Coordinator owns one instance of every subsystem a CLI invocation or
// long-running process needs.
type Coordinator struct {
	Root       string
	Clock      clock.Clock
	Config     config.Config
	Registry   *registry.Registry
	Locks      *filelock.Manager
	CoordDoc   coorddoc.Store
	Messaging  *messaging.Service
	Ack        *ack.Tracker
	Mux        tmux.Multiplexer
	Procs      procinspect.ProcessLocator
	MessageLog envelope.Log
}

// Options overrides the capabilities a Coordinator is built from; tests
// supply fakes here instead of touching tmux, gopsutil, or $HOME.
type Options struct {
	Clock   clock.Clock
	Mux     tmux.Multiplexer
	Procs   procinspect.ProcessLocator
	Secrets secretstore.Source
}

// New resolves the project root (or uses root if non-empty), loads
// config, and constructs every subsystem.
func New(root string, opts Options) (*Coordinator, error) {
	resolvedRoot := root
	if resolvedRoot == "" {
		r, err := project.Resolve(".")
		if err != nil {
			return nil, err
		}
		resolvedRoot = r
	}

	cfg, err := config.Load(resolvedRoot)
	if err != nil {
		return nil, err
	}

	c := opts.Clock
	if c == nil {
		c = clock.Real{}
	}
	mux := opts.Mux
	if mux == nil {
		mux = tmux.Driver{Bin: cfg.TmuxBin}
	}
	procs := opts.Procs
	if procs == nil {
		procs = &procinspect.Inspector{Patterns: cfg.AssistantPatterns}
	}
	secrets := opts.Secrets
	if secrets == nil {
		secrets = secretstore.FileStore{}
	}

	key, err := secrets.Key()
	if err != nil {
		return nil, err
	}

	reg := registry.New(project.RegistryPath(resolvedRoot), c)
	if cfg.StaleThreshold > 0 {
		reg.StaleThreshold = cfg.StaleThreshold
	}
	if cfg.DeadGrace > 0 {
		reg.DeadGrace = cfg.DeadGrace
	}

	locks := filelock.New(project.LockDir(resolvedRoot), c)
	if cfg.LockStaleTimeout > 0 {
		locks.StaleTimeout = cfg.LockStaleTimeout
	}

	msgLog := envelope.Log{Path: project.MessageLogPath(resolvedRoot)}

	maxMsgs := cfg.RateLimitMessages
	window := cfg.RateLimitWindow
	limiter := ratelimit.New(c, maxMsgs, window)

	svc := &messaging.Service{
		Registry:  reg,
		Limiter:   limiter,
		Log:       msgLog,
		Mux:       mux,
		SecretKey: key,
		Clock:     c,
	}

	ackStore := ack.Store{Path: resolvedRoot + "/.agent_locks/pending_acks.json"}
	tracker, err := ack.NewTracker(ackStore, c, &messagingResender{svc: svc})
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		Root:       resolvedRoot,
		Clock:      c,
		Config:     cfg,
		Registry:   reg,
		Locks:      locks,
		CoordDoc:   coorddoc.Store{Path: project.CoordinationDocPath(resolvedRoot)},
		Messaging:  svc,
		Ack:        tracker,
		Mux:        mux,
		Procs:      procs,
		MessageLog: msgLog,
	}, nil
}

// messagingResender adapts messaging.Service to ack.Resender: a resend is
// just re-sending the same content to the same recipient, and an
// escalation broadcasts it to everyone instead.
type messagingResender struct {
	svc *messaging.Service
}

func (m *messagingResender) Resend(ctx context.Context, p ack.Pending) error {
	_, err := m.svc.Send(ctx, p.Sender, p.Recipient, p.Type, p.Content)
	return err
}

func (m *messagingResender) Escalate(ctx context.Context, p ack.Pending) error {
	_, err := m.svc.Broadcast(ctx, p.Sender, p.Type, "[escalated, unacknowledged] "+p.Content)
	return err
}
