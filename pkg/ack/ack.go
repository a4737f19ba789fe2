// Package ack implements the acknowledgement/retry/escalation layer: a
// tracker that remembers which sent messages still await an ACK, resends
// them on a fixed interval, and escalates (broadcasts) once a message has
// exhausted its retries. The tracker runs as a single cancellable
// goroutine rather than a wall-clock poll loop scattered across the
// module, so one context cancellation cleanly stops it.
package ack

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/clauded/swarm/pkg/clock"
	"github.com/clauded/swarm/pkg/envelope"
)

const (
	DefaultRetryInterval = 30 * time.Second
	DefaultMaxRetries    = 3
	pollInterval         = time.Second
	pendingFileMode      = 0o600
)

// Pending is one message awaiting acknowledgement.
type Pending struct {
	MessageID        string        `json:"message_id"`
	Sender           string        `json:"sender"`
	Recipient        string        `json:"recipient"`
	Type             envelope.Kind `json:"type"`
	Content          string        `json:"content"`
	SentAt           time.Time     `json:"sent_at"`
	LastRetryAt      time.Time     `json:"last_retry_at"`
	RetriesLeft      int           `json:"retries_left"`
	EscalationPolicy string        `json:"escalation_policy"`
}

// Resender delivers a message to a single recipient — the tracker
// depends on this narrow capability instead of the full messaging
// service, so tests can substitute a recorder.
type Resender interface {
	Resend(ctx context.Context, p Pending) error
	Escalate(ctx context.Context, p Pending) error
}

// Store persists the pending-ack table to Path so a restarted tracker
// (run via a standalone daemon process) can resume instead of losing
// in-flight acknowledgements.
type Store struct {
	Path string
}

func (s Store) load() ([]Pending, error) {
	b, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ack: read %s: %w", s.Path, err)
	}
	var pending []Pending
	if err := json.Unmarshal(b, &pending); err != nil {
		return nil, fmt.Errorf("ack: parse %s: %w", s.Path, err)
	}
	return pending, nil
}

func (s Store) save(pending []Pending) error {
	b, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return fmt.Errorf("ack: encode: %w", err)
	}
	if err := renameio.WriteFile(s.Path, b, pendingFileMode); err != nil {
		return fmt.Errorf("ack: write %s: %w", s.Path, err)
	}
	return nil
}

// Tracker manages the in-memory (and persisted) set of pending
// acknowledgements.
type Tracker struct {
	Store         Store
	Clock         clock.Clock
	Resender      Resender
	RetryInterval time.Duration
	MaxRetries    int

	mu      sync.Mutex
	pending []Pending
}

// NewTracker loads any previously-persisted pending table.
func NewTracker(store Store, c clock.Clock, resender Resender) (*Tracker, error) {
	pending, err := store.load()
	if err != nil {
		return nil, err
	}
	return &Tracker{
		Store:         store,
		Clock:         c,
		Resender:      resender,
		RetryInterval: DefaultRetryInterval,
		MaxRetries:    DefaultMaxRetries,
		pending:       pending,
	}, nil
}

func (t *Tracker) retryInterval() time.Duration {
	if t.RetryInterval <= 0 {
		return DefaultRetryInterval
	}
	return t.RetryInterval
}

func (t *Tracker) maxRetries() int {
	if t.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return t.MaxRetries
}

// Track registers a newly-sent message as awaiting acknowledgement.
func (t *Tracker) Track(m envelope.Message, escalationPolicy string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = append(t.pending, Pending{
		MessageID:        m.MessageID,
		Sender:           m.SenderID,
		Recipient:        m.RecipientID,
		Type:             m.Type,
		Content:          m.Content,
		SentAt:           t.Clock.Now(),
		LastRetryAt:      t.Clock.Now(),
		RetriesLeft:      t.maxRetries(),
		EscalationPolicy: escalationPolicy,
	})
	return t.Store.save(t.pending)
}

// Ack removes messageID from the pending table — the recipient has
// responded with an ACK envelope.
func (t *Tracker) Ack(messageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.pending[:0]
	for _, p := range t.pending {
		if p.MessageID != messageID {
			kept = append(kept, p)
		}
	}
	t.pending = kept
	return t.Store.save(t.pending)
}

// Pending returns a snapshot of the current pending table.
func (t *Tracker) Pending() []Pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Pending(nil), t.pending...)
}

// Run drives the retry/escalation loop until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Clock.After(pollInterval):
			if err := t.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (t *Tracker) tick(ctx context.Context) error {
	t.mu.Lock()
	due := make([]Pending, 0, len(t.pending))
	var kept []Pending
	now := t.Clock.Now()
	for _, p := range t.pending {
		if now.Sub(p.LastRetryAt) >= t.retryInterval() {
			due = append(due, p)
			continue
		}
		kept = append(kept, p)
	}
	t.mu.Unlock()

	for _, p := range due {
		if p.RetriesLeft <= 0 {
			if err := t.Resender.Escalate(ctx, p); err != nil {
				return err
			}
			continue // dropped: escalated, not re-added to kept
		}
		if err := t.Resender.Resend(ctx, p); err != nil {
			return err
		}
		p.RetriesLeft--
		p.LastRetryAt = now
		kept = append(kept, p)
	}

	t.mu.Lock()
	t.pending = kept
	err := t.Store.save(t.pending)
	t.mu.Unlock()
	return err
}
