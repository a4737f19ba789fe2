// Package messaging orchestrates sending and broadcasting signed message
// envelopes: it resolves a recipient's tmux pane from the agent registry,
// enforces the sender's rate-limit budget, signs the envelope, delivers
// it as injected keystrokes, and appends it to the durable message log
// regardless of delivery outcome.
package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/clauded/swarm/pkg/clock"
	"github.com/clauded/swarm/pkg/envelope"
	"github.com/clauded/swarm/pkg/ratelimit"
	"github.com/clauded/swarm/pkg/registry"
	"github.com/clauded/swarm/pkg/swarmerr"
	"github.com/clauded/swarm/pkg/tmux"
	"github.com/clauded/swarm/pkg/validator"
)

// MaxBroadcastRecipients is the largest a broadcast's recipient set may
// be before it is rejected outright.
const MaxBroadcastRecipients = 50

// broadcastWorkers bounds how many deliveries run concurrently during a
// broadcast fan-out.
const broadcastWorkers = 8

// Result describes the outcome of delivering one message.
type Result struct {
	RecipientID string
	Delivered   bool
	Error       error
}

// Service ties the registry, rate limiter, signing key, log, and
// multiplexer together into the send/broadcast operations.
type Service struct {
	Registry *registry.Registry
	Limiter  *ratelimit.Limiter
	Log      envelope.Log
	Mux      tmux.Multiplexer
	SecretKey []byte
	Clock    clock.Clock
}

// Send delivers one message from senderID to recipientID.
func (s *Service) Send(ctx context.Context, senderID, recipientID string, kind envelope.Kind, content string) (envelope.Message, error) {
	if err := s.validate(senderID, content, kind); err != nil {
		return envelope.Message{}, err
	}
	if recipientID != "all" {
		if _, ok, err := s.Registry.Get(recipientID); err != nil {
			return envelope.Message{}, err
		} else if !ok {
			return envelope.Message{}, &swarmerr.AgentNotFound{AgentID: recipientID, Candidates: s.activeIDs()}
		}
	}
	if !s.Limiter.Allow(senderID) {
		return envelope.Message{}, &swarmerr.RateLimitExceeded{AgentID: senderID, RetryAfter: s.Limiter.RetryAfter(senderID).String()}
	}

	m, err := s.buildMessage(senderID, recipientID, kind, content)
	if err != nil {
		return envelope.Message{}, err
	}

	res := s.deliver(ctx, m)
	if logErr := s.Log.Append(m); logErr != nil {
		return m, logErr
	}
	return m, res.Error
}

// Broadcast delivers one message from senderID to every other active
// agent. A broadcast consumes exactly one rate-limit credit regardless of
// recipient count. Offline recipients are retried once; a recipient still
// unreachable after the retry is reported as a failed Result rather than
// retried indefinitely or silently dropped.
func (s *Service) Broadcast(ctx context.Context, senderID string, kind envelope.Kind, content string) ([]Result, error) {
	if err := s.validate(senderID, content, kind); err != nil {
		return nil, err
	}

	agents, err := s.Registry.ListActive()
	if err != nil {
		return nil, fmt.Errorf("messaging: list agents: %w", err)
	}
	var recipients []string
	for _, a := range agents {
		if a.ID != senderID {
			recipients = append(recipients, a.ID)
		}
	}
	if len(recipients) > MaxBroadcastRecipients {
		return nil, &swarmerr.ValidationError{Field: "recipients", Reason: fmt.Sprintf("%d exceeds broadcast limit of %d", len(recipients), MaxBroadcastRecipients)}
	}

	if !s.Limiter.Allow(senderID) {
		return nil, &swarmerr.RateLimitExceeded{AgentID: senderID, RetryAfter: s.Limiter.RetryAfter(senderID).String()}
	}

	results := make([]Result, len(recipients))
	sem := make(chan struct{}, broadcastWorkers)
	var wg sync.WaitGroup
	for i, r := range recipients {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, recipientID string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.sendWithOneRetry(ctx, senderID, recipientID, kind, content)
		}(i, r)
	}
	wg.Wait()
	return results, nil
}

func (s *Service) sendWithOneRetry(ctx context.Context, senderID, recipientID string, kind envelope.Kind, content string) Result {
	m, err := s.buildMessage(senderID, recipientID, kind, content)
	if err != nil {
		return Result{RecipientID: recipientID, Error: err}
	}

	res := s.deliver(ctx, m)
	if !res.Delivered {
		res = s.deliver(ctx, m) // one retry for an offline recipient
	}
	if logErr := s.Log.Append(m); logErr != nil && res.Error == nil {
		res.Error = logErr
	}
	return res
}

func (s *Service) buildMessage(senderID, recipientID string, kind envelope.Kind, content string) (envelope.Message, error) {
	id, err := envelope.NewMessageID()
	if err != nil {
		return envelope.Message{}, err
	}
	m := envelope.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Type:        kind,
		Content:     validator.SanitizeMessageContent(content),
		Timestamp:   s.Clock.Now(),
		MessageID:   id,
	}
	m.Sign(s.SecretKey)
	return m, nil
}

// activeIDs returns the ids of currently active agents, for populating
// AgentNotFound's candidate list. Errors are swallowed since this is only
// used to enrich an error message, not to decide delivery.
func (s *Service) activeIDs() []string {
	agents, err := s.Registry.ListActive()
	if err != nil {
		return nil
	}
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}
	return ids
}

func (s *Service) validate(senderID, content string, kind envelope.Kind) error {
	if err := validator.ValidateAgentID(senderID); err != nil {
		return &swarmerr.ValidationError{Field: "sender_id", Reason: err.Error()}
	}
	if !kind.Valid() {
		return &swarmerr.ValidationError{Field: "type", Reason: fmt.Sprintf("unrecognized message type %q", kind)}
	}
	if err := validator.ValidateMessageContent(content); err != nil {
		return &swarmerr.ValidationError{Field: "content", Reason: err.Error()}
	}
	return nil
}

// deliver resolves recipientID's pane and injects the message as
// keystrokes. If the recipient has no live pane, Result reports an
// undelivered (not erroring) outcome; an unknown recipient yields an
// AgentNotFound error. Either way the caller still logs the message so a
// check-messages poll can find it later.
func (s *Service) deliver(ctx context.Context, m envelope.Message) Result {
	if m.RecipientID == "all" {
		return Result{RecipientID: m.RecipientID, Delivered: true}
	}

	agent, ok, err := s.Registry.Get(m.RecipientID)
	if err != nil {
		return Result{RecipientID: m.RecipientID, Error: err}
	}
	if !ok {
		return Result{RecipientID: m.RecipientID, Error: &swarmerr.AgentNotFound{AgentID: m.RecipientID, Candidates: s.activeIDs()}}
	}

	alive, err := s.Mux.PaneExists(ctx, agent.PaneID)
	if err != nil || !alive {
		return Result{RecipientID: m.RecipientID, Delivered: false}
	}

	payload, err := renderPayload(m)
	if err != nil {
		return Result{RecipientID: m.RecipientID, Error: err}
	}
	if err := s.Mux.SendKeys(ctx, agent.PaneID, payload); err != nil {
		return Result{RecipientID: m.RecipientID, Delivered: false, Error: &swarmerr.MessageDeliveryError{RecipientID: m.RecipientID, Reason: err.Error()}}
	}
	return Result{RecipientID: m.RecipientID, Delivered: true}
}

// renderPayload formats a message for injection into an assistant's
// prompt — a compact, human-readable line rather than raw JSON, since the
// recipient is a chat REPL, not a machine parser.
func renderPayload(m envelope.Message) (string, error) {
	return fmt.Sprintf("[swarm:%s from=%s] %s", m.Type, m.SenderID, m.Content), nil
}
