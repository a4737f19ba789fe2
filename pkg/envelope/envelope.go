// Package envelope defines the signed message format exchanged between
// agents, and the append-only JSONL log every sent/received message is
// recorded to.
package envelope

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/clauded/swarm/pkg/swarmerr"
)

// Kind is the exhaustive set of message types. Using a distinct string
// type instead of a bare string keeps callers from passing arbitrary
// values unchecked — Valid must be called at every boundary that accepts
// external input, since the Go type system alone can't make the set
// closed the way an enum in a sum-type language would.
type Kind string

const (
	KindInfo          Kind = "INFO"
	KindQuestion      Kind = "QUESTION"
	KindReviewRequest Kind = "REVIEW_REQUEST"
	KindBlocked       Kind = "BLOCKED"
	KindCompleted     Kind = "COMPLETED"
	KindChallenge     Kind = "CHALLENGE"
	KindAck           Kind = "ACK"
)

// Valid reports whether k is one of the exhaustively-listed kinds. Every
// switch over Kind in this codebase has a default case that calls this
// (or relies on validation having already called it) so an unrecognized
// value can never silently fall through as if it were INFO.
func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindQuestion, KindReviewRequest, KindBlocked, KindCompleted, KindChallenge, KindAck:
		return true
	default:
		return false
	}
}

const messageIDBytes = 16

// Message is one signed envelope.
type Message struct {
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Type        Kind      `json:"type"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	MessageID   string    `json:"message_id"`
	Signature   string    `json:"signature"`
}

// NewMessageID returns a random 16-byte hex-encoded id.
func NewMessageID() (string, error) {
	b := make([]byte, messageIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("envelope: generate message id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// canonical returns the exact byte sequence that gets signed: a fixed
// field order independent of struct tag ordering or map iteration, so the
// signature is reproducible across processes and Go versions.
func (m Message) canonical() []byte {
	return []byte(fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s\x00%s",
		m.SenderID, m.RecipientID, m.Type, m.Content,
		m.Timestamp.UTC().Format(time.RFC3339Nano), m.MessageID))
}

// Sign computes and sets m.Signature using key.
func (m *Message) Sign(key []byte) {
	mac := hmac.New(sha256.New, key)
	mac.Write(m.canonical())
	m.Signature = hex.EncodeToString(mac.Sum(nil))
}

// Verify checks m.Signature against key using a constant-time comparison,
// so a failed verification leaks nothing about how much of the signature
// matched.
func (m Message) Verify(key []byte) error {
	mac := hmac.New(sha256.New, key)
	mac.Write(m.canonical())
	want := mac.Sum(nil)

	got, err := hex.DecodeString(m.Signature)
	if err != nil || subtle.ConstantTimeCompare(got, want) != 1 {
		return &swarmerr.SignatureInvalid{MessageID: m.MessageID}
	}
	return nil
}
