// Package validator holds the pure, dependency-free validation rules
// shared by every subsystem that accepts external input: agent ids,
// message content, and file paths/globs. None of these functions touch
// the filesystem or the network; they only examine the values passed in.
package validator

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// MaxAgentIDLen is the longest an agent id may be.
	MaxAgentIDLen = 64
	// MaxMessageContentBytes is the largest a message body may be.
	MaxMessageContentBytes = 10240
	// MinTimeoutSeconds and MaxTimeoutSeconds bound an acquire/retry timeout.
	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 3600
	// MaxRetryCount is the largest retry count accepted anywhere.
	MaxRetryCount = 5
	// MaxRateLimitMessages and MaxRateLimitWindow bound the rate-limit config.
	MaxRateLimitMessages = 1000
	MaxRateLimitWindow   = 3600
	// MaxRecipients is the most recipients a single broadcast may name.
	MaxRecipients = 50
)

var (
	agentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	paneIDPattern  = regexp.MustCompile(`^%\d+$`)
)

// ValidateAgentID checks that id is a non-empty string of at most
// MaxAgentIDLen ASCII letters, digits, hyphens, and underscores.
func ValidateAgentID(id string) error {
	if id == "" {
		return fmt.Errorf("agent id: empty")
	}
	if len(id) > MaxAgentIDLen {
		return fmt.Errorf("agent id: exceeds %d characters", MaxAgentIDLen)
	}
	if !agentIDPattern.MatchString(id) {
		return fmt.Errorf("agent id: must match %s", agentIDPattern.String())
	}
	return nil
}

// ValidateMessageContent checks that content is valid UTF-8 and within the
// byte-length budget. The boundary is exactly MaxMessageContentBytes: a
// body of that many bytes is accepted, one more byte is rejected.
func ValidateMessageContent(content string) error {
	if len(content) > MaxMessageContentBytes {
		return fmt.Errorf("message content: %d bytes exceeds limit of %d", len(content), MaxMessageContentBytes)
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("message content: not valid UTF-8")
	}
	return nil
}

// ValidatePaneID checks that id matches tmux's pane-id shape (`%<digits>`).
func ValidatePaneID(id string) error {
	if !paneIDPattern.MatchString(id) {
		return fmt.Errorf("pane id: must match %s, got %q", paneIDPattern.String(), id)
	}
	return nil
}

// ValidateTimeout checks that seconds falls within the accepted acquire/
// retry timeout range, inclusive.
func ValidateTimeout(seconds int) error {
	if seconds < MinTimeoutSeconds || seconds > MaxTimeoutSeconds {
		return fmt.Errorf("timeout: %d outside [%d, %d]", seconds, MinTimeoutSeconds, MaxTimeoutSeconds)
	}
	return nil
}

// ValidateRetryCount checks that n is a non-negative count within the
// accepted retry budget.
func ValidateRetryCount(n int) error {
	if n < 0 || n > MaxRetryCount {
		return fmt.Errorf("retry count: %d outside [0, %d]", n, MaxRetryCount)
	}
	return nil
}

// RateLimitConfig is the (messages, window) pair a rate limiter is
// configured with.
type RateLimitConfig struct {
	Messages int
	Window   int
}

// ValidateRateLimitConfig checks that cfg's message budget and window
// (seconds) both fall within the accepted range.
func ValidateRateLimitConfig(cfg RateLimitConfig) error {
	if cfg.Messages < 1 || cfg.Messages > MaxRateLimitMessages {
		return fmt.Errorf("rate limit messages: %d outside [1, %d]", cfg.Messages, MaxRateLimitMessages)
	}
	if cfg.Window < 1 || cfg.Window > MaxRateLimitWindow {
		return fmt.Errorf("rate limit window: %d outside [1, %d]", cfg.Window, MaxRateLimitWindow)
	}
	return nil
}

// ValidateRecipientList checks that recipients is non-empty, has no more
// than MaxRecipients entries, contains no duplicates, and that every
// entry is itself a valid agent id.
func ValidateRecipientList(recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("recipient list: empty")
	}
	if len(recipients) > MaxRecipients {
		return fmt.Errorf("recipient list: %d entries exceeds limit of %d", len(recipients), MaxRecipients)
	}
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		if err := ValidateAgentID(r); err != nil {
			return fmt.Errorf("recipient list: %w", err)
		}
		if _, dup := seen[r]; dup {
			return fmt.Errorf("recipient list: duplicate entry %q", r)
		}
		seen[r] = struct{}{}
	}
	return nil
}

// SanitizeMessageContent strips control characters (other than tab and
// newline) from content. Applying it twice produces the same result as
// applying it once.
func SanitizeMessageContent(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		if r == '\t' || r == '\n' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateFilePath checks that p is a relative, non-empty path that does
// not escape the project root via ".." segments or an absolute prefix, and
// — if it contains glob metacharacters — is a syntactically valid
// doublestar glob pattern.
func ValidateFilePath(p string) error {
	if p == "" {
		return fmt.Errorf("file path: empty")
	}
	if path.IsAbs(p) {
		return fmt.Errorf("file path: must be relative, got %q", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("file path: escapes project root: %q", p)
	}
	if isGlobPattern(p) {
		if err := doublestar.ValidatePattern(p); err != nil {
			return fmt.Errorf("file path: invalid glob pattern: %w", err)
		}
	}
	return nil
}

// isGlobPattern reports whether p contains any doublestar metacharacter.
func isGlobPattern(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
