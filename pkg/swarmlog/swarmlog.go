// Package swarmlog wraps zerolog for structured diagnostic logging and
// provides a Redact helper for sensitive fields. No command imports it:
// the ack-daemon and the dashboard server log through fmt and the
// standard log package, and one-shot CLI commands print directly to
// stdout/stderr.
package swarmlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

var redactedFields = map[string]bool{
	"secret":    true,
	"signature": true,
	"content":   true,
}

// New returns a zerolog.Logger writing to w (os.Stderr if nil).
func New(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Redact returns a copy of fields with any key named like signing
// material blanked out, as a second line of defense on top of the call
// site discipline of never logging secrets or message content directly.
func Redact(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if redactedFields[k] {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}
