package envelope

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

const (
	rotateAt    = 10 * 1024 * 1024 // ~10MiB
	logFileMode = 0o600
)

// Log is the append-only JSONL message history at Path. When Path grows
// past rotateAt it is renamed to Path+".old" (overwriting any previous
// .old) before the next append starts a fresh file.
type Log struct {
	Path string
}

// Append writes m as one JSON line, rotating first if the file has grown
// past the size threshold.
func (l Log) Append(m Message) error {
	if err := l.rotateIfNeeded(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFileMode)
	if err != nil {
		return fmt.Errorf("envelope: open log %s: %w", l.Path, err)
	}
	defer f.Close()

	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("envelope: encode message: %w", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("envelope: append to %s: %w", l.Path, err)
	}
	return nil
}

func (l Log) rotateIfNeeded() error {
	info, err := os.Stat(l.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("envelope: stat %s: %w", l.Path, err)
	}
	if info.Size() < rotateAt {
		return nil
	}
	if err := os.Rename(l.Path, l.Path+".old"); err != nil {
		return fmt.Errorf("envelope: rotate %s: %w", l.Path, err)
	}
	return nil
}

// Tail returns up to limit of the most recent messages in the log
// (current file only, not .old), reading the whole file into memory —
// acceptable given the rotation threshold bounds the file size.
func (l Log) Tail(limit int) ([]Message, error) {
	f, err := os.Open(l.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("envelope: open log %s: %w", l.Path, err)
	}
	defer f.Close()

	var all []Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var m Message
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			continue // skip a corrupt line rather than failing the whole tail
		}
		all = append(all, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("envelope: scan log %s: %w", l.Path, err)
	}

	if limit <= 0 || limit >= len(all) {
		return all, nil
	}
	return all[len(all)-limit:], nil
}

// ForRecipient filters Tail's result to messages addressed to recipientID
// (or "all" broadcasts) and returns up to limit of the most recent ones
// (all of them when limit <= 0). It keeps no read cursor.
func (l Log) ForRecipient(recipientID string, limit int) ([]Message, error) {
	all, err := l.Tail(0)
	if err != nil {
		return nil, err
	}
	var out []Message
	for _, m := range all {
		if m.RecipientID == recipientID || m.RecipientID == "all" {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
