// Package coorddoc manages the shared coordination markdown document
// (COORDINATION.md): an ordered list of "## " sections that agents read
// for context and update one section at a time. The document is small
// and flat enough that a hand-rolled line-based parser is simpler and
// more predictable than pulling in a general markdown AST library.
package coorddoc

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/renameio/v2"
)

const docFileMode = 0o600

// Section is one "## Heading" block and its body text (excluding the
// heading line itself and any trailing blank lines).
type Section struct {
	Heading string
	Body    string
}

// Document is the parsed, ordered list of sections.
type Document struct {
	Sections []Section
}

// Parse splits markdown text into an ordered list of level-2 ("## ")
// sections. Content before the first heading is kept as a section with an
// empty heading, if non-blank.
func Parse(text string) Document {
	var doc Document
	var cur *Section
	var body strings.Builder

	flush := func() {
		if cur != nil {
			cur.Body = strings.TrimRight(body.String(), "\n")
			doc.Sections = append(doc.Sections, *cur)
		}
		body.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "## ") {
			flush()
			cur = &Section{Heading: strings.TrimSpace(strings.TrimPrefix(line, "## "))}
			continue
		}
		if cur == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			cur = &Section{Heading: ""}
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return doc
}

// Render serializes the document back to markdown text.
func (d Document) Render() string {
	var b strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		if s.Heading != "" {
			b.WriteString("## ")
			b.WriteString(s.Heading)
			b.WriteString("\n\n")
		}
		b.WriteString(s.Body)
		if !strings.HasSuffix(s.Body, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// UpdateSection replaces the body of the named heading with body,
// appending a new section at the end if the heading doesn't exist yet.
func (d *Document) UpdateSection(heading, body string) {
	for i := range d.Sections {
		if strings.EqualFold(d.Sections[i].Heading, heading) {
			d.Sections[i].Body = body
			return
		}
	}
	d.Sections = append(d.Sections, Section{Heading: heading, Body: body})
}

// Get returns the named section's body, if present.
func (d Document) Get(heading string) (string, bool) {
	for _, s := range d.Sections {
		if strings.EqualFold(s.Heading, heading) {
			return s.Body, true
		}
	}
	return "", false
}

// Store reads and atomically rewrites COORDINATION.md at Path.
type Store struct {
	Path string
}

// Load reads and parses the document, returning an empty Document if the
// file does not yet exist.
func (s Store) Load() (Document, error) {
	b, err := readFileOrEmpty(s.Path)
	if err != nil {
		return Document{}, fmt.Errorf("coorddoc: read %s: %w", s.Path, err)
	}
	return Parse(string(b)), nil
}

// UpdateSection loads the document, replaces one section, and atomically
// rewrites the file — the whole read-modify-write happens under a single
// call so callers can wrap it in a file lock for cross-process safety.
func (s Store) UpdateSection(heading, body string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	doc.UpdateSection(heading, body)
	return s.write(doc)
}

// AppendCurrentWorkRow loads the document, appends row to the Current
// Work table, and atomically rewrites the file.
func (s Store) AppendCurrentWorkRow(row CurrentWorkRow) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	doc.AppendCurrentWorkRow(row)
	return s.write(doc)
}

// AppendBlockedItem loads the document, appends item to Blocked Items,
// and atomically rewrites the file.
func (s Store) AppendBlockedItem(item string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	doc.AppendBlockedItem(item)
	return s.write(doc)
}

// AppendReviewQueueEntry loads the document, appends item to Code Review
// Queue, and atomically rewrites the file.
func (s Store) AppendReviewQueueEntry(item string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	doc.AppendReviewQueueEntry(item)
	return s.write(doc)
}

// AppendDecision loads the document, appends item to Decisions, and
// atomically rewrites the file.
func (s Store) AppendDecision(item string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	doc.AppendDecision(item)
	return s.write(doc)
}

func (s Store) write(doc Document) error {
	return renameio.WriteFile(s.Path, []byte(doc.Render()), docFileMode)
}
