package coorddoc

import (
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# Coordination

## Status

All agents nominal.

## Next Steps

- finish the thing
`

func TestParse_SplitsSections(t *testing.T) {
	doc := Parse(sample)
	if len(doc.Sections) != 3 {
		t.Fatalf("Sections: got %d, want 3", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "" || !strings.Contains(doc.Sections[0].Body, "# Coordination") {
		t.Fatalf("preamble section: got %+v", doc.Sections[0])
	}
	if doc.Sections[1].Heading != "Status" {
		t.Fatalf("heading: got %q", doc.Sections[1].Heading)
	}
}

func TestUpdateSection_ReplacesExisting(t *testing.T) {
	doc := Parse(sample)
	doc.UpdateSection("Status", "Agent B is blocked on review.")
	body, ok := doc.Get("Status")
	if !ok || body != "Agent B is blocked on review." {
		t.Fatalf("Get(Status): got %q, ok=%v", body, ok)
	}
}

func TestUpdateSection_AppendsNewHeading(t *testing.T) {
	doc := Parse(sample)
	doc.UpdateSection("Blockers", "none")
	body, ok := doc.Get("Blockers")
	if !ok || body != "none" {
		t.Fatalf("Get(Blockers): got %q, ok=%v", body, ok)
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	doc := Parse(sample)
	doc2 := Parse(doc.Render())
	if len(doc.Sections) != len(doc2.Sections) {
		t.Fatalf("round trip section count: got %d, want %d", len(doc2.Sections), len(doc.Sections))
	}
	for i := range doc.Sections {
		if doc.Sections[i].Heading != doc2.Sections[i].Heading {
			t.Fatalf("round trip heading %d: got %q, want %q", i, doc2.Sections[i].Heading, doc.Sections[i].Heading)
		}
	}
}

func TestStore_UpdateSection_PersistsAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "COORDINATION.md")
	s := Store{Path: path}

	if err := s.UpdateSection("Status", "all clear"); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	body, ok := doc.Get("Status")
	if !ok || body != "all clear" {
		t.Fatalf("Get(Status) after persist: got %q, ok=%v", body, ok)
	}
}
