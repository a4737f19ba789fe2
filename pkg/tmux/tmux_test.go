package tmux

import (
	"context"
	"testing"
)

func TestFake_SendKeysRecordsPayload(t *testing.T) {
	f := NewFake(Pane{PaneID: "%1", SessionName: "s"})
	if err := f.SendKeys(context.Background(), "%1", "hello"); err != nil {
		t.Fatal(err)
	}
	if got := f.Sent["%1"]; len(got) != 1 || got[0] != "hello" {
		t.Fatalf("Sent[%%1]: got %v", got)
	}
}

func TestFake_PaneExists(t *testing.T) {
	f := NewFake(Pane{PaneID: "%1"})
	ok, err := f.PaneExists(context.Background(), "%1")
	if err != nil || !ok {
		t.Fatalf("PaneExists(%%1): ok=%v err=%v", ok, err)
	}
	ok, err = f.PaneExists(context.Background(), "%missing")
	if err != nil || ok {
		t.Fatalf("PaneExists(%%missing): ok=%v err=%v", ok, err)
	}
}

func TestFake_ListPanesFiltersBySession(t *testing.T) {
	f := NewFake(
		Pane{PaneID: "%1", SessionName: "a"},
		Pane{PaneID: "%2", SessionName: "b"},
	)
	got, err := f.ListPanes(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].PaneID != "%1" {
		t.Fatalf("ListPanes(a): got %v", got)
	}
}

func TestDriver_BinDefaultsToTmux(t *testing.T) {
	var d Driver
	if d.bin() != "tmux" {
		t.Fatalf("bin: got %q, want tmux", d.bin())
	}
}
