package procinspect

import "context"

// Fake is an in-memory ProcessLocator for tests.
type Fake struct {
	Matches map[int32]*Match
}

func NewFake() *Fake { return &Fake{Matches: make(map[int32]*Match)} }

func (f *Fake) FindAssistant(_ context.Context, rootPID int32) (*Match, error) {
	return f.Matches[rootPID], nil
}

var _ ProcessLocator = (*Fake)(nil)
