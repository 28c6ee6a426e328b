package market

import "sync"

// Token tags one fetch issued for a view.
type Token struct {
	View string
	Seq  uint64
}

// Sequencer issues monotonically increasing tokens per view so that a
// completion can be checked against the most recent request for the same
// view. Completions carrying an older token are discarded by the caller.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewSequencer creates an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]uint64)}
}

// Next issues a new token for view.
func (s *Sequencer) Next(view string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[view]++
	return Token{View: view, Seq: s.latest[view]}
}

// IsLatest reports whether tok is the most recent token issued for its view.
func (s *Sequencer) IsLatest(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[tok.View] == tok.Seq
}
