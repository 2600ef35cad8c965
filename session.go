package sweetsession

import (
	"sync"
	"sync/atomic"
)

// Session tracks the completion of one capture run. The latch is monotonic:
// once a submission lands it stays set, so the wait loop terminates no matter
// what later requests do.
type Session struct {
	received atomic.Bool

	mu      sync.Mutex
	outcome string
}

// NewSession returns an unlatched session.
func NewSession() *Session {
	return &Session{}
}

// MarkReceived records how the credentials arrived and latches the session.
// The note is written before the latch flips so a caller woken by Received
// always sees it.
func (s *Session) MarkReceived(note string) {
	s.setOutcome(note)
	s.received.Store(true)
}

// MarkFailed records a failed attempt without latching.
func (s *Session) MarkFailed(note string) {
	s.setOutcome(note)
}

// Received reports whether a credential set has been captured.
func (s *Session) Received() bool {
	return s.received.Load()
}

// Outcome returns the note recorded with the most recent attempt.
func (s *Session) Outcome() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) setOutcome(note string) {
	s.mu.Lock()
	s.outcome = note
	s.mu.Unlock()
}
