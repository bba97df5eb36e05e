// Package control holds the process-wide pause flag that the capture loop
// consults. Signal handling lives in cmd/screendiaryd: SIGUSR1 and SIGUSR2
// flip this flag (pause, resume), while SIGINT/SIGTERM shutdown goes through
// context cancellation rather than through this package (spec.md section 5).
package control

import "sync/atomic"

// State is the shared pause flag; only the capture loop reads it.
type State struct {
	paused atomic.Bool
}

// New returns a running (not paused) state.
func New() *State {
	return &State{}
}

// Pause stops new capture ticks from being accepted. In-flight pipeline and
// archiver work is unaffected.
func (s *State) Pause() { s.paused.Store(true) }

// Resume re-enables capture ticks.
func (s *State) Resume() { s.paused.Store(false) }

// Paused reports the current pause state.
func (s *State) Paused() bool { return s.paused.Load() }
