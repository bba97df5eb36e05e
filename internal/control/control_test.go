package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStateStartsUnpaused(t *testing.T) {
	s := New()
	require.False(t, s.Paused())
}

func TestPauseAndResumeToggleState(t *testing.T) {
	s := New()

	s.Pause()
	require.True(t, s.Paused())

	s.Resume()
	require.False(t, s.Paused())
}
