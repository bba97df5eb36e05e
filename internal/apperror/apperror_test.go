package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTransientWrapsAndUnwraps(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewTransient("ffmpeg.encode", cause)

	require.True(t, IsTransient(err))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "ffmpeg.encode: exit status 1", err.Error())
}

func TestNewTransientWithNilErrorReturnsNil(t *testing.T) {
	require.NoError(t, NewTransient("noop", nil))
}

func TestIsTransientFalseForUnrelatedErrors(t *testing.T) {
	require.False(t, IsTransient(ErrInvariantBreach))
	require.False(t, IsTransient(fmt.Errorf("wrapped: %w", ErrCapabilityGap)))
}

func TestIsTransientTrueThroughWrapping(t *testing.T) {
	err := fmt.Errorf("pipeline tick: %w", NewTransient("ocr", errors.New("timeout")))
	require.True(t, IsTransient(err))
}
