package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkTextReconstructsWordSequence(t *testing.T) {
	text := strings.Join(words(120), " ")

	chunks := ChunkText(text, 50, 10)
	require.NotEmpty(t, chunks)

	var reconstructed []string
	for i, c := range chunks {
		cw := strings.Fields(c)
		if i > 0 {
			cw = cw[10:]
		}
		reconstructed = append(reconstructed, cw...)
	}
	require.Equal(t, strings.Fields(text), reconstructed)
}

func TestChunkTextSingleChunkWhenShort(t *testing.T) {
	chunks := ChunkText("one two three", 50, 10)
	require.Equal(t, []string{"one two three"}, chunks)
}

func TestChunkTextEmptyInput(t *testing.T) {
	require.Empty(t, ChunkText("   ", 50, 10))
}

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "w" + string(rune('0'+i%10))
	}
	return out
}
